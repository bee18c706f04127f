package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick on the sub-presenters and invokes a scheduler callback.
// The zero value is usable (methods are nil-safe).
type Loop struct {
	State    *StatePresenter
	Preview  *PreviewPresenter
	Session  *SessionPresenter
	Schedule func()
}

func NewLoop(state *StatePresenter, preview *PreviewPresenter, sess *SessionPresenter, schedule func()) *Loop {
	return &Loop{State: state, Preview: preview, Session: sess, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	l.State.Tick(now)
	// preview before session so a capture shown this tick is counted.
	l.Preview.Tick(now)
	l.Session.Tick(now)
	if l.Schedule != nil {
		l.Schedule()
	}
}
