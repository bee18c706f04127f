package model

import (
	"time"
)

// SessionModel tracks how long auto scanning has been running and how many
// captures were taken, both for the current session and in total. A session
// starts when auto mode is switched on and ends when it is switched off.
// Manual captures outside a session only count towards the total.
// The zero value is ready to use.
type SessionModel struct {
	active      bool
	start       time.Time
	last        time.Duration
	accumulated time.Duration

	sessionCaptures int
	totalCaptures   int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model with the current auto mode and timestamp.
func (m *SessionModel) OnTick(auto bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case auto && !m.active:
		m.active = true
		m.start = now
		m.last = 0
		m.sessionCaptures = 0
	case auto:
		m.last = now.Sub(m.start)
	case m.active:
		m.last = now.Sub(m.start)
		m.accumulated += m.last
		m.active = false
	}
}

// OnCapture records one delivered capture.
func (m *SessionModel) OnCapture() {
	if m == nil {
		return
	}
	m.totalCaptures++
	if m.active {
		m.sessionCaptures++
	}
}

// Values returns the current session duration and the accumulated total,
// which includes the running session.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.last
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Captures returns the capture counts for the current or last session and in total.
func (m *SessionModel) Captures() (session, total int) {
	if m == nil {
		return 0, 0
	}
	return m.sessionCaptures, m.totalCaptures
}
