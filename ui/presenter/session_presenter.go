package presenter

import (
	"time"

	"github.com/soocke/card-scan-go/ui/model"
)

// AutoModeModel reports whether auto scanning is on.
type AutoModeModel interface{ AutoMode() bool }

// SessionView displays session durations and capture counts.
type SessionView interface {
	SetSession(session, total time.Duration)
	SetCaptures(session, total int)
}

// SessionPresenter formats session durations and capture counts from the model to the view.
type SessionPresenter struct {
	sess *model.SessionModel
	auto AutoModeModel
	view SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, auto AutoModeModel, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, auto: auto, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.auto == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.auto.AutoMode(), now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
	sc, tc := p.sess.Captures()
	p.view.SetCaptures(sc, tc)
}
