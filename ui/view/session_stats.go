package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows scan session durations and capture counts.
type SessionStats interface {
	SetSession(d time.Duration)
	SetTotal(d time.Duration)
	SetCaptures(session, total int)
}

type sessionStats struct {
	sessionLbl  *LabelWidget
	totalLbl    *LabelWidget
	capturesLbl *LabelWidget
}

// NewSessionStats creates the session, total and capture labels in a grid
// row starting at startCol. If parent is nil, labels are positioned relative
// to the App root.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{sessionLbl: Label(Width(14)), totalLbl: Label(Width(14)), capturesLbl: Label(Width(18))}
	for i, l := range []*LabelWidget{s.sessionLbl, s.totalLbl, s.capturesLbl} {
		if parent != nil {
			Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.sessionLbl.Configure(Txt("Session: 00:00"))
	s.totalLbl.Configure(Txt("Total: 00:00"))
	s.capturesLbl.Configure(Txt("Cards: 0 / 0"))
	return s
}

func clock(prefix string, d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%s: %02d:%02d", prefix, seconds/60, seconds%60)
}

// SetSession updates the session duration display.
func (s *sessionStats) SetSession(d time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt(clock("Session", d)))
}

// SetTotal updates the total duration display.
func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt(clock("Total", d)))
}

// SetCaptures updates the session and total capture counts.
func (s *sessionStats) SetCaptures(session, total int) {
	if s == nil || s.capturesLbl == nil {
		return
	}
	s.capturesLbl.Configure(Txt(fmt.Sprintf("Cards: %d / %d", session, total)))
}
