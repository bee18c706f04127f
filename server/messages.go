package server

import (
	"time"

	"github.com/soocke/card-scan-go/domain/scan"
	"github.com/soocke/card-scan-go/store"
)

// Message is the envelope shared by every WebSocket frame.
type Message struct {
	Type string `json:"type"`
}

type StateMessage struct {
	Type  string              `json:"type"`
	State scan.DetectionState `json:"state"`
}

type CaptureMessage struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id,omitempty"`
	EventID    string    `json:"event_id"`
	CardID     string    `json:"card_id,omitempty"`
	Side       string    `json:"side"`
	Manual     bool      `json:"manual"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ControlMessage is sent by clients: "capture", "auto" (Enabled), "side" (Side),
// "card" (CardID) or "viewport" (Width, Height).
type ControlMessage struct {
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled,omitempty"`
	Side    string `json:"side,omitempty"`
	CardID  string `json:"card_id,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// CaptureFromEvent describes an unsaved capture event.
func CaptureFromEvent(ev scan.CaptureEvent) CaptureMessage {
	m := CaptureMessage{
		Type:       "capture",
		EventID:    ev.ID,
		CardID:     ev.CardID,
		Side:       ev.Side.String(),
		Manual:     ev.Manual,
		CapturedAt: ev.CapturedAt,
	}
	if ev.Image != nil {
		m.Width, m.Height = ev.Image.Bounds().Dx(), ev.Image.Bounds().Dy()
	}
	return m
}

// CaptureFromRecord describes a persisted capture.
func CaptureFromRecord(r *store.CaptureRecord) CaptureMessage {
	return CaptureMessage{
		Type:       "capture",
		ID:         r.ID,
		EventID:    r.EventID,
		CardID:     r.CardID,
		Side:       r.Side,
		Manual:     r.Manual,
		Width:      r.Width,
		Height:     r.Height,
		CapturedAt: r.CapturedAt,
	}
}
