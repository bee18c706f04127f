package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/soocke/card-scan-go/domain/capture"
)

var (
	// ErrCaptureInFlight is returned when a capture is requested while another
	// one is still being delivered.
	ErrCaptureInFlight = errors.New("scan: capture already in flight")
	// ErrEngineStopped is returned by control calls after Stop.
	ErrEngineStopped = errors.New("scan: engine stopped")
)

// Phase enumerates the capture trigger states.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAccumulating
	PhaseCapturing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Side identifies which face of the card a capture belongs to.
type Side int

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// ParseSide accepts "front" or "back", case-insensitively.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "front", "":
		return SideFront, nil
	case "back":
		return SideBack, nil
	}
	return SideFront, fmt.Errorf("scan: unknown side %q", v)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DetectionState is the per-cycle snapshot published for progress rendering.
type DetectionState struct {
	StabilityCount int     `json:"stability_count"`
	Progress       float64 `json:"progress"`
	CardDetected   bool    `json:"card_detected"`
	Phase          Phase   `json:"phase"`
	Similarity     float64 `json:"similarity"`
	AutoMode       bool    `json:"auto_mode"`
	Side           Side    `json:"side"`
	DisplayWidth   int     `json:"display_width"`
	DisplayHeight  int     `json:"display_height"`
}

// CaptureEvent is a full-resolution still of the guide region.
type CaptureEvent struct {
	ID         string
	Image      *image.NRGBA
	Side       Side
	CardID     string
	Crop       capture.CropRegion
	CapturedAt time.Time
	Manual     bool
}

// StateListener receives every published DetectionState.
type StateListener func(DetectionState)

// CaptureListener receives every emitted CaptureEvent.
type CaptureListener func(CaptureEvent)

// EngineStats summarises loop behaviour.
type EngineStats struct {
	Cycles         uint64
	Skipped        uint64
	Captures       uint64
	ManualCaptures uint64
	AvgCycle       time.Duration
}

// Interface slices for consumers (server, presenters).
type StateSource interface {
	State() DetectionState
	AddStateListener(StateListener)
}
type CaptureSource interface{ AddCaptureListener(CaptureListener) }
type SessionControl interface {
	SetAutoMode(bool) error
	SetSide(Side) error
	SetCardID(string) error
	CaptureNow(context.Context) error
}

type ViewportControl interface {
	SetViewport(w, h int) error
}

// Controller aggregate for DI.
type Controller interface {
	StateSource
	CaptureSource
	SessionControl
	ViewportControl
}
