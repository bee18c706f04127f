package scan

// Decision is the outcome of one trigger step.
type Decision int

const (
	Hold Decision = iota
	Fire
)

// Trigger is the Idle/Accumulating/Capturing state machine. The counter is
// auxiliary data of the phase: zero in Idle, in (0, frames) while
// Accumulating. Not safe for concurrent use.
type Trigger struct {
	frames       int
	threshold    float64
	phase        Phase
	counter      int
	cardDetected bool
	similarity   float64
}

// NewTrigger returns a trigger that fires when the counter reaches frames. A
// cycle counts as stable when similarity >= threshold.
func NewTrigger(frames int, threshold float64) *Trigger {
	if frames < 1 {
		frames = 1
	}
	return &Trigger{frames: frames, threshold: threshold}
}

// Step folds one analysis cycle into the counter. It is a no-op while
// Capturing. On Fire the trigger is left in Capturing until Finish.
func (t *Trigger) Step(hasContent bool, similarity float64) Decision {
	if t.phase == PhaseCapturing {
		return Hold
	}
	t.cardDetected = hasContent
	t.similarity = similarity
	switch {
	case hasContent && similarity >= t.threshold:
		t.counter = min(t.counter+1, t.frames)
	case hasContent:
		t.counter = max(t.counter-1, 0)
	default:
		t.counter = 0
	}
	if t.counter >= t.frames {
		t.phase = PhaseCapturing
		return Fire
	}
	if t.counter == 0 {
		t.phase = PhaseIdle
	} else {
		t.phase = PhaseAccumulating
	}
	return Hold
}

// BeginManual enters Capturing for a user-requested capture. It returns false
// when a capture is already in flight.
func (t *Trigger) BeginManual() bool {
	if t.phase == PhaseCapturing {
		return false
	}
	t.phase = PhaseCapturing
	return true
}

// Finish ends a capture and returns to Idle with a zero counter.
func (t *Trigger) Finish() {
	t.phase = PhaseIdle
	t.counter = 0
}

// Reset clears counter, progress and detection. An in-flight capture keeps
// the Capturing phase until Finish.
func (t *Trigger) Reset() {
	t.counter = 0
	t.cardDetected = false
	t.similarity = 0
	if t.phase != PhaseCapturing {
		t.phase = PhaseIdle
	}
}

// Phase returns the current phase.
func (t *Trigger) Phase() Phase { return t.phase }

// State returns the trigger's part of the detection snapshot.
func (t *Trigger) State() DetectionState {
	return DetectionState{
		StabilityCount: t.counter,
		Progress:       float64(t.counter) / float64(t.frames) * 100,
		CardDetected:   t.cardDetected,
		Phase:          t.phase,
		Similarity:     t.similarity,
	}
}
