package scan

import (
	"math/rand"
	"testing"
)

func TestTrigger_FiresOnTwentiethStableCycle(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	fired := 0
	for i := 1; i <= 20; i++ {
		d := tr.Step(true, 1)
		if d == Fire {
			fired++
			if i != 20 {
				t.Fatalf("fired on cycle %d", i)
			}
		}
		if i < 20 && tr.Phase() != PhaseAccumulating {
			t.Fatalf("cycle %d phase=%v", i, tr.Phase())
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times", fired)
	}
	st := tr.State()
	if st.Phase != PhaseCapturing || st.Progress != 100 || st.StabilityCount != 20 {
		t.Fatalf("state after fire: %+v", st)
	}
	// steps while capturing are ignored.
	if tr.Step(true, 1) != Hold || tr.Phase() != PhaseCapturing {
		t.Fatal("step while capturing changed state")
	}
	tr.Finish()
	if st := tr.State(); st.Phase != PhaseIdle || st.StabilityCount != 0 || st.Progress != 0 {
		t.Fatalf("state after finish: %+v", st)
	}
}

func TestTrigger_ContentLostResetsCounter(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	for i := 0; i < 10; i++ {
		tr.Step(true, 0.9)
	}
	if tr.State().StabilityCount != 10 || tr.State().Progress != 50 {
		t.Fatalf("state=%+v", tr.State())
	}
	for i := 0; i < 10; i++ {
		if tr.Step(false, 1) == Fire {
			t.Fatal("fired without content")
		}
	}
	st := tr.State()
	if st.StabilityCount != 0 || st.Phase != PhaseIdle || st.CardDetected {
		t.Fatalf("state=%+v", st)
	}
}

func TestTrigger_MovingContentDecrements(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	for i := 0; i < 3; i++ {
		tr.Step(true, 0.8)
	}
	tr.Step(true, 0.5)
	st := tr.State()
	if st.StabilityCount != 2 || st.Progress != 10 || !st.CardDetected {
		t.Fatalf("state=%+v", st)
	}
	tr.Step(true, 0.1)
	tr.Step(true, 0.1)
	tr.Step(true, 0.1)
	if st := tr.State(); st.StabilityCount != 0 || st.Phase != PhaseIdle {
		t.Fatalf("state=%+v", st)
	}
}

func TestTrigger_ThresholdIsInclusive(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	tr.Step(true, 0.75)
	if tr.State().StabilityCount != 1 {
		t.Fatalf("similarity at threshold not stable: %+v", tr.State())
	}
}

func TestTrigger_CounterBounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tr := NewTrigger(20, 0.75)
	for i := 0; i < 20000; i++ {
		d := tr.Step(r.Intn(4) != 0, r.Float64())
		st := tr.State()
		if st.StabilityCount < 0 || st.StabilityCount > 20 {
			t.Fatalf("counter out of bounds at %d: %d", i, st.StabilityCount)
		}
		if st.Progress < 0 || st.Progress > 100 {
			t.Fatalf("progress out of bounds at %d: %v", i, st.Progress)
		}
		if d == Fire {
			tr.Finish()
		}
	}
}

func TestTrigger_ManualGuard(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	if !tr.BeginManual() {
		t.Fatal("manual capture refused while idle")
	}
	if tr.BeginManual() {
		t.Fatal("manual capture allowed while capturing")
	}
	tr.Reset()
	if tr.Phase() != PhaseCapturing {
		t.Fatal("reset cleared an in-flight capture")
	}
	tr.Finish()
	if !tr.BeginManual() {
		t.Fatal("manual capture refused after finish")
	}
}

func TestTrigger_ResetClearsProgress(t *testing.T) {
	tr := NewTrigger(20, 0.75)
	for i := 0; i < 15; i++ {
		tr.Step(true, 1)
	}
	if tr.State().Progress != 75 || !tr.State().CardDetected {
		t.Fatalf("state=%+v", tr.State())
	}
	tr.Reset()
	st := tr.State()
	if st.Progress != 0 || st.CardDetected || st.StabilityCount != 0 || st.Phase != PhaseIdle {
		t.Fatalf("state after reset=%+v", st)
	}
}
