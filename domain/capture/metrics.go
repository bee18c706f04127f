package capture

import "time"

// SourceStats summarises frame source behaviour for instrumentation.
type SourceStats struct {
	Frames         uint64
	Skipped        uint64
	AvgGrab        time.Duration
	LastFrame      time.Time
	LatestFrameAge time.Duration
	Sequence       uint64
}
