package store

import (
	"fmt"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/soocke/card-scan-go/domain/scan"
)

type dedupeKey struct {
	cardID string
	side   scan.Side
}

// DedupeGuard rejects a capture whose perceptual hash is within MaxDistance
// of the previous accepted capture for the same card and side. A zero
// MaxDistance disables the guard.
type DedupeGuard struct {
	MaxDistance int

	mu   sync.Mutex
	last map[dedupeKey]*goimagehash.ImageHash
}

// NewDedupeGuard returns a guard with the given Hamming distance limit.
func NewDedupeGuard(maxDistance int) *DedupeGuard {
	return &DedupeGuard{MaxDistance: maxDistance, last: make(map[dedupeKey]*goimagehash.ImageHash)}
}

func noRelease() {}

// Check returns ErrDuplicateCapture for a near copy and otherwise remembers ev
// as the latest capture of its card side. The returned release undoes that
// when ev is not kept after all, restoring the hash it replaced. release is
// never nil.
func (g *DedupeGuard) Check(ev scan.CaptureEvent) (release func(), err error) {
	if g == nil || g.MaxDistance <= 0 || ev.Image == nil {
		return noRelease, nil
	}
	h, err := goimagehash.PerceptionHash(ev.Image)
	if err != nil {
		return noRelease, fmt.Errorf("store: phash: %w", err)
	}
	key := dedupeKey{cardID: ev.CardID, side: ev.Side}
	g.mu.Lock()
	defer g.mu.Unlock()
	prev, had := g.last[key]
	if had {
		d, err := prev.Distance(h)
		if err == nil && d <= g.MaxDistance {
			return noRelease, fmt.Errorf("%w: distance %d", ErrDuplicateCapture, d)
		}
	}
	g.last[key] = h
	return func() { g.restore(key, h, prev, had) }, nil
}

// restore puts prev back for key unless a later capture replaced h already.
func (g *DedupeGuard) restore(key dedupeKey, h, prev *goimagehash.ImageHash, had bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last[key] != h {
		return
	}
	if had {
		g.last[key] = prev
	} else {
		delete(g.last, key)
	}
}
