package model

import (
	"sync"

	"github.com/soocke/card-scan-go/domain/capture"
)

// GuideModel holds the guide's crop region in source-frame coordinates, as
// last computed for the live preview. Zero value means no region.
type GuideModel struct {
	mu     sync.Mutex
	region capture.CropRegion
}

func NewGuideModel() *GuideModel { return &GuideModel{} }

// SetRegion stores r. Empty regions clear the model.
func (m *GuideModel) SetRegion(r capture.CropRegion) {
	if m == nil {
		return
	}
	if r.Empty() {
		r = capture.CropRegion{}
	}
	m.mu.Lock()
	m.region = r
	m.mu.Unlock()
}

// Region returns the current region (may be empty).
func (m *GuideModel) Region() capture.CropRegion {
	if m == nil {
		return capture.CropRegion{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.region
}
