package view

import (
	"image"

	"github.com/soocke/card-scan-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the live source with the guide outline next to the
// most recent capture.
type CapturePreview interface {
	UpdateLive(img image.Image)
	UpdateCapture(img image.Image)
	Reset()
}

type capturePreview struct {
	liveLabel    *LabelWidget
	captureLabel *LabelWidget
	livePhoto    *Img
	capturePhoto *Img
}

const (
	placeholderW = 200
	placeholderH = 120
)

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH)))
}

// NewCapturePreview creates the preview labels and grids them on row.
// Live spans columns 0-2; the last capture sits at columns 3-4.
func NewCapturePreview(row int) CapturePreview {
	png := placeholderPNG()
	livePhoto := NewPhoto(Data(png))
	capPhoto := NewPhoto(Data(png))
	live := Label(Image(livePhoto), Borderwidth(1), Relief("sunken"))
	last := Label(Image(capPhoto), Borderwidth(1), Relief("sunken"))
	Grid(live, Row(row), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	Grid(last, Row(row), Column(3), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &capturePreview{liveLabel: live, captureLabel: last, livePhoto: livePhoto, capturePhoto: capPhoto}
}

// swap replaces the label's photo, deleting the previous one so Tk does not
// accumulate off-screen image data.
func swap(label *LabelWidget, prev **Img, png []byte) {
	if label == nil || len(png) == 0 {
		return
	}
	if *prev != nil {
		(*prev).Delete()
	}
	*prev = NewPhoto(Data(png))
	label.Configure(Image(*prev))
}

func (v *capturePreview) UpdateLive(img image.Image) {
	if img == nil {
		return
	}
	swap(v.liveLabel, &v.livePhoto, images.EncodePNG(img))
}

func (v *capturePreview) UpdateCapture(img image.Image) {
	if img == nil {
		return
	}
	swap(v.captureLabel, &v.capturePhoto, images.EncodePNG(img))
}

// Reset clears the live preview. The last capture stays visible.
func (v *capturePreview) Reset() {
	swap(v.liveLabel, &v.livePhoto, placeholderPNG())
}
