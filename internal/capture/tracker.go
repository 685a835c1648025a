package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/wandcast/internal/input"
)

const (
	// BlurSize is the Gaussian kernel used to suppress single hot pixels.
	BlurSize = 11
	// DefaultBrightness is the minimum blurred intensity of a lit tip.
	DefaultBrightness = 220
)

// TipTracker finds the brightest spot of a frame and reports it as the wand
// tip when it is bright enough.
type TipTracker struct {
	brightness float64
	mirror     bool
	mu         sync.Mutex
}

// NewTipTracker creates a tracker. Non-positive brightness uses
// DefaultBrightness. Mirror flips the x axis for front facing cameras.
func NewTipTracker(brightness float64, mirror bool) *TipTracker {
	if brightness <= 0 {
		brightness = DefaultBrightness
	}
	return &TipTracker{brightness: brightness, mirror: mirror}
}

// Locate returns the tip position normalized to [0, 1] with y pointing up,
// and whether a tip was visible.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur so the peak is the center of the lit blob
// 3. Take the maximum with MinMaxLoc
// 4. Reject the peak when it is darker than the brightness threshold
func (t *TipTracker) Locate(frame *gocv.Mat) (input.Point3D, bool) {
	t.mu.Lock()
	brightness, mirror := t.brightness, t.mirror
	t.mu.Unlock()

	if frame == nil || frame.Empty() {
		return input.Point3D{}, false
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(blurred)
	if float64(maxVal) < brightness {
		return input.Point3D{}, false
	}

	w, h := float64(blurred.Cols()-1), float64(blurred.Rows()-1)
	if w <= 0 || h <= 0 {
		return input.Point3D{}, false
	}
	x := float64(maxLoc.X) / w
	if mirror {
		x = 1 - x
	}
	return input.Point3D{X: x, Y: 1 - float64(maxLoc.Y)/h}, true
}

// SetBrightness changes the detection threshold. Values less than or equal
// to 0 are ignored.
func (t *TipTracker) SetBrightness(brightness float64) {
	if brightness <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = brightness
}
