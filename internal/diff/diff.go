// Package diff compares two screenshots pixel by pixel and renders a
// visual diff image highlighting the regions that changed.
package diff

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// ErrDimensionMismatch is returned when the two screenshots have
// different sizes. A page whose height changed cannot be compared pixel
// by pixel; callers must treat it as an error, not as a change.
var ErrDimensionMismatch = errors.New("screenshot dimensions differ")

// Result is the outcome of comparing two equally sized screenshots.
type Result struct {
	// DiffPixels is the number of pixels whose color difference exceeds
	// the per-pixel threshold.
	DiffPixels int

	// TotalPixels is the number of pixels compared, width times height.
	TotalPixels int

	// DiffImage is a PNG visualizing the changes: the baseline faded to
	// grayscale with divergent pixels drawn in red. Nil when the images
	// are identical under the threshold.
	DiffImage []byte
}

// Ratio returns the fraction of differing pixels, in [0, 1].
func (r *Result) Ratio() float64 {
	if r.TotalPixels == 0 {
		return 0
	}
	return float64(r.DiffPixels) / float64(r.TotalPixels)
}

// Differ compares screenshots with a per-pixel color threshold.
//
// The threshold is a normalized per-channel difference in [0, 1]. A
// pixel counts as different when any channel diverges by more than the
// threshold, which tolerates antialiasing jitter while still catching
// real content changes.
type Differ struct {
	threshold float64
}

// New creates a Differ with the given per-pixel threshold.
func New(threshold float64) *Differ {
	return &Differ{threshold: threshold}
}

// Compare decodes two PNG screenshots and compares them pixel by pixel.
// It returns ErrDimensionMismatch when the images differ in size.
func (d *Differ) Compare(basePNG, currentPNG []byte) (*Result, error) {
	base, err := png.Decode(bytes.NewReader(basePNG))
	if err != nil {
		return nil, fmt.Errorf("decode baseline screenshot: %w", err)
	}
	current, err := png.Decode(bytes.NewReader(currentPNG))
	if err != nil {
		return nil, fmt.Errorf("decode current screenshot: %w", err)
	}

	bb, cb := base.Bounds(), current.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return nil, fmt.Errorf("%w: baseline %dx%d, current %dx%d",
			ErrDimensionMismatch, bb.Dx(), bb.Dy(), cb.Dx(), cb.Dy())
	}

	width, height := bb.Dx(), bb.Dy()
	overlay := image.NewRGBA(image.Rect(0, 0, width, height))

	diffPixels := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bc := base.At(bb.Min.X+x, bb.Min.Y+y)
			cc := current.At(cb.Min.X+x, cb.Min.Y+y)

			if d.pixelDiffers(bc, cc) {
				diffPixels++
				overlay.Set(x, y, color.RGBA{R: 0xff, A: 0xff})
			} else {
				overlay.Set(x, y, fade(bc))
			}
		}
	}

	result := &Result{
		DiffPixels:  diffPixels,
		TotalPixels: width * height,
	}
	if diffPixels == 0 {
		return result, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, overlay); err != nil {
		return nil, fmt.Errorf("encode diff image: %w", err)
	}
	result.DiffImage = buf.Bytes()
	return result, nil
}

// pixelDiffers reports whether any color channel diverges by more than
// the threshold.
func (d *Differ) pixelDiffers(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()

	max := channelDelta(ar, br)
	if v := channelDelta(ag, bg); v > max {
		max = v
	}
	if v := channelDelta(ab, bb); v > max {
		max = v
	}
	if v := channelDelta(aa, ba); v > max {
		max = v
	}
	return max > d.threshold
}

// channelDelta normalizes the difference of two 16-bit channels to [0, 1].
func channelDelta(a, b uint32) float64 {
	if a > b {
		return float64(a-b) / 0xffff
	}
	return float64(b-a) / 0xffff
}

// fade renders a baseline pixel as washed-out grayscale so the red
// diff regions stand out in the overlay.
func fade(c color.Color) color.Color {
	g := color.GrayModel.Convert(c).(color.Gray)
	v := uint8(uint16(g.Y)/2 + 0x80)
	return color.RGBA{R: v, G: v, B: v, A: 0xff}
}
