package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Mode selects how a capture is mapped onto the slide canvas.
type Mode string

const (
	// ModeFit letterboxes: the full capture is kept and the unused canvas
	// area is padded with the background color.
	ModeFit Mode = "fit"
	// ModeFill covers: the capture is scaled until it covers the whole
	// canvas and the overflow around the focus point is cropped away.
	ModeFill Mode = "fill"
)

var (
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrDegenerateScale  = errors.New("degenerate scale")
)

// ParseMode parses a mode string as given on the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFit, ModeFill:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (must be fit or fill)", s)
}

// Options contains the options for composing a slide.
type Options struct {
	Width      int         // Slide width in pixels
	Height     int         // Slide height in pixels
	Mode       Mode        // Fit (letterbox) or fill (cover)
	FocusX     float64     // Horizontal crop focus 0-1, used in fill mode
	FocusY     float64     // Vertical crop focus 0-1, used in fill mode
	Background color.NRGBA // Letterbox color, used in fit mode
}

// NewOptions returns an Options struct initialized with default values:
// a 4K 16:9 slide, letterboxed on a near-black background.
func NewOptions() Options {
	return Options{
		Width:      3840,
		Height:     2160,
		Mode:       ModeFit,
		FocusX:     0.5,
		FocusY:     0.5,
		Background: color.NRGBA{R: 5, G: 5, B: 8, A: 255},
	}
}

// Compose scales the capture onto a slide canvas of exactly
// opts.Width x opts.Height pixels.
//
// In fit mode the capture is scaled to the largest size that still fits
// inside the canvas and centered, leaving the background visible in the
// margins. In fill mode the capture is scaled to the smallest size that
// covers the whole canvas and the overflow is cropped; FocusX and FocusY
// select which part of the overflow survives, with (0,0) keeping the
// top-left and (1,1) keeping the bottom-right. Focus values outside [0,1]
// are clamped, not rejected.
//
// Compose is deterministic and never returns a partially built slide.
func Compose(img image.Image, opts Options) (*image.NRGBA, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return nil, fmt.Errorf("%w: slide size %dx%d", ErrInvalidDimension, opts.Width, opts.Height)
	}

	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW < 1 || srcH < 1 {
		return nil, fmt.Errorf("%w: source image %dx%d", ErrInvalidDimension, srcW, srcH)
	}

	focusX := clamp(opts.FocusX, 0, 1)
	focusY := clamp(opts.FocusY, 0, 1)

	scaleX := float64(opts.Width) / float64(srcW)
	scaleY := float64(opts.Height) / float64(srcH)

	var scale float64
	if opts.Mode == ModeFill {
		scale = math.Max(scaleX, scaleY)
	} else {
		scale = math.Min(scaleX, scaleY)
	}

	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	if scaledW < 1 || scaledH < 1 {
		return nil, fmt.Errorf("%w: %dx%d scaled by %.6f truncates to %dx%d",
			ErrDegenerateScale, srcW, srcH, scale, scaledW, scaledH)
	}

	resized := imaging.Resize(img, scaledW, scaledH, imaging.Lanczos)

	if opts.Mode == ModeFill {
		return cropToCanvas(resized, opts.Width, opts.Height, focusX, focusY), nil
	}

	canvas := imaging.New(opts.Width, opts.Height, opts.Background)
	offset := image.Pt((opts.Width-scaledW)/2, (opts.Height-scaledH)/2)
	return imaging.Paste(canvas, resized, offset), nil
}

// cropToCanvas cuts a width x height window out of the resized capture.
// The focus point decides how much of the overflow is discarded on each
// side. Integer truncation during scaling can leave the capture up to one
// pixel short of the canvas on an axis; the window is clamped to the
// capture bounds and stretched back to the canvas size instead of failing.
func cropToCanvas(resized *image.NRGBA, width, height int, focusX, focusY float64) *image.NRGBA {
	overflowX := resized.Bounds().Dx() - width
	if overflowX < 0 {
		overflowX = 0
	}
	overflowY := resized.Bounds().Dy() - height
	if overflowY < 0 {
		overflowY = 0
	}

	left := int(float64(overflowX) * focusX)
	top := int(float64(overflowY) * focusY)

	rect := image.Rect(left, top, left+width, top+height).Intersect(resized.Bounds())
	cropped := imaging.Crop(resized, rect)

	if cropped.Bounds().Dx() != width || cropped.Bounds().Dy() != height {
		cropped = imaging.Resize(cropped, width, height, imaging.Lanczos)
	}
	return cropped
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
