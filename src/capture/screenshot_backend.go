package capture

import (
	"context"
	"image"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"

	"snipper/src/geometry"
)

// pixelCapturer grabs a display-local point rect of display index at pw x ph device pixels.
type pixelCapturer func(index int, local geometry.Rect, pw, ph int) (*image.RGBA, error)

// ScreenshotBackend captures through CoreGraphics display images (kbinani/screenshot).
// It supports area capture and keeps the overlay out of the frame by hiding it first.
// Bitmaps are always Request.Pixel sized.
type ScreenshotBackend struct {
	// Scale reports the backing scale factor of display i. Nil means 1.
	Scale func(i int) float64
	// Exclude hides the app's own windows and returns a function that restores them.
	Exclude func() (restore func())

	// Swapped in tests.
	numDisplays   func() int
	displayBounds func(i int) image.Rectangle
	captureRect   func(r image.Rectangle) (*image.RGBA, error)
	// capturePixels is nil where captureRect already works in device pixels.
	capturePixels pixelCapturer
}

func NewScreenshotBackend(scale func(int) float64, exclude func() func()) *ScreenshotBackend {
	return &ScreenshotBackend{
		Scale:         scale,
		Exclude:       exclude,
		numDisplays:   screenshot.NumActiveDisplays,
		displayBounds: screenshot.GetDisplayBounds,
		captureRect:   screenshot.CaptureRect,
		capturePixels: nativeCapturer(),
	}
}

func (b *ScreenshotBackend) Name() string { return "screenshot" }

func (b *ScreenshotBackend) Capabilities() Capabilities {
	return Capabilities{Area: true, Preflight: true, ExcludeSelf: true, Async: true}
}

func (b *ScreenshotBackend) Displays() ([]geometry.Display, error) {
	return enumerateDisplays(b.numDisplays, b.displayBounds, b.Scale), nil
}

func (b *ScreenshotBackend) Capture(ctx context.Context, req Request) (*Bitmap, error) {
	if b.Exclude != nil {
		if restore := b.Exclude(); restore != nil {
			defer restore()
		}
	}

	type result struct {
		img *image.RGBA
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := b.grab(req)
		done <- result{img, err}
	}()

	select {
	case <-ctx.Done():
		return nil, NewError(KindCaptureFailed, b.Name(), ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, NewError(KindCaptureFailed, b.Name(), errors.Wrapf(r.err, "capture %s", req.Screen))
		}
		if r.img == nil {
			return nil, NewError(KindCaptureFailed, b.Name(), errors.New("empty image"))
		}
		return NewBitmap(r.img), nil
	}
}

// grab returns the request at device resolution. kbinani/screenshot sizes macOS
// captures in points, so macOS goes through capturePixels instead.
func (b *ScreenshotBackend) grab(req Request) (*image.RGBA, error) {
	px := req.Pixel.ImageRect()
	if b.capturePixels != nil {
		local := req.Screen.Offset(-req.Display.Frame.X, -req.Display.Frame.Y)
		return b.capturePixels(req.Display.ID, local, px.Dx(), px.Dy())
	}
	img, err := b.captureRect(req.Screen.ImageRect())
	if err != nil || img == nil {
		return img, err
	}
	if got := img.Bounds(); got.Dx() != px.Dx() || got.Dy() != px.Dy() {
		return nil, errors.Errorf("got %dx%d image, want %dx%d device pixels (scale %g)",
			got.Dx(), got.Dy(), px.Dx(), px.Dy(), req.Display.Scale)
	}
	return img, nil
}

// enumerateDisplays snapshots the active displays. Index 0 is the main display.
func enumerateDisplays(num func() int, bounds func(int) image.Rectangle, scale func(int) float64) []geometry.Display {
	n := num()
	displays := make([]geometry.Display, 0, n)
	for i := 0; i < n; i++ {
		s := 1.0
		if scale != nil {
			s = scale(i)
		}
		displays = append(displays, geometry.Display{
			ID:      i,
			Frame:   geometry.FromImageRect(bounds(i)),
			Scale:   s,
			Primary: i == 0,
		})
	}
	return displays
}
