package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"snipper/src/geometry"
)

// stubScreenshot makes captureRect behave like kbinani/screenshot on macOS: the image is
// sized to the point rect it was asked for, whatever the display scale.
func stubScreenshot(b *ScreenshotBackend, bounds []image.Rectangle, captured *[]image.Rectangle) {
	b.numDisplays = func() int { return len(bounds) }
	b.displayBounds = func(i int) image.Rectangle { return bounds[i] }
	b.captureRect = func(r image.Rectangle) (*image.RGBA, error) {
		*captured = append(*captured, r)
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}
	b.capturePixels = nil
}

type pixelGrab struct {
	index  int
	local  geometry.Rect
	pw, ph int
}

// stubPixels records native grabs and returns buffers of the requested device size.
func stubPixels(b *ScreenshotBackend, grabs *[]pixelGrab) {
	b.capturePixels = func(index int, local geometry.Rect, pw, ph int) (*image.RGBA, error) {
		*grabs = append(*grabs, pixelGrab{index, local, pw, ph})
		return image.NewRGBA(image.Rect(0, 0, pw, ph)), nil
	}
}

func TestScreenshotBackendDisplays(t *testing.T) {
	b := NewScreenshotBackend(func(i int) float64 { return float64(i + 1) }, nil)
	var captured []image.Rectangle
	stubScreenshot(b, []image.Rectangle{image.Rect(0, 0, 1440, 900), image.Rect(1440, -200, 3360, 880)}, &captured)

	got, err := b.Displays()
	if err != nil {
		t.Fatalf("Displays failed: %v", err)
	}
	want := []geometry.Display{
		{ID: 0, Frame: geometry.Rect{W: 1440, H: 900}, Scale: 1, Primary: true},
		{ID: 1, Frame: geometry.Rect{X: 1440, Y: -200, W: 1920, H: 1080}, Scale: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("displays mismatch (-want +got):\n%s", diff)
	}
}

func TestScreenshotBackendExcludesSelfDuringCapture(t *testing.T) {
	var events []string
	b := NewScreenshotBackend(nil, func() func() {
		events = append(events, "hide")
		return func() { events = append(events, "restore") }
	})
	var captured []image.Rectangle
	stubScreenshot(b, []image.Rectangle{image.Rect(0, 0, 800, 600)}, &captured)
	inner := b.captureRect
	b.captureRect = func(r image.Rectangle) (*image.RGBA, error) {
		events = append(events, "capture")
		return inner(r)
	}

	req := Request{Screen: geometry.Rect{X: 10, Y: 20, W: 30, H: 40}, Pixel: geometry.Rect{X: 10, Y: 20, W: 30, H: 40}}
	bmp, err := b.Capture(context.Background(), req)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if bmp.Width() != 30 || bmp.Height() != 40 {
		t.Fatalf("unexpected size %dx%d", bmp.Width(), bmp.Height())
	}
	if diff := cmp.Diff([]image.Rectangle{image.Rect(10, 20, 40, 60)}, captured); diff != "" {
		t.Fatalf("capture rect mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hide", "capture", "restore"}, events); diff != "" {
		t.Fatalf("event order mismatch (-want +got):\n%s", diff)
	}
}

func TestScreenshotBackendCapturesDevicePixels(t *testing.T) {
	b := NewScreenshotBackend(func(int) float64 { return 2 }, nil)
	var captured []image.Rectangle
	stubScreenshot(b, []image.Rectangle{image.Rect(0, 0, 1440, 900), image.Rect(1440, 0, 2720, 800)}, &captured)
	var grabs []pixelGrab
	stubPixels(b, &grabs)
	p := newTestPipeline(b, AllowAll{}, nil)

	tests := []struct {
		name   string
		target Target
		want   pixelGrab
	}{
		{"full screen", FullScreen(), pixelGrab{0, geometry.Rect{W: 1440, H: 900}, 2880, 1800}},
		{"area on secondary", Area(geometry.Rect{X: 1500, Y: 100, W: 100, H: 50}), pixelGrab{1, geometry.Rect{X: 60, Y: 100, W: 100, H: 50}, 200, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grabs = nil
			o := <-p.Run(context.Background(), tt.target)
			if o.Err != nil {
				t.Fatalf("Run failed: %v", o.Err)
			}
			px := o.Request.Pixel.ImageRect()
			if o.Bitmap.Width() != px.Dx() || o.Bitmap.Height() != px.Dy() {
				t.Fatalf("bitmap %dx%d does not match request pixels %v", o.Bitmap.Width(), o.Bitmap.Height(), o.Request.Pixel)
			}
			if diff := cmp.Diff([]pixelGrab{tt.want}, grabs, cmp.AllowUnexported(pixelGrab{})); diff != "" {
				t.Fatalf("native grab mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if len(captured) != 0 {
		t.Fatalf("point capture must not be used when native capture exists, got %v", captured)
	}
}

func TestScreenshotBackendRejectsPointSizedImage(t *testing.T) {
	tests := []struct {
		scale float64
		ok    bool
	}{
		{1, true},
		{2, false},
	}
	for _, tt := range tests {
		b := NewScreenshotBackend(func(int) float64 { return tt.scale }, nil)
		var captured []image.Rectangle
		stubScreenshot(b, []image.Rectangle{image.Rect(0, 0, 1440, 900)}, &captured)
		p := newTestPipeline(b, AllowAll{}, nil)

		o := <-p.Run(context.Background(), FullScreen())
		if tt.ok {
			if o.Err != nil {
				t.Fatalf("scale %g: Run failed: %v", tt.scale, o.Err)
			}
			continue
		}
		if KindOf(o.Err) != KindCaptureFailed {
			t.Fatalf("scale %g: expected capture failed for a point-sized image, got %v", tt.scale, o.Err)
		}
	}
}

func TestScreenshotBackendWrapsErrors(t *testing.T) {
	b := NewScreenshotBackend(nil, nil)
	b.capturePixels = nil
	b.captureRect = func(image.Rectangle) (*image.RGBA, error) { return nil, errors.New("cg failure") }

	_, err := b.Capture(context.Background(), Request{Screen: geometry.Rect{W: 1, H: 1}})
	if KindOf(err) != KindCaptureFailed {
		t.Fatalf("expected capture failed, got %v", err)
	}
}

func TestLegacyBackend(t *testing.T) {
	b := NewLegacyBackend(nil)
	b.grab = func(context.Context) (image.Image, error) {
		return image.NewNRGBA(image.Rect(5, 5, 25, 15)), nil
	}
	if caps := b.Capabilities(); caps != (Capabilities{}) {
		t.Fatalf("legacy backend must report no capabilities, got %+v", caps)
	}

	if _, err := b.Capture(context.Background(), Request{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported for area request, got %v", err)
	}
	bmp, err := b.Capture(context.Background(), Request{Full: true})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if bmp.Image.Bounds() != image.Rect(0, 0, 20, 10) {
		t.Fatalf("expected bitmap anchored at origin, got %v", bmp.Image.Bounds())
	}
}

func TestBitmapPNGIsDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	bmp := NewBitmap(img)

	a, err := bmp.PNG()
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}
	b, _ := bmp.PNG()
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical bytes for identical pixels")
	}
	if !bytes.HasPrefix(a, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("expected PNG signature")
	}

	var nilBitmap *Bitmap
	if _, err := nilBitmap.PNG(); KindOf(err) != KindIO {
		t.Fatalf("expected io error for nil bitmap, got %v", err)
	}
}
