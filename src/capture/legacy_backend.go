package capture

import (
	"context"
	"image"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"

	"snipper/src/geometry"
)

// LegacyBackend is the fallback for systems without the modern capture path.
// Full screen only, synchronous, no permission preflight, no self-exclusion.
type LegacyBackend struct {
	Scale func(i int) float64

	grab          func(ctx context.Context) (image.Image, error)
	numDisplays   func() int
	displayBounds func(i int) image.Rectangle
}

func NewLegacyBackend(scale func(int) float64) *LegacyBackend {
	return &LegacyBackend{
		Scale:         scale,
		grab:          grabMainDisplay,
		numDisplays:   screenshot.NumActiveDisplays,
		displayBounds: screenshot.GetDisplayBounds,
	}
}

func (b *LegacyBackend) Name() string { return "legacy" }

func (b *LegacyBackend) Capabilities() Capabilities { return Capabilities{} }

func (b *LegacyBackend) Displays() ([]geometry.Display, error) {
	return enumerateDisplays(b.numDisplays, b.displayBounds, b.Scale), nil
}

func (b *LegacyBackend) Capture(ctx context.Context, req Request) (*Bitmap, error) {
	if !req.Full {
		return nil, NewError(KindUnsupported, b.Name()+" area capture", nil)
	}
	img, err := b.grab(ctx)
	if err != nil {
		return nil, NewError(KindCaptureFailed, b.Name(), errors.Wrap(err, "grab main display"))
	}
	return NewBitmap(img), nil
}
