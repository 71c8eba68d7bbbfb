package capture

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Bitmap is one captured frame in pixel space. It is handed to the sinks once and dropped.
type Bitmap struct {
	Image *image.RGBA
}

// NewBitmap copies img into an RGBA buffer anchored at (0,0) unless it already is one.
func NewBitmap(img image.Image) *Bitmap {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return &Bitmap{Image: rgba}
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return &Bitmap{Image: rgba}
}

func (b *Bitmap) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

func (b *Bitmap) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// PNG encodes the bitmap. The same pixels always produce the same bytes.
func (b *Bitmap) PNG() ([]byte, error) {
	if b == nil || b.Image == nil {
		return nil, NewError(KindIO, "encode png", ErrCaptureFailed)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, b.Image); err != nil {
		return nil, NewError(KindIO, "encode png", err)
	}
	return buf.Bytes(), nil
}
