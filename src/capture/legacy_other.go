//go:build !darwin

package capture

import (
	"context"
	"image"

	"github.com/kbinani/screenshot"
)

func grabMainDisplay(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return screenshot.CaptureDisplay(0)
}
