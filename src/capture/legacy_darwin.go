//go:build darwin

package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// grabMainDisplay shells out to screencapture, which predates the CoreGraphics
// permission APIs. -x silences it, -m limits it to the main display.
func grabMainDisplay(ctx context.Context) (image.Image, error) {
	f, err := os.CreateTemp("", "snipper-*.png")
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-m", "-t", "png", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "screencapture: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read screencapture output")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode screencapture output")
	}
	return img, nil
}
