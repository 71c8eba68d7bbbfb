package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"snipper/src/capture"
)

const timestampLayout = "2006-01-02_15-04-05"

// maxCollisions bounds the _N suffix search within one second.
const maxCollisions = 1000

// Dir writes screenshots into a directory resolved at write time, so a changed
// save path applies to the next capture.
type Dir struct {
	Path func() string
	Now  func() time.Time
}

func NewDir(path func() string) *Dir {
	return &Dir{Path: path, Now: time.Now}
}

// Filename returns the base name for a capture taken at t.
func Filename(t time.Time) string {
	return "Screenshot_" + t.UTC().Format(timestampLayout) + ".png"
}

func (d *Dir) Write(png []byte) (string, error) {
	dir := d.Path()
	if dir == "" {
		return "", capture.NewError(capture.KindIO, "resolve save directory", fmt.Errorf("save path not set"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", capture.NewError(capture.KindIO, "create save directory", err)
	}

	base := Filename(d.Now())
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for i := 0; i < maxCollisions; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", capture.NewError(capture.KindIO, "create screenshot", err)
		}
		if _, err := f.Write(png); err != nil {
			f.Close()
			os.Remove(path)
			return "", capture.NewError(capture.KindIO, "write screenshot", err)
		}
		if err := f.Close(); err != nil {
			return "", capture.NewError(capture.KindIO, "close screenshot", err)
		}
		return path, nil
	}
	return "", capture.NewError(capture.KindIO, "name screenshot", fmt.Errorf("too many captures named %s", base))
}
