package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu sync.Mutex
	initErr error
	once    sync.Once
)

// Init prepares the system pasteboard. It is safe to call more than once.
func Init() error {
	once.Do(func() { initErr = clipboard.Init() })
	return initErr
}

// System writes to the system pasteboard.
type System struct{}

// WriteImage replaces the pasteboard contents with one PNG image.
func (System) WriteImage(png []byte) error {
	if err := Init(); err != nil {
		return fmt.Errorf("clipboard unavailable: %w", err)
	}
	if len(png) == 0 {
		return fmt.Errorf("clipboard: empty image")
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

// WriteText replaces the pasteboard contents with text.
func (System) WriteText(text string) error {
	if err := Init(); err != nil {
		return fmt.Errorf("clipboard unavailable: %w", err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
