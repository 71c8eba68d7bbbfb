package settings

import (
	"fmt"
	"strings"
)

// Mode is the persisted capture mode.
type Mode string

const (
	ModeFull Mode = "full"
	ModeArea Mode = "area"
)

// ParseMode maps user input to a Mode. Unknown values fall back to ModeFull.
func ParseMode(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ModeArea), "selection", "region", "rect", "rectangle":
		return ModeArea
	default:
		return ModeFull
	}
}

func (m Mode) Valid() bool { return m == ModeFull || m == ModeArea }

// Key identifies a setting in change notifications.
type Key string

const (
	KeyCaptureMode Key = "captureMode"
	KeySavePath    Key = "savePath"
)

// Change is published whenever a setting value changes.
type Change struct {
	Key    Key
	Mode   Mode
	Path   string
	Extern bool // picked up from an edit made outside this process
}

func (c Change) String() string {
	if c.Key == KeyCaptureMode {
		return fmt.Sprintf("%s=%s", c.Key, c.Mode)
	}
	return fmt.Sprintf("%s=%s", c.Key, c.Path)
}

// Store is the process-wide user settings. Components never read settings any other way.
type Store interface {
	CaptureMode() Mode
	SetCaptureMode(Mode) error
	SavePath() string
	SetSavePath(string) error
	// Subscribe returns a channel of changes and a func that ends the subscription.
	Subscribe() (<-chan Change, func())
}
