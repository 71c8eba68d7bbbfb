package capture

import (
	"context"
	"log"
	"strings"

	"snipper/src/geometry"
)

// Capabilities describe what a backend can do. The pipeline branches on these,
// never on the backend's concrete type.
type Capabilities struct {
	Area        bool // can capture a sub-rectangle
	Preflight   bool // needs the screen-recording permission check
	ExcludeSelf bool // keeps the app's own windows out of the frame
	Async       bool // Capture may block for a while; the caller must not hold the UI thread
}

// Request is a resolved capture target.
type Request struct {
	Full    bool
	Display geometry.Display
	// Screen is in capture-convention points.
	Screen geometry.Rect
	// Pixel is relative to Display, in device pixels.
	Pixel geometry.Rect
}

// Backend produces bitmaps. Implementations must be safe to call from any goroutine.
type Backend interface {
	Name() string
	Capabilities() Capabilities
	Displays() ([]geometry.Display, error)
	Capture(ctx context.Context, req Request) (*Bitmap, error)
}

// Permission gates screen recording.
type Permission interface {
	Preflight() bool
	Request()
}

// AllowAll is a Permission that is always granted.
type AllowAll struct{}

func (AllowAll) Preflight() bool { return true }
func (AllowAll) Request()        {}

// Backend preferences accepted by SelectBackend.
const (
	PreferAuto   = "auto"
	PreferModern = "modern"
	PreferLegacy = "legacy"
)

// SelectBackend picks modern or legacy. Auto follows modernSupported; an unknown
// preference is treated as auto.
func SelectBackend(pref string, modernSupported bool, modern, legacy Backend) Backend {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case PreferModern:
		return modern
	case PreferLegacy:
		return legacy
	case PreferAuto, "":
	default:
		log.Printf("capture: unknown backend preference %q, using auto", pref)
	}
	if modernSupported {
		return modern
	}
	return legacy
}
