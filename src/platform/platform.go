// Package platform answers host questions the capture pipeline needs: screen
// recording permission, display scale and whether the modern capture path exists.
package platform

import (
	"log"
	"strings"

	"github.com/hashicorp/go-version"
)

// modernCaptureMinimum is the first macOS release with ScreenCaptureKit.
var modernCaptureMinimum = version.Must(version.NewVersion("12.3"))

// ScreenRecording is the system screen-recording permission.
type ScreenRecording struct{}

func (ScreenRecording) Preflight() bool { return preflightScreenCapture() }

func (ScreenRecording) Request() { requestScreenCapture() }

// DisplayScale returns the backing scale factor of active display i, or 1 when unknown.
func DisplayScale(i int) float64 {
	s := displayScale(i)
	if s <= 0 {
		return 1
	}
	return s
}

// SupportsModernCapture reports whether the modern backend should be used.
// An unknown OS version is assumed modern.
func SupportsModernCapture() bool {
	raw, err := OSVersion()
	if err != nil {
		log.Printf("platform: OS version unavailable, assuming modern capture: %v", err)
		return true
	}
	return modernCapture(raw)
}

func modernCapture(raw string) bool {
	v, err := version.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("platform: unparsable OS version %q, assuming modern capture", raw)
		return true
	}
	return v.GreaterThanOrEqual(modernCaptureMinimum)
}
