//go:build !darwin || !cgo

package capture

// Elsewhere kbinani/screenshot already returns device pixels.
func nativeCapturer() pixelCapturer { return nil }
