//go:build !darwin || !cgo

package platform

// Without CoreGraphics there is no permission gate and no HiDPI information.

func preflightScreenCapture() bool { return true }

func requestScreenCapture() {}

func displayScale(int) float64 { return 1 }
