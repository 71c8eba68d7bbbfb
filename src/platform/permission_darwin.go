//go:build darwin && cgo

package platform

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static int snipperPreflight(void) {
	return CGPreflightScreenCaptureAccess() ? 1 : 0;
}

static void snipperRequest(void) {
	CGRequestScreenCaptureAccess();
}

// Same order as kbinani/screenshot: main display first, then the rest in active-list order.
static CGDirectDisplayID snipperDisplayAt(int index) {
	CGDirectDisplayID main = CGMainDisplayID();
	if (index == 0) return main;
	CGDirectDisplayID ids[32];
	uint32_t count = 0;
	if (CGGetActiveDisplayList(32, ids, &count) != kCGErrorSuccess) return 0;
	int n = 0;
	for (uint32_t i = 0; i < count; i++) {
		if (ids[i] == main) continue;
		if (++n == index) return ids[i];
	}
	return 0;
}

static double snipperDisplayScale(int index) {
	CGDirectDisplayID id = snipperDisplayAt(index);
	if (id == 0) return 1.0;
	CGDisplayModeRef mode = CGDisplayCopyDisplayMode(id);
	if (mode == NULL) return 1.0;
	size_t px = CGDisplayModeGetPixelWidth(mode);
	size_t pt = CGDisplayModeGetWidth(mode);
	CGDisplayModeRelease(mode);
	if (pt == 0) return 1.0;
	return (double)px / (double)pt;
}
*/
import "C"

func preflightScreenCapture() bool { return C.snipperPreflight() == 1 }

func requestScreenCapture() { C.snipperRequest() }

func displayScale(i int) float64 { return float64(C.snipperDisplayScale(C.int(i))) }
