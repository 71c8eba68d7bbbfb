//go:build darwin && cgo

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework AppKit -framework CoreGraphics
#import <AppKit/AppKit.h>

// x, y, w, h are global points with the origin at the top-left of the main display.
static int snipperPlaceWindow(uintptr_t handle, double x, double y, double w, double h) {
	NSWindow *win = (__bridge NSWindow *)(void *)handle;
	NSArray<NSScreen *> *screens = [NSScreen screens];
	if (win == nil || screens.count == 0) return 0;
	CGFloat mainHeight = screens[0].frame.size.height;
	[win setLevel:NSScreenSaverWindowLevel];
	[win setCollectionBehavior:NSWindowCollectionBehaviorCanJoinAllSpaces |
	                           NSWindowCollectionBehaviorStationary |
	                           NSWindowCollectionBehaviorFullScreenAuxiliary];
	[win setFrame:NSMakeRect(x, mainHeight - (y + h), w, h) display:YES];
	[win makeKeyAndOrderFront:nil];
	return 1;
}

static int snipperCursor(double *x, double *y) {
	CGEventRef ev = CGEventCreate(NULL);
	if (ev == NULL) return 0;
	CGPoint p = CGEventGetLocation(ev);
	CFRelease(ev);
	*x = p.x;
	*y = p.y;
	return 1;
}

static void *snipperActivate(void) {
	NSRunningApplication *prev = [[NSWorkspace sharedWorkspace] frontmostApplication];
	[NSApp activateIgnoringOtherApps:YES];
	if (prev == nil || [prev isEqual:[NSRunningApplication currentApplication]]) return NULL;
	return (__bridge_retained void *)prev;
}

static void snipperRestoreActive(void *handle) {
	NSRunningApplication *prev = (__bridge_transfer NSRunningApplication *)handle;
	[prev activateWithOptions:0];
}
*/
import "C"

import (
	"unsafe"

	"snipper/src/geometry"
)

// PlaceWindow moves the NSWindow handle over frame (global top-left points), above the
// menu bar and Dock. Main thread only.
func PlaceWindow(handle uintptr, frame geometry.Rect) bool {
	if handle == 0 {
		return false
	}
	return C.snipperPlaceWindow(C.uintptr_t(handle),
		C.double(frame.X), C.double(frame.Y), C.double(frame.W), C.double(frame.H)) == 1
}

// CursorLocation is the pointer position in global top-left points.
func CursorLocation() (geometry.Point, bool) {
	var x, y C.double
	if C.snipperCursor(&x, &y) == 0 {
		return geometry.Point{}, false
	}
	return geometry.Point{X: float64(x), Y: float64(y)}, true
}

// ActivateApp brings this app to the front. The returned function reactivates the app
// that was frontmost before. Main thread only, for both.
func ActivateApp() (restore func()) {
	prev := C.snipperActivate()
	if prev == nil {
		return func() {}
	}
	return func() { C.snipperRestoreActive(unsafe.Pointer(prev)) }
}
