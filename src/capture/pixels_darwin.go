//go:build darwin && cgo

package capture

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework Foundation -weak_framework ScreenCaptureKit
#include <CoreGraphics/CoreGraphics.h>
#if __ENVIRONMENT_MAC_OS_X_VERSION_MIN_REQUIRED__ > MAC_OS_VERSION_14_4
#include <ScreenCaptureKit/ScreenCaptureKit.h>
#endif

// Index 0 is the main display, then the rest in active-list order.
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

static CGImageRef snipperGrab(CGDirectDisplayID id, CGRect local, size_t pw, size_t ph) {
#if __ENVIRONMENT_MAC_OS_X_VERSION_MIN_REQUIRED__ > MAC_OS_VERSION_14_4
	dispatch_semaphore_t done = dispatch_semaphore_create(0);
	__block CGImageRef result = NULL;
	[SCShareableContent getShareableContentWithCompletionHandler:^(SCShareableContent *content, NSError *error) {
		if (error) {
			dispatch_semaphore_signal(done);
			return;
		}
		SCDisplay *target = nil;
		for (SCDisplay *d in content.displays) {
			if (d.displayID == id) {
				target = d;
				break;
			}
		}
		if (!target) {
			dispatch_semaphore_signal(done);
			return;
		}
		SCContentFilter *filter = [[SCContentFilter alloc] initWithDisplay:target excludingWindows:@[]];
		SCStreamConfiguration *config = [[SCStreamConfiguration alloc] init];
		config.sourceRect = local;
		config.width = pw;
		config.height = ph;
		config.showsCursor = NO;
		[SCScreenshotManager captureImageWithFilter:filter
		                              configuration:config
		                          completionHandler:^(CGImageRef img, NSError *err) {
			if (!err && img) result = CGImageRetain(img);
			dispatch_semaphore_signal(done);
		}];
	}];
	dispatch_semaphore_wait(done, DISPATCH_TIME_FOREVER);
	return result;
#else
	return CGDisplayCreateImageForRect(id, local);
#endif
}

// local is display-local in points; the result is drawn into a pw x ph RGBA buffer.
static int snipperCapturePixels(int index, double x, double y, double w, double h,
                                void *dst, size_t pw, size_t ph, size_t stride) {
	CGDirectDisplayID id = snipperDisplayAt(index);
	if (id == 0) return 1;
	CGImageRef img = snipperGrab(id, CGRectMake(x, y, w, h), pw, ph);
	if (img == NULL) return 2;
	CGColorSpaceRef cs = CGColorSpaceCreateWithName(kCGColorSpaceSRGB);
	CGContextRef ctx = CGBitmapContextCreate(dst, pw, ph, 8, stride, cs,
	                                         kCGImageAlphaPremultipliedLast | kCGBitmapByteOrder32Big);
	CGColorSpaceRelease(cs);
	if (ctx == NULL) {
		CGImageRelease(img);
		return 3;
	}
	CGContextSetInterpolationQuality(ctx, kCGInterpolationNone);
	CGContextDrawImage(ctx, CGRectMake(0, 0, pw, ph), img);
	CGContextRelease(ctx);
	CGImageRelease(img);
	return 0;
}
*/
import "C"

import (
	"image"
	"unsafe"

	"github.com/pkg/errors"

	"snipper/src/geometry"
)

func nativeCapturer() pixelCapturer { return capturePixels }

// capturePixels grabs local (display-local points) from display index at device resolution.
func capturePixels(index int, local geometry.Rect, pw, ph int) (*image.RGBA, error) {
	if pw <= 0 || ph <= 0 {
		return nil, errors.Errorf("empty pixel size %dx%d", pw, ph)
	}
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	rc := C.snipperCapturePixels(C.int(index),
		C.double(local.X), C.double(local.Y), C.double(local.W), C.double(local.H),
		unsafe.Pointer(&img.Pix[0]), C.size_t(pw), C.size_t(ph), C.size_t(img.Stride))
	switch rc {
	case 0:
		return img, nil
	case 1:
		return nil, errors.Errorf("display %d is not active", index)
	case 2:
		return nil, errors.Errorf("display %d returned no image", index)
	default:
		return nil, errors.New("cannot create bitmap context")
	}
}
