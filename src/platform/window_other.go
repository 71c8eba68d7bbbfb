//go:build !darwin || !cgo

package platform

import "snipper/src/geometry"

func PlaceWindow(uintptr, geometry.Rect) bool { return false }

func CursorLocation() (geometry.Point, bool) { return geometry.Point{}, false }

func ActivateApp() (restore func()) { return func() {} }
