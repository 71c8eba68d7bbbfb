package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point is a location in some coordinate space. The space is implied by the caller.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle. Use Standardize before reporting it anywhere.
type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

// RectFromPoints returns the bounding box of a and b.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// Standardize moves the origin to the minimum corner so W and H are non-negative.
func (r Rect) Standardize() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Empty reports whether r has zero area. The zero Rect is the "no selection" sentinel.
func (r Rect) Empty() bool {
	r = r.Standardize()
	return r.W == 0 || r.H == 0
}

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	r, o = r.Standardize(), o.Standardize()
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest Rect containing r and o. Empty inputs are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o.Standardize()
	}
	if o.Empty() {
		return r.Standardize()
	}
	r, o = r.Standardize(), o.Standardize()
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.MaxX(), o.MaxX())
	y1 := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Contains(p Point) bool {
	r = r.Standardize()
	return p.X >= r.X && p.X < r.MaxX() && p.Y >= r.Y && p.Y < r.MaxY()
}

func (r Rect) Area() float64 {
	r = r.Standardize()
	return r.W * r.H
}

// ImageRect rounds r outward to whole units.
func (r Rect) ImageRect() image.Rectangle {
	r = r.Standardize()
	return image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.MaxX())),
		int(math.Ceil(r.MaxY())),
	)
}

// FromImageRect converts an integer rectangle.
func FromImageRect(r image.Rectangle) Rect {
	return Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), W: float64(r.Dx()), H: float64(r.Dy())}
}

func (r Rect) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", r.X, r.Y, r.W, r.H)
}
