package geometry

// Origin names the corner a coordinate space grows from.
type Origin int

const (
	// TopLeft: y grows downward. Used by CoreGraphics capture and most toolkits.
	TopLeft Origin = iota
	// BottomLeft: y grows upward from the primary display's bottom edge (AppKit).
	BottomLeft
)

func (o Origin) String() string {
	if o == BottomLeft {
		return "bottom-left"
	}
	return "top-left"
}

// Display is a snapshot of one physical screen. Frame is in global screen points.
type Display struct {
	ID      int
	Frame   Rect
	Scale   float64
	Primary bool
}

func (d Display) scale() float64 {
	if d.Scale <= 0 {
		return 1
	}
	return d.Scale
}

// ToScreenRect translates a rect in view-local coordinates into global screen coordinates.
// viewOrigin is the view's origin inside its window, windowOrigin the window's origin on screen.
// An overlay window spanning several displays has windowOrigin at the union's minimum corner,
// which may be negative.
func ToScreenRect(local Rect, viewOrigin, windowOrigin Point) Rect {
	return local.Standardize().Offset(viewOrigin.X+windowOrigin.X, viewOrigin.Y+windowOrigin.Y)
}

// UnionFrame returns the bounding frame of all displays.
func UnionFrame(displays []Display) Rect {
	var u Rect
	for _, d := range displays {
		u = u.Union(d.Frame)
	}
	return u
}

// Mapper converts between screen space and a display's pixel space.
// Display frames are expressed in the UI convention.
type Mapper struct {
	Displays []Display
	UI       Origin
	Capture  Origin
}

// NewMapper returns a Mapper for displays. Conventions default to top-left on both sides.
func NewMapper(displays []Display) *Mapper {
	return &Mapper{Displays: displays}
}

// Primary returns the primary display, or the first one when none is flagged.
func (m *Mapper) Primary() (Display, bool) {
	for _, d := range m.Displays {
		if d.Primary {
			return d, true
		}
	}
	if len(m.Displays) > 0 {
		return m.Displays[0], true
	}
	return Display{}, false
}

// DisplayFor returns the display owning the largest part of r. With no owner it falls back to
// the primary display.
func (m *Mapper) DisplayFor(r Rect) (Display, bool) {
	var best Display
	bestArea := 0.0
	for _, d := range m.Displays {
		if a := d.Frame.Intersect(r).Area(); a > bestArea {
			best, bestArea = d, a
		}
	}
	if bestArea > 0 {
		return best, true
	}
	return m.Primary()
}

// flip mirrors r vertically across the primary display's height. It is its own inverse.
func (m *Mapper) flip(r Rect) Rect {
	if m.UI == m.Capture {
		return r
	}
	p, ok := m.Primary()
	if !ok {
		return r
	}
	h := p.Frame.MaxY() + p.Frame.Y
	r.Y = h - r.MaxY()
	return r
}

// ToCaptureSpace expresses a UI-convention screen rect in the capture convention.
func (m *Mapper) ToCaptureSpace(screen Rect) Rect {
	return m.flip(screen.Standardize())
}

// FromCaptureSpace is the inverse of ToCaptureSpace.
func (m *Mapper) FromCaptureSpace(r Rect) Rect {
	return m.flip(r.Standardize())
}

// ToPixelRect converts a screen rect (UI convention, points) into d's pixel space:
// flipped to the capture convention, made display-local, then scaled.
func (m *Mapper) ToPixelRect(screen Rect, d Display) Rect {
	r := m.ToCaptureSpace(screen)
	origin := m.ToCaptureSpace(d.Frame)
	s := d.scale()
	return Rect{
		X: (r.X - origin.X) * s,
		Y: (r.Y - origin.Y) * s,
		W: r.W * s,
		H: r.H * s,
	}
}

// FromPixelRect is the inverse of ToPixelRect.
func (m *Mapper) FromPixelRect(pixel Rect, d Display) Rect {
	pixel = pixel.Standardize()
	origin := m.ToCaptureSpace(d.Frame)
	s := d.scale()
	r := Rect{
		X: pixel.X/s + origin.X,
		Y: pixel.Y/s + origin.Y,
		W: pixel.W / s,
		H: pixel.H / s,
	}
	return m.FromCaptureSpace(r)
}
