package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"snipper/src/geometry"
)

// Style controls how the overlay paints feedback.
type Style struct {
	Dim          color.RGBA
	Border       color.RGBA
	BorderWidth  int
	CrosshairArm int
	Crosshair    color.RGBA
	// CrosshairCore is drawn over the centre of each arm for contrast on light backgrounds.
	CrosshairCore color.RGBA
}

// DefaultStyle dims to 35% black with a 2pt white border and a 10pt crosshair.
var DefaultStyle = Style{
	Dim:           color.RGBA{A: 89},
	Border:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
	BorderWidth:   2,
	CrosshairArm:  10,
	Crosshair:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
	CrosshairCore: color.RGBA{A: 128},
}

// Render paints one overlay frame into dst. bg must already be sized to dst; a nil bg leaves
// the frame transparent under the dim. With sel nil the whole frame is dimmed; otherwise the
// selection interior is left clear and stroked. The crosshair is drawn at cursor either way.
func Render(dst *image.RGBA, bg image.Image, sel *geometry.Rect, cursor geometry.Point, st Style) {
	bounds := dst.Bounds()
	if bg != nil {
		draw.Draw(dst, bounds, bg, bg.Bounds().Min, draw.Src)
	} else {
		draw.Draw(dst, bounds, image.Transparent, image.Point{}, draw.Src)
	}

	dim := image.NewUniform(st.Dim)
	if sel == nil {
		draw.Draw(dst, bounds, dim, image.Point{}, draw.Over)
	} else {
		hole := sel.ImageRect().Intersect(bounds)
		if hole.Empty() {
			draw.Draw(dst, bounds, dim, image.Point{}, draw.Over)
		}
		// Dim the four bands around the hole.
		for _, band := range []image.Rectangle{
			image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, hole.Min.Y),
			image.Rect(bounds.Min.X, hole.Max.Y, bounds.Max.X, bounds.Max.Y),
			image.Rect(bounds.Min.X, hole.Min.Y, hole.Min.X, hole.Max.Y),
			image.Rect(hole.Max.X, hole.Min.Y, bounds.Max.X, hole.Max.Y),
		} {
			if !hole.Empty() && !band.Empty() {
				draw.Draw(dst, band, dim, image.Point{}, draw.Over)
			}
		}
		strokeRect(dst, sel.ImageRect(), st.BorderWidth, st.Border)
	}

	drawCrosshair(dst, cursor, st)
}

// strokeRect draws a border of width w just inside r.
func strokeRect(dst *image.RGBA, r image.Rectangle, w int, c color.RGBA) {
	if w <= 0 || r.Empty() {
		return
	}
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func drawCrosshair(dst *image.RGBA, p geometry.Point, st Style) {
	if st.CrosshairArm <= 0 {
		return
	}
	x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
	arm := st.CrosshairArm
	horizontal := image.Rect(x-arm, y-1, x+arm+1, y+2)
	vertical := image.Rect(x-1, y-arm, x+2, y+arm+1)
	outer := image.NewUniform(st.Crosshair)
	core := image.NewUniform(st.CrosshairCore)
	for _, r := range []image.Rectangle{horizontal, vertical} {
		draw.Draw(dst, r.Intersect(dst.Bounds()), outer, image.Point{}, draw.Over)
	}
	draw.Draw(dst, image.Rect(x-arm, y, x+arm+1, y+1).Intersect(dst.Bounds()), core, image.Point{}, draw.Over)
	draw.Draw(dst, image.Rect(x, y-arm, x+1, y+arm+1).Intersect(dst.Bounds()), core, image.Point{}, draw.Over)
}

// fitBackground scales a snapshot of union (often in device pixels) down to points and
// crops it to the part the surface covers.
func fitBackground(bg image.Image, union, covered geometry.Rect) image.Image {
	if bg == nil || union.Empty() || covered.Empty() {
		return nil
	}
	w, h := uint(math.Round(union.W)), uint(math.Round(union.H))
	b := bg.Bounds()
	if uint(b.Dx()) != w || uint(b.Dy()) != h {
		bg = resize.Resize(w, h, bg, resize.Bilinear)
	}
	crop := covered.Offset(-union.X, -union.Y).ImageRect()
	rgba, ok := bg.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.Draw(rgba, rgba.Bounds(), bg, bg.Bounds().Min, draw.Src)
	}
	return rgba.SubImage(crop.Add(rgba.Bounds().Min))
}
