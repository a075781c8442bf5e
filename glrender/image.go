package glrender

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/dimview/dataset"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// ScatterRenderer draws the first two coordinates of embedded points as colored
// disks on a dark background, with an optional caption in the top left corner.
type ScatterRenderer struct {
	conv   func(dataset.Value) color.Color
	radius int
	face   font.Face
}

// NewScatterRenderer returns a renderer drawing points as disks of the given pixel radius.
// A nil label->color conversion draws every point white.
func NewScatterRenderer(radius int, conversion func(dataset.Value) color.Color) (*ScatterRenderer, error) {
	if radius < 0 {
		return nil, errors.New("negative point radius")
	}
	if conversion == nil {
		conversion = func(dataset.Value) color.Color { return color.White }
	}
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	sr := &ScatterRenderer{
		conv:   conversion,
		radius: radius,
		face:   truetype.NewFace(ttf, &truetype.Options{Size: 14, DPI: 72, Hinting: font.HintingFull}),
	}
	return sr, nil
}

// Render draws points into img, fitting their bounding box inside the image with a margin.
// Points with a single coordinate are drawn on the horizontal center line.
func (sr *ScatterRenderer) Render(img draw.Image, points [][]float64, labels []dataset.Value, caption string) error {
	if labels != nil && len(labels) != len(points) {
		return errors.New("labels and points length mismatch")
	}
	imgBB := img.Bounds()
	draw.Draw(img, imgBB, image.NewUniform(color.RGBA{R: 16, G: 16, B: 24, A: 255}), image.Point{}, draw.Src)
	if len(points) > 0 {
		bb := pointBounds(points)
		sz := bb.Size()
		w, h := float32(imgBB.Dx()), float32(imgBB.Dy())
		margin := float32(sr.radius) + 0.05*min(w, h)
		// Keep aspect ratio by using the same scale on both axes.
		scale := min((w-2*margin)/max(sz.X, 1e-12), (h-2*margin)/max(sz.Y, 1e-12))
		center := bb.Center()
		for i, p := range points {
			v := point2(p)
			px := int(w/2+(v.X-center.X)*scale) + imgBB.Min.X
			py := int(h/2-(v.Y-center.Y)*scale) + imgBB.Min.Y // Image Y axis points down.
			c := color.Color(color.White)
			if labels != nil {
				c = sr.conv(labels[i])
			}
			sr.disk(img, px, py, c)
		}
	}
	if caption != "" {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: sr.face,
			Dot:  fixed.P(imgBB.Min.X+8, imgBB.Min.Y+8+sr.face.Metrics().Ascent.Ceil()),
		}
		d.DrawString(caption)
	}
	return nil
}

func (sr *ScatterRenderer) disk(img draw.Image, cx, cy int, c color.Color) {
	r := sr.radius
	bb := img.Bounds()
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy > r*r || !(image.Point{X: x, Y: y}).In(bb) {
				continue
			}
			img.Set(x, y, c)
		}
	}
}

func point2(p []float64) ms2.Vec {
	var v ms2.Vec
	if len(p) > 0 {
		v.X = float32(p[0])
	}
	if len(p) > 1 {
		v.Y = float32(p[1])
	}
	return v
}

func pointBounds(points [][]float64) ms2.Box {
	first := point2(points[0])
	bb := ms2.Box{Min: first, Max: first}
	for _, p := range points[1:] {
		bb = bb.IncludePoint(point2(p))
	}
	return bb
}
