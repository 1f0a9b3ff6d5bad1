package frame

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// picture adapts a Frame to draw.Image so x/image/draw can scale it.
type picture struct {
	f *Frame
}

func (p picture) ColorModel() color.Model {
	if p.f.Channels == 1 {
		return color.GrayModel
	}
	return color.RGBAModel
}

func (p picture) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.f.Width, p.f.Height)
}

func (p picture) At(x, y int) color.Color {
	i := p.f.offset(y, x, 0)
	switch p.f.Channels {
	case 1:
		return color.Gray{Y: p.f.Pix[i]}
	case 3:
		return color.RGBA{R: p.f.Pix[i+2], G: p.f.Pix[i+1], B: p.f.Pix[i], A: 0xff}
	default:
		return color.RGBA{R: p.f.Pix[i+2], G: p.f.Pix[i+1], B: p.f.Pix[i], A: p.f.Pix[i+3]}
	}
}

func (p picture) Set(x, y int, c color.Color) {
	i := p.f.offset(y, x, 0)
	if p.f.Channels == 1 {
		p.f.Pix[i] = color.GrayModel.Convert(c).(color.Gray).Y
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	p.f.Pix[i], p.f.Pix[i+1], p.f.Pix[i+2] = rgba.B, rgba.G, rgba.R
	if p.f.Channels == 4 {
		p.f.Pix[i+3] = rgba.A
	}
}

func supported(channels int) bool {
	return channels == 1 || channels == 3 || channels == 4
}

// Image exposes the frame as an image.Image backed by the same bytes.
func (f *Frame) Image() (draw.Image, error) {
	if !supported(f.Channels) {
		return nil, errors.Errorf("no image view for %d channels", f.Channels)
	}
	return picture{f}, nil
}

// Resize returns f scaled to the width and height of g. A frame that already has
// geometry g is returned as is.
func (f *Frame) Resize(g Geometry) (*Frame, error) {
	if f.Geometry == g {
		return f, nil
	}
	if f.Channels != g.Channels {
		return nil, errors.Errorf("can not convert %d channels to %d", f.Channels, g.Channels)
	}
	if !supported(g.Channels) {
		return nil, errors.Errorf("can not resize %d channel frames", g.Channels)
	}
	dst := New(g)
	dst.Captured = f.Captured
	draw.BiLinear.Scale(picture{dst}, picture{dst}.Bounds(), picture{f}, picture{f}.Bounds(), draw.Src, nil)
	return dst, nil
}
