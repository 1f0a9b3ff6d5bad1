// Package frame defines the fixed pixel layout exchanged through the shared region.
package frame

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultChannels = 3
)

var ErrInvalidGeometry = errors.New("invalid frame geometry")

// Geometry is the agreed frame shape. Both sides of the transport must use the same one.
type Geometry struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
}

func DefaultGeometry() Geometry {
	return Geometry{Width: DefaultWidth, Height: DefaultHeight, Channels: DefaultChannels}
}

// Size returns the number of bytes one frame occupies.
func (g Geometry) Size() int {
	return g.Width * g.Height * g.Channels
}

func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.Channels <= 0 {
		return errors.Wrapf(ErrInvalidGeometry, "%v", g)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%d", g.Width, g.Height, g.Channels)
}

// Frame is one image in row-major order, Channels bytes per pixel.
// For three channels the byte order is BGR.
type Frame struct {
	Geometry
	Pix      []byte
	Captured time.Time
}

// New allocates a zeroed frame.
func New(g Geometry) *Frame {
	return &Frame{Geometry: g, Pix: make([]byte, g.Size())}
}

// FromBytes wraps buf without copying. buf must hold exactly g.Size() bytes.
func FromBytes(g Geometry, buf []byte) (*Frame, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(buf) != g.Size() {
		return nil, errors.Errorf("frame buffer is %d bytes, geometry %v needs %d", len(buf), g, g.Size())
	}
	return &Frame{Geometry: g, Pix: buf}, nil
}

// Shape returns (height, width, channels).
func (f *Frame) Shape() (int, int, int) {
	return f.Height, f.Width, f.Channels
}

func (f *Frame) offset(y, x, c int) int {
	return (y*f.Width+x)*f.Channels + c
}

// At returns channel c of the pixel at row y, column x.
func (f *Frame) At(y, x, c int) byte {
	return f.Pix[f.offset(y, x, c)]
}

func (f *Frame) Set(y, x, c int, v byte) {
	f.Pix[f.offset(y, x, c)] = v
}

// Fill sets every element to v.
func (f *Frame) Fill(v byte) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Geometry: f.Geometry, Pix: pix, Captured: f.Captured}
}
