package frame

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometrySize(t *testing.T) {
	assert.Equal(t, 2764800, DefaultGeometry().Size())
	assert.Equal(t, 300, Geometry{Width: 10, Height: 10, Channels: 3}.Size())
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
		ok   bool
	}{
		{"default", DefaultGeometry(), true},
		{"gray", Geometry{Width: 4, Height: 2, Channels: 1}, true},
		{"zero width", Geometry{Width: 0, Height: 2, Channels: 3}, false},
		{"negative height", Geometry{Width: 4, Height: -1, Channels: 3}, false},
		{"no channels", Geometry{Width: 4, Height: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.g.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidGeometry))
			}
		})
	}
}

func TestFromBytesRejectsWrongLength(t *testing.T) {
	g := Geometry{Width: 2, Height: 2, Channels: 3}
	_, err := FromBytes(g, make([]byte, 11))
	assert.Error(t, err)

	f, err := FromBytes(g, make([]byte, 12))
	require.NoError(t, err)
	h, w, c := f.Shape()
	assert.Equal(t, []int{2, 2, 3}, []int{h, w, c})
}

func TestAtIsRowMajor(t *testing.T) {
	g := Geometry{Width: 3, Height: 2, Channels: 3}
	f := New(g)
	for i := range f.Pix {
		f.Pix[i] = byte(i)
	}
	// row 1, column 2, channel 1 => ((1*3)+2)*3+1 = 16
	assert.Equal(t, byte(16), f.At(1, 2, 1))
	f.Set(0, 1, 2, 0xaa)
	assert.Equal(t, byte(0xaa), f.Pix[5])
}

func TestCloneOwnsItsBytes(t *testing.T) {
	f := New(Geometry{Width: 2, Height: 1, Channels: 1})
	c := f.Clone()
	c.Pix[0] = 9
	assert.Equal(t, byte(0), f.Pix[0])
}

func TestResize(t *testing.T) {
	src := New(Geometry{Width: 8, Height: 6, Channels: 3})
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			src.Set(y, x, 0, 10) // B
			src.Set(y, x, 1, 20) // G
			src.Set(y, x, 2, 30) // R
		}
	}

	dst, err := src.Resize(Geometry{Width: 4, Height: 3, Channels: 3})
	require.NoError(t, err)
	assert.Equal(t, 4*3*3, len(dst.Pix))
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			assert.Equal(t, byte(10), dst.At(y, x, 0))
			assert.Equal(t, byte(20), dst.At(y, x, 1))
			assert.Equal(t, byte(30), dst.At(y, x, 2))
		}
	}
}

func TestResizeSameGeometryIsNoop(t *testing.T) {
	src := New(Geometry{Width: 2, Height: 2, Channels: 3})
	dst, err := src.Resize(src.Geometry)
	require.NoError(t, err)
	assert.Same(t, src, dst)
}

func TestResizeRejectsChannelChange(t *testing.T) {
	src := New(Geometry{Width: 2, Height: 2, Channels: 3})
	_, err := src.Resize(Geometry{Width: 1, Height: 1, Channels: 1})
	assert.Error(t, err)
}
