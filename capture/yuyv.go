package capture

import (
	"image/color"

	"github.com/abihf/sharedframe/frame"
	"github.com/pkg/errors"
)

// DecodeYUYV converts a packed YUYV 4:2:2 image into a 3 channel BGR frame.
func DecodeYUYV(buf []byte, width, height int) (*frame.Frame, error) {
	if width%2 != 0 {
		return nil, errors.Errorf("YUYV width must be even, got %d", width)
	}
	if len(buf) < width*height*2 {
		return nil, errors.Wrapf(ErrNoFrame, "short YUYV frame: %d bytes for %dx%d", len(buf), width, height)
	}
	f := frame.New(frame.Geometry{Width: width, Height: height, Channels: 3})
	dst := f.Pix
	for i, j := 0, 0; i+3 < width*height*2; i, j = i+4, j+6 {
		y0, u, y1, v := buf[i], buf[i+1], buf[i+2], buf[i+3]
		r, g, b := color.YCbCrToRGB(y0, u, v)
		dst[j], dst[j+1], dst[j+2] = b, g, r
		r, g, b = color.YCbCrToRGB(y1, u, v)
		dst[j+3], dst[j+4], dst[j+5] = b, g, r
	}
	return f, nil
}
