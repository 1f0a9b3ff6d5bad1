// Package cv captures and renders frames with OpenCV.
package cv

import (
	"image"
	"strconv"
	"time"

	"github.com/abihf/sharedframe"
	"github.com/abihf/sharedframe/capture"
	"github.com/abihf/sharedframe/frame"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Camera is a capture.Source backed by gocv.VideoCapture. It always delivers BGR
// frames at the geometry it was opened with.
type Camera struct {
	capture *gocv.VideoCapture
	geom    frame.Geometry
	img     gocv.Mat
	resized gocv.Mat
}

var _ capture.Source = (*Camera)(nil)

// Open acquires device, a numeric camera index or a path/URL understood by OpenCV.
func Open(device string, width, height int) (*Camera, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, errors.Wrapf(capture.ErrDeviceUnavailable, "%s: %v", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(capture.ErrDeviceUnavailable, "%s", device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &Camera{
		capture: vc,
		geom:    frame.Geometry{Width: width, Height: height, Channels: 3},
		img:     gocv.NewMat(),
		resized: gocv.NewMat(),
	}, nil
}

func (c *Camera) ReadFrame() (*frame.Frame, error) {
	if ok := c.capture.Read(&c.img); !ok || c.img.Empty() {
		return nil, capture.ErrNoFrame
	}

	src := c.img
	if src.Cols() != c.geom.Width || src.Rows() != c.geom.Height {
		gocv.Resize(c.img, &c.resized, image.Pt(c.geom.Width, c.geom.Height), 0, 0, gocv.InterpolationLinear)
		src = c.resized
	}

	f, err := frame.FromBytes(c.geom, src.ToBytes())
	if err != nil {
		return nil, errors.Wrap(capture.ErrNoFrame, err.Error())
	}
	f.Captured = time.Now()
	return f, nil
}

func (c *Camera) Close() error {
	c.img.Close()
	c.resized.Close()
	return c.capture.Close()
}

func matType(channels int) (gocv.MatType, error) {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1, nil
	case 3:
		return gocv.MatTypeCV8UC3, nil
	case 4:
		return gocv.MatTypeCV8UC4, nil
	}
	return 0, errors.Errorf("unsupported channel count %d", channels)
}

// ToMat copies f into a new Mat. The caller closes it.
func ToMat(f *frame.Frame) (gocv.Mat, error) {
	t, err := matType(f.Channels)
	if err != nil {
		return gocv.Mat{}, err
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, t, f.Pix)
}

// Gray converts a BGR frame to a single channel frame.
func Gray(f *frame.Frame) (*frame.Frame, error) {
	src, err := ToMat(f)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)

	return frame.FromBytes(frame.Geometry{Width: f.Width, Height: f.Height, Channels: 1}, dst.ToBytes())
}

// Window shows frames on screen.
type Window struct {
	window *gocv.Window
}

func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

// Show displays f and reports whether the user asked to quit with 'q'.
func (w *Window) Show(f *frame.Frame) (bool, error) {
	mat, err := ToMat(f)
	if err != nil {
		return false, err
	}
	defer mat.Close()

	w.window.IMShow(mat)
	return w.window.WaitKey(1)&0xff == 'q', nil
}

func (w *Window) Close() error {
	return w.window.Close()
}

// Render wraps next so every frame is shown in w before next sees it. A nil next
// only renders. Pressing 'q' stops the consumer loop.
func Render(w *Window, next sharedframe.Handler) sharedframe.Handler {
	return func(f *frame.Frame) (bool, error) {
		quit, err := w.Show(f)
		if err != nil {
			return false, err
		}
		if quit {
			return false, nil
		}
		if next == nil {
			return true, nil
		}
		return next(f)
	}
}
