package capture

import (
	"time"

	"github.com/abihf/sharedframe/frame"
	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

const pixelFormatYUYV webcam.PixelFormat = 0x56595559

// Webcam reads YUYV frames from a V4L2 device.
type Webcam struct {
	cam    *webcam.Webcam
	width  int
	height int
	// WaitTimeout is how long one read waits for the driver, in seconds.
	WaitTimeout uint32
}

// Open acquires device and asks for width x height. The driver may pick a nearby
// resolution; frames are delivered at whatever it chose.
func Open(device string, width, height int) (*Webcam, error) {
	cam, err := webcam.Open(device)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s: %v", device, err)
	}

	if _, ok := cam.GetSupportedFormats()[pixelFormatYUYV]; !ok {
		cam.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s does not support YUYV", device)
	}

	_, w, h, err := cam.SetImageFormat(pixelFormatYUYV, uint32(width), uint32(height))
	if err != nil {
		cam.Close()
		return nil, errors.Wrapf(ErrDeviceUnavailable, "%s: can not set image format: %v", device, err)
	}

	if err = cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, errors.Wrap(err, "Can not start streaming")
	}

	return &Webcam{cam: cam, width: int(w), height: int(h), WaitTimeout: 1}, nil
}

func (c *Webcam) ReadFrame() (*frame.Frame, error) {
	err := c.cam.WaitForFrame(c.WaitTimeout)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, errors.Wrap(ErrNoFrame, err.Error())
	default:
		return nil, errors.Wrap(err, "Frame wait failed")
	}

	buf, err := c.cam.ReadFrame()
	if err != nil {
		return nil, errors.Wrap(err, "Read frame failed")
	}
	if len(buf) == 0 {
		return nil, ErrNoFrame
	}

	f, err := DecodeYUYV(buf, c.width, c.height)
	if err != nil {
		return nil, err
	}
	f.Captured = time.Now()
	return f, nil
}

func (c *Webcam) Close() error {
	c.cam.StopStreaming()
	return c.cam.Close()
}
