//go:build gocv

package devices

import (
	"os"

	"gocv.io/x/gocv"
)

// gocvCapture adapts gocv.VideoCapture to Capture.
type gocvCapture struct {
	vc *gocv.VideoCapture
}

func defaultCaptureFactory(quiet bool) CaptureFactory {
	if quiet {
		// read by OpenCV when the first capture is created
		_ = os.Setenv("OPENCV_LOG_LEVEL", "SILENT")
	}
	return func() Capture { return &gocvCapture{} }
}

func (c *gocvCapture) Open(index int) bool {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return false
	}
	c.vc = vc
	return vc.IsOpened()
}

func (c *gocvCapture) IsOpened() bool {
	return c.vc != nil && c.vc.IsOpened()
}

func (c *gocvCapture) Get(prop int) float64 {
	if c.vc == nil {
		return 0
	}
	return c.vc.Get(gocv.VideoCaptureProperties(prop))
}

// Set writes the property and reads it back; VideoCapture.Set does not
// report drivers that ignore a property.
func (c *gocvCapture) Set(prop int, value float64) bool {
	if c.vc == nil {
		return false
	}
	p := gocv.VideoCaptureProperties(prop)
	c.vc.Set(p, value)
	return readbackMatches(value, c.vc.Get(p))
}

func (c *gocvCapture) Release() error {
	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}
