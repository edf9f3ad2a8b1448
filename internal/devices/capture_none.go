//go:build !gocv

package devices

// noCapture stands in when the binary is built without OpenCV. Nothing
// opens, so the fallback backend reports only synthetic controls.
type noCapture struct{}

func defaultCaptureFactory(_ bool) CaptureFactory {
	return func() Capture { return noCapture{} }
}

func (noCapture) Open(int) bool         { return false }
func (noCapture) IsOpened() bool        { return false }
func (noCapture) Get(int) float64       { return 0 }
func (noCapture) Set(int, float64) bool { return false }
func (noCapture) Release() error        { return nil }
