//go:build linux

package v4l2

import (
	"fmt"

	"github.com/smazurov/camctl/pkg/descriptor"
)

// QueryControl issues VIDIOC_QUERYCTRL for id.
func (d *Device) QueryControl(id uint32) (descriptor.QueryControl, error) {
	buf := descriptor.QueryControlRequest(id)
	if err := ioctl(d.fd, vidiocQueryctrl, buf); err != nil {
		return descriptor.QueryControl{}, fmt.Errorf("queryctrl 0x%08x: %w", id, err)
	}
	return descriptor.DecodeQueryControl(buf)
}

// GetControl reads the current value of a control.
func (d *Device) GetControl(id uint32) (int32, error) {
	buf := descriptor.EncodeControl(descriptor.Control{ID: id})
	if err := ioctl(d.fd, vidiocGCtrl, buf); err != nil {
		return 0, fmt.Errorf("g_ctrl 0x%08x: %w", id, err)
	}
	c, err := descriptor.DecodeControl(buf)
	if err != nil {
		return 0, err
	}
	return c.Value, nil
}

// SetControl writes a control value. The driver's errno (EINVAL, ERANGE,
// EACCES, ...) is wrapped unchanged.
func (d *Device) SetControl(id uint32, value int32) error {
	buf := descriptor.EncodeControl(descriptor.Control{ID: id, Value: value})
	if err := ioctl(d.fd, vidiocSCtrl, buf); err != nil {
		return fmt.Errorf("s_ctrl 0x%08x=%d: %w", id, value, err)
	}
	return nil
}
