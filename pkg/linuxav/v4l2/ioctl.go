//go:build linux

package v4l2

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCTL request codes. None of the structures involved carry pointers or
// longs, so the codes are the same on every Linux architecture.
const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
	vidiocQueryctrl          = 0xc0445624
	vidiocGCtrl              = 0xc008561b
	vidiocSCtrl              = 0xc008561c
)

// ioctl issues req against fd with buf as the in/out argument. Tests swap it
// for a scripted driver.
var ioctl = sysIoctl

func sysIoctl(fd int, req uint, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

func open(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}
