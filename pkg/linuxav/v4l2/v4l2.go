//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for device enumeration, format queries, and control access.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm). ioctl arguments are plain
// byte buffers built and decoded by package descriptor.
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Queries
//
//	dev, err := v4l2.Open("/dev/video0")
//	defer dev.Close()
//	modes, _ := dev.Modes()
//	for _, m := range modes {
//	    fmt.Printf("[%s] %dx%d @ %.2f\n", m.FourCC(), m.Width, m.Height, m.FPS)
//	}
//
// # Controls
//
//	q, err := dev.QueryControl(v4l2.CIDBrightness)
//	if err == nil && !q.Disabled() {
//	    _ = dev.SetControl(v4l2.CIDBrightness, q.Default)
//	}
package v4l2
