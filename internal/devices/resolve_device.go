package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	byIDDir   = "/dev/v4l/by-id"
	byPathDir = "/dev/v4l/by-path"
)

// ResolveDevicePath converts a device argument to a device node path. Full
// paths are returned unchanged; stable names are looked up under
// /dev/v4l/by-id and /dev/v4l/by-path.
func ResolveDevicePath(arg string) (string, error) {
	if strings.HasPrefix(arg, "/dev/") {
		return arg, nil
	}

	// by-id for USB devices
	if strings.HasPrefix(arg, "usb-") {
		devicePath := filepath.Join(byIDDir, arg)
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	// by-path for platform devices and USB devices without by-id
	if strings.HasPrefix(arg, "platform-") || strings.HasPrefix(arg, "pci-") || strings.HasPrefix(arg, "usb-") {
		devicePath := filepath.Join(byPathDir, arg)
		if _, err := os.Stat(devicePath); err == nil {
			return devicePath, nil
		}
	}

	return "", fmt.Errorf("no stable symlink found for device ID: %s", arg)
}

// ParseDeviceIndex turns a device argument into an index. It accepts a bare
// integer, /dev/videoN, or a stable symlink that resolves to /dev/videoN.
// Anything else is index 0.
func ParseDeviceIndex(arg string) int {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil && n >= 0 {
		return n
	}

	path, err := ResolveDevicePath(arg)
	if err != nil {
		return 0
	}
	if target, err := filepath.EvalSymlinks(path); err == nil {
		path = target
	}
	if n, ok := videoNodeIndex(path); ok {
		return n
	}
	return 0
}

func videoNodeIndex(path string) (int, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "video") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
