//go:build linux

package v4l2

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/smazurov/camctl/pkg/descriptor"
)

const (
	sysfsVideoDir = "/sys/class/video4linux"
	byIDDir       = "/dev/v4l/by-id"
)

// Device is an open V4L2 node. Callers must Close it.
type Device struct {
	path string
	fd   int
}

// Open opens a V4L2 device node for querying.
func Open(path string) (*Device, error) {
	fd, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{path: path, fd: fd}, nil
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Close releases the file descriptor.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

// Capability issues VIDIOC_QUERYCAP.
func (d *Device) Capability() (descriptor.Capability, error) {
	buf := make([]byte, descriptor.CapabilitySize)
	if err := ioctl(d.fd, vidiocQuerycap, buf); err != nil {
		return descriptor.Capability{}, fmt.Errorf("querycap %s: %w", d.path, err)
	}
	return descriptor.DecodeCapability(buf)
}

// FindDevices finds all V4L2 video capture devices on the system. Nodes that
// cannot be opened or queried are skipped.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsVideoDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	logger := slog.With("component", "linuxav")
	devices := []DeviceInfo{}

	for _, entry := range entries {
		name := entry.Name()
		index, ok := NodeIndex(name)
		if !ok {
			continue
		}
		devicePath := "/dev/" + name

		info, err := probe(devicePath)
		if err != nil {
			logger.Debug("skipping video device", "path", devicePath, "error", err)
			continue
		}
		if !info.IsCapture() {
			continue
		}

		// sysfs "index" distinguishes the nodes of one physical device
		nodeIndex := readSysfsInt(filepath.Join(sysfsVideoDir, name, "index"))

		stableID := findStableID(name, nodeIndex)
		if stableID == "" {
			if strings.HasPrefix(info.BusInfo, "usb-") {
				stableID = fmt.Sprintf("%s-video-index%d", info.BusInfo, nodeIndex)
			} else {
				stableID = fmt.Sprintf("platform-%s-video-index%d", info.BusInfo, nodeIndex)
			}
		}

		devices = append(devices, DeviceInfo{
			Index:      index,
			DevicePath: devicePath,
			DeviceName: info.Card,
			Driver:     info.Driver,
			BusInfo:    info.BusInfo,
			DeviceID:   stableID,
			Caps:       info.EffectiveCaps(),
		})
	}

	return devices, nil
}

func probe(path string) (descriptor.Capability, error) {
	dev, err := Open(path)
	if err != nil {
		return descriptor.Capability{}, err
	}
	defer dev.Close()
	return dev.Capability()
}

// NodeIndex extracts N from a "videoN" node name.
func NodeIndex(name string) (int, bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, "video") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// DevicePath returns the node path for index N.
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}

	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/
func findStableID(deviceName string, indexValue int) string {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	expectedSuffix := fmt.Sprintf("-video-index%d", indexValue)

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}

		if filepath.Base(target) == deviceName && strings.HasSuffix(entry.Name(), expectedSuffix) {
			return entry.Name()
		}
	}

	return ""
}

// readSysfsInt reads an integer value from a sysfs file.
func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}
