//go:build windows

package devices

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

// win32PnPEntity holds the Win32_PnPEntity properties the camera filter
// reads.
type win32PnPEntity struct {
	Name        string
	DeviceID    string
	PNPClass    string
	ClassGuid   string
	Description string
}

// wmiCameras lists present PnP entities that look like cameras.
func wmiCameras() ([]DeviceInfo, error) {
	var entities []win32PnPEntity
	query := wmi.CreateQuery(&entities, "WHERE Present = TRUE", "Win32_PnPEntity")
	if err := wmi.Query(query, &entities); err != nil {
		return nil, fmt.Errorf("query Win32_PnPEntity: %w", err)
	}

	devices := []DeviceInfo{}
	for _, e := range entities {
		if !IsCameraEntity(PnPEntity(e)) {
			continue
		}
		index := len(devices)
		path := e.DeviceID
		if path == "" {
			path = fmt.Sprintf(`\\?\video%d`, index)
		}
		devices = append(devices, DeviceInfo{
			Index:       index,
			Name:        e.Name,
			Path:        path,
			Description: "WMI " + e.PNPClass,
		})
	}
	return devices, nil
}
