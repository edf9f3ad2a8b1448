package devices

import "strings"

// pnpClassImage and pnpClassCamera are the Windows setup classes for imaging
// devices and cameras.
const (
	pnpClassImage  = "{6bdd1fc6-810f-11d0-bec7-08002be2092f}"
	pnpClassCamera = "{ca3e7ab9-b4c3-4ae6-8251-579ef933890f}"
)

var cameraKeywords = []string{"camera", "webcam", "video", "cam "}

// PnPEntity holds the Win32_PnPEntity fields the camera filter looks at.
type PnPEntity struct {
	Name        string
	DeviceID    string
	PNPClass    string
	ClassGuid   string
	Description string
}

// IsCameraEntity reports whether a PnP entity looks like a video capture
// device. Audio functions of the same USB device are excluded.
func IsCameraEntity(e PnPEntity) bool {
	name := strings.ToLower(e.Name + " " + e.Description)
	if strings.Contains(name, "audio") || strings.Contains(name, "microphone") {
		return false
	}

	guid := strings.ToLower(e.ClassGuid)
	if guid == pnpClassImage || guid == pnpClassCamera {
		return true
	}
	switch strings.ToLower(e.PNPClass) {
	case "camera", "image":
		return true
	}

	for _, kw := range cameraKeywords {
		if strings.Contains(name+" ", kw) {
			return true
		}
	}

	// composite UVC devices expose the video function on interface 0
	id := strings.ToUpper(e.DeviceID)
	return strings.HasPrefix(id, "USB\\") && strings.Contains(id, "&MI_00")
}
