package deverr

import "log/slog"

var userMessages = map[Kind]string{
	KindDeviceNotFound:         "No video device found. Check that the camera is connected.",
	KindDeviceBusy:             "The device is in use by another application. Close other camera applications.",
	KindDevicePermissionDenied: "No permission to access the device. Try running with elevated privileges or check device permissions.",
	KindDeviceDisconnected:     "The device was disconnected. Reconnect the camera.",
	KindControlNotSupported:    "The device does not support this control.",
	KindControlOutOfRange:      "The control value is outside the valid range.",
	KindControlReadOnly:        "This control is read-only and cannot be changed.",
	KindFormatNotSupported:     "The device does not support this video format.",
	KindResolutionNotSupported: "The device does not support this resolution.",
	KindPlatformNotSupported:   "The current platform is not supported.",
	KindDependencyMissing:      "A required dependency is missing.",
	KindPermissionDenied:       "Permission denied. Check system permission settings.",
	KindIO:                     "Input/output error. Check the device connection.",
	KindTimeout:                "The operation timed out. Retry or check the device state.",
	KindUnknown:                "An unknown error occurred. See the logs for details.",
}

var suggestions = map[Kind]string{
	KindDeviceBusy:             "retry once the other application releases the device",
	KindDeviceDisconnected:     "reconnect the camera and retry",
	KindDevicePermissionDenied: "add the user to the video group or run elevated",
	KindPermissionDenied:       "run with elevated privileges",
	KindDependencyMissing:      "install the missing dependency",
}

// MessageFor returns the user-facing text for a kind.
func MessageFor(kind Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// UserMessage returns the user-facing text for err's kind.
func UserMessage(err error) string {
	return MessageFor(KindOf(err))
}

// Suggestion returns a recovery hint for kind, or "" when there is none.
func Suggestion(kind Kind) string {
	return suggestions[kind]
}

// LogLevel is the level a recorded error of this kind is logged at.
func LogLevel(kind Kind) slog.Level {
	switch kind {
	case KindDeviceNotFound, KindDeviceDisconnected:
		return slog.LevelWarn
	case KindPlatformNotSupported, KindDependencyMissing, KindUnknown:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
