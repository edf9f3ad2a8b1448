package events

// Event type constants for kelindar/event.
const (
	TypeBackendFallback uint32 = iota + 1
	TypeControlChanged
	TypeAutoModeChanged
	TypeProfileApplied
	TypeErrorRecorded
	TypeDeviceHotplug
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// BackendFallbackEvent is published when a native backend call is retried
// on the fallback backend.
type BackendFallbackEvent struct {
	Operation string `json:"operation" example:"get_controls" doc:"Operation that fell back"`
	Device    int    `json:"device" example:"0" doc:"Device index, -1 for listing"`
	From      string `json:"from" example:"v4l2" doc:"Backend that failed"`
	To        string `json:"to" example:"fallback" doc:"Backend that answered"`
	Error     string `json:"error,omitempty" doc:"Native backend error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BackendFallbackEvent.
func (e BackendFallbackEvent) Type() uint32 { return TypeBackendFallback }

// ControlChangedEvent is published after a control was written.
type ControlChangedEvent struct {
	Device    int    `json:"device" example:"0" doc:"Device index"`
	Control   string `json:"control" example:"brightness" doc:"Control name"`
	Value     int    `json:"value" example:"128" doc:"Value written"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ControlChangedEvent.
func (e ControlChangedEvent) Type() uint32 { return TypeControlChanged }

// AutoModeChangedEvent is published when a control switches between auto
// and manual mode.
type AutoModeChangedEvent struct {
	Device    int    `json:"device" example:"0" doc:"Device index"`
	Control   string `json:"control" example:"exposure" doc:"Control name"`
	Enabled   bool   `json:"enabled" doc:"True when auto mode is on"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AutoModeChangedEvent.
func (e AutoModeChangedEvent) Type() uint32 { return TypeAutoModeChanged }

// ProfileAppliedEvent is published after a profile was applied.
type ProfileAppliedEvent struct {
	Profile   string `json:"profile" example:"daylight" doc:"Profile name"`
	Device    int    `json:"device" example:"0" doc:"Device index"`
	Applied   int    `json:"applied" example:"6" doc:"Controls restored"`
	Failed    int    `json:"failed" example:"0" doc:"Controls that could not be restored"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProfileAppliedEvent.
func (e ProfileAppliedEvent) Type() uint32 { return TypeProfileApplied }

// ErrorRecordedEvent mirrors an entry added to the error history.
type ErrorRecordedEvent struct {
	ID        string `json:"id" doc:"History record ID"`
	Kind      string `json:"kind" example:"device-busy" doc:"Error kind"`
	Message   string `json:"message" doc:"User-facing message"`
	Detail    string `json:"detail" doc:"Underlying error text"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ErrorRecordedEvent.
func (e ErrorRecordedEvent) Type() uint32 { return TypeErrorRecorded }

// DeviceHotplugEvent is published when a camera node appears or disappears.
type DeviceHotplugEvent struct {
	Action    string `json:"action" example:"add" doc:"Kernel action: add, remove, bind, unbind"`
	Index     int    `json:"index" example:"0" doc:"N of /dev/videoN"`
	Path      string `json:"path" example:"/dev/video0" doc:"Device node"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceHotplugEvent.
func (e DeviceHotplugEvent) Type() uint32 { return TypeDeviceHotplug }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Device     *int           `json:"device,omitempty" doc:"Device the entry is about"`
	Control    string         `json:"control,omitempty" doc:"Control the entry is about"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
