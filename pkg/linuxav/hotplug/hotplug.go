//go:build linux

// Package hotplug watches kernel uevents for camera nodes appearing and
// disappearing.
//
// It listens on a NETLINK_KOBJECT_UEVENT socket directly, so no cgo or udev
// daemon is needed.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/smazurov/camctl/pkg/linuxav/v4l2"
)

// Actions the monitor reports.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems relevant to camera hotplug.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemUSB         = "usb"
)

// netlinkKobjectUEvent is the netlink protocol for kernel object events.
const netlinkKobjectUEvent = unix.NETLINK_KOBJECT_UEVENT

// recvBufferSize is larger than any single uevent the kernel sends.
const recvBufferSize = 8192

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string
	Subsystem string
	DevType   string
	DevName   string            // e.g. "video0"
	DevPath   string            // sysfs path without the /sys prefix
	Env       map[string]string // every KEY=VALUE pair
}

// VideoIndex returns N when the event concerns /dev/videoN.
func (e Event) VideoIndex() (int, bool) {
	if e.Subsystem != SubsystemVideo4Linux {
		return 0, false
	}
	return v4l2.NodeIndex(e.DevName)
}

// ChangesDeviceSet reports whether the event adds or removes a node, as
// opposed to a property change on an existing one.
func (e Event) ChangesDeviceSet() bool {
	switch e.Action {
	case ActionAdd, ActionRemove, ActionBind, ActionUnbind:
		return true
	}
	return false
}

// Monitor listens for kernel device events via netlink.
type Monitor struct {
	fd        int
	filters   map[string]struct{}
	filtersMu sync.RWMutex
}

// NewMonitor opens a netlink socket bound to the kernel broadcast group.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1,
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	// A receive timeout lets Run notice cancellation.
	tv := unix.Timeval{Sec: 1}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Monitor{
		fd:      fd,
		filters: make(map[string]struct{}),
	}, nil
}

// AddSubsystemFilter restricts delivered events to the given subsystems.
// With no filters every event passes. Safe for concurrent use.
func (m *Monitor) AddSubsystemFilter(subsystem string) {
	m.filtersMu.Lock()
	m.filters[subsystem] = struct{}{}
	m.filtersMu.Unlock()
}

func (m *Monitor) accepts(subsystem string) bool {
	m.filtersMu.RLock()
	defer m.filtersMu.RUnlock()
	if len(m.filters) == 0 {
		return true
	}
	_, ok := m.filters[subsystem]
	return ok
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run delivers events until ctx is cancelled or the socket fails. The
// events channel is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	buf := make([]byte, recvBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}

		event := ParseUEvent(buf[:n])
		if event == nil || !m.accepts(event.Subsystem) {
			continue
		}

		select {
		case events <- *event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Watch opens a monitor filtered to video4linux and calls fn for every event
// that adds or removes a node. It blocks until ctx is done.
func Watch(ctx context.Context, fn func(Event)) error {
	m, err := NewMonitor()
	if err != nil {
		return err
	}
	defer m.Close()
	m.AddSubsystemFilter(SubsystemVideo4Linux)

	events := make(chan Event, 16)
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx, events) }()

	for ev := range events {
		if ev.ChangesDeviceSet() {
			fn(ev)
		}
	}
	return <-errc
}

// ParseUEvent parses "ACTION@KOBJ\0KEY=VALUE\0...". Messages rebroadcast by
// udev carry a binary "libudev" header, which is skipped.
func ParseUEvent(data []byte) *Event {
	if bytes.HasPrefix(data, []byte("libudev")) {
		data = skipUdevHeader(data)
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return nil
	}

	action, kobj, ok := strings.Cut(string(parts[0]), "@")
	if !ok || action == "" {
		return nil
	}

	event := &Event{
		Action: action,
		KObj:   kobj,
		Env:    make(map[string]string),
	}

	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVTYPE":
			event.DevType = value
		case "DEVNAME":
			event.DevName = value
		case "DEVPATH":
			event.DevPath = value
		}
	}

	return event
}

func skipUdevHeader(data []byte) []byte {
	for i := 0; i < len(data)-1; i++ {
		if data[i] != 0 {
			continue
		}
		rest := data[i+1:]
		segment := rest
		if end := bytes.IndexByte(rest, 0); end >= 0 {
			segment = rest[:end]
		}
		if idx := bytes.IndexByte(segment, '@'); idx > 0 && idx < 20 {
			return rest
		}
	}
	return data
}
