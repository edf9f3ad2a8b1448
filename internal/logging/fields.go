package logging

import (
	"log/slog"
	"strings"
)

// Attribute keys with meaning to camctl. Records carrying them are
// searchable by camera in the journal and in the log buffer.
const (
	KeyModule  = "module"
	KeyDevice  = "device"
	KeyControl = "control"
	KeyKind    = "kind"
	KeyBackend = "backend"
	KeyProfile = "profile"
)

// journalPrefix namespaces every attribute in the journal, so
// journalctl CAMCTL_DEVICE=0 CAMCTL_CONTROL=exposure selects one camera.
const journalPrefix = "CAMCTL_"

// journalKey turns a possibly grouped attribute key into a journald field
// name: upper case, [A-Z0-9_] only, prefixed with CAMCTL_.
func journalKey(groups []string, key string) string {
	parts := append(append([]string{}, groups...), key)
	name := strings.ToUpper(strings.Join(parts, "_"))

	var b strings.Builder
	b.Grow(len(journalPrefix) + len(name))
	b.WriteString(journalPrefix)
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// camera is the device and control a record is about, when it says.
type camera struct {
	device  *int
	control string
}

// note picks up top-level device and control attributes.
func (c *camera) note(groups []string, a slog.Attr) {
	if len(groups) > 0 {
		return
	}
	switch a.Key {
	case KeyDevice:
		v := a.Value.Resolve()
		switch v.Kind() {
		case slog.KindInt64:
			d := int(v.Int64())
			c.device = &d
		case slog.KindUint64:
			d := int(v.Uint64())
			c.device = &d
		}
	case KeyControl:
		if v := a.Value.Resolve(); v.Kind() == slog.KindString {
			c.control = v.String()
		}
	}
}
