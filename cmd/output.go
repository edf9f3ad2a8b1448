package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/smazurov/camctl/internal/deverr"
	"github.com/smazurov/camctl/internal/devices"
)

// cameraControls are listed under "Camera Controls", everything else
// under "User Controls".
var cameraControls = map[string]bool{
	"pan":             true,
	"tilt":            true,
	"roll":            true,
	"zoom":            true,
	"focus":           true,
	"focus_automatic": true,
}

// ParseDevice turns /dev/videoN or N into an index. Anything else is 0.
func ParseDevice(s string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "/dev/video"))
	if err != nil {
		return 0
	}
	return n
}

// ControlSetting is one name=value pair of --set-ctrl.
type ControlSetting struct {
	Name  string
	Value int
}

// ParseControlSettings splits a --set-ctrl argument. Malformed pairs are
// returned as errors alongside the pairs that parsed.
func ParseControlSettings(s string) ([]ControlSetting, []error) {
	var settings []ControlSetting
	var errs []error
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			errs = append(errs, fmt.Errorf("invalid control setting %q", pair))
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid control value %q", raw))
			continue
		}
		settings = append(settings, ControlSetting{Name: strings.TrimSpace(name), Value: value})
	}
	return settings, errs
}

// PrintDevices writes the --list-devices output.
func PrintDevices(w io.Writer, list []devices.DeviceInfo) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No video devices found")
		return
	}
	for _, d := range list {
		fmt.Fprintf(w, "%s: (%s):\n", d.Name, d.Path)
		fmt.Fprintf(w, "        /dev/video%d\n", d.Index)
	}
}

// PrintFormats writes the --list-formats-ext output.
func PrintFormats(w io.Writer, index int, formats []devices.VideoFormat) {
	if len(formats) == 0 {
		fmt.Fprintf(w, "No format information for /dev/video%d\n", index)
		return
	}
	fmt.Fprintf(w, "Formats supported by /dev/video%d:\n", index)
	for _, f := range formats {
		fmt.Fprintf(w, "    [%s] %dx%d @ %.2ffps\n", f.PixelFormat, f.Width, f.Height, f.FPS)
		if f.Description != "" {
			fmt.Fprintf(w, "        %s\n", f.Description)
		}
	}
}

// PrintControls writes the -L output in two groups.
func PrintControls(w io.Writer, index int, list []devices.ControlInfo) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No controls for /dev/video%d\n", index)
		return
	}

	var user, camera []devices.ControlInfo
	for _, c := range list {
		if cameraControls[c.Name] {
			camera = append(camera, c)
		} else {
			user = append(user, c)
		}
	}

	if len(user) > 0 {
		fmt.Fprint(w, "User Controls\n\n")
		for _, c := range user {
			printControl(w, c)
		}
	}
	if len(camera) > 0 {
		fmt.Fprint(w, "\nCamera Controls\n\n")
		for _, c := range camera {
			printControl(w, c)
		}
	}

	if sources := unreadSources(list); len(sources) > 0 {
		fmt.Fprintf(w, "\nNote: %s values are not read from the device\n", strings.Join(sources, " and "))
	}
}

// unreadSources lists the provenances in list other than hardware.
func unreadSources(list []devices.ControlInfo) []string {
	var sources []string
	for _, c := range list {
		if c.Source == "" || c.Source == devices.SourceHardware {
			continue
		}
		if s := string(c.Source); !slices.Contains(sources, s) {
			sources = append(sources, s)
		}
	}
	slices.Sort(sources)
	return sources
}

func printControl(w io.Writer, c devices.ControlInfo) {
	kind := "(int)"
	if devices.IsAutomatic(c.Name) {
		kind = "(bool)"
	}
	fmt.Fprintf(w, "%25s %s    : min=%d max=%d step=%d default=%d value=%d\n",
		c.Name, kind, c.Min, c.Max, c.Step, c.Default, c.Current)
}

// controlSetter is the write half of devices.Controller.
type controlSetter interface {
	SetControl(ctx context.Context, index int, name string, value int) error
}

// SetControls applies a --set-ctrl argument pair by pair. Every pair is
// reported and a failure does not stop the rest. It returns the number of
// failed or malformed pairs.
func SetControls(ctx context.Context, w io.Writer, dev controlSetter, index int, arg string) int {
	settings, errs := ParseControlSettings(arg)
	for _, err := range errs {
		fmt.Fprintf(w, "Error: %v\n", err)
	}

	failed := len(errs)
	for _, s := range settings {
		if err := dev.SetControl(ctx, index, s.Name, s.Value); err != nil {
			fmt.Fprintf(w, "Failed to set %s = %d: %s\n", s.Name, s.Value, describe(err))
			failed++
			continue
		}
		fmt.Fprintf(w, "Set %s = %d\n", s.Name, s.Value)
	}
	return failed
}

// describe renders err for the terminal: the message for its kind, the
// error's own detail and a hint when the kind has one. Errors of unknown
// kind print as they are.
func describe(err error) string {
	kind := deverr.KindOf(err)
	if kind == deverr.KindUnknown {
		return err.Error()
	}

	detail := err.Error()
	var de *deverr.Error
	if errors.As(err, &de) && de.Message != "" {
		detail = de.Message
	}
	msg := fmt.Sprintf("%s (%s)", deverr.UserMessage(err), detail)
	if hint := deverr.Suggestion(kind); hint != "" {
		msg += "\n  Suggestion: " + hint
	}
	return msg
}
