package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the command tree against the memory backend from an empty
// directory, so no camctl.toml is picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--backend", "memory", "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"list devices", []string{"--list-devices"}, []string{
			"Demo USB Webcam HD: (/dev/video0):",
			"        /dev/video1",
		}},
		{"list formats", []string{"-d", "/dev/video0", "--list-formats-ext"}, []string{
			"Formats supported by /dev/video0:",
			"    [MJPG] 1920x1080 @ 30.00fps",
		}},
		{"list controls", []string{"-d", "0", "-L"}, []string{
			"User Controls",
			"Camera Controls",
			"               brightness (int)    : min=0 max=255 step=1 default=128 value=128",
		}},
		{"set controls", []string{"-c", "brightness=10,nope"}, []string{
			"Set brightness = 10",
			`invalid control setting "nope"`,
		}},
		{"no action prints help", nil, []string{"Usage:", "--list-devices"}},
		{"version", []string{"version"}, []string{"camctl "}},
		{"auto", []string{"auto", "exposure", "on"}, []string{"exposure auto mode on"}},
		{"auto-adjust", []string{"auto-adjust", "white-balance", "--settle", "0s"}, []string{"white-balance settled"}},
		{"advanced", []string{"advanced", "-d", "0"}, []string{"NAME", "white_balance menu:", "    3: Daylight"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v\n%s", err, out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRootCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown device", []string{"-d", "/dev/video9", "-L"}},
		{"bad auto mode", []string{"auto", "exposure", "maybe"}},
		{"control without auto", []string{"auto", "hue", "on"}},
		{"unknown backend", []string{"--backend", "nope", "--list-devices"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("Execute() error = nil, want an error")
			}
		})
	}
}

func TestConfigFileSetsBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "camctl.toml")
	if err := os.WriteFile(path, []byte("[backend]\ntype = \"memory\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "--log-level", "error", "--list-devices"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Demo HDMI Capture") {
		t.Errorf("config backend not used:\n%s", out.String())
	}
}
