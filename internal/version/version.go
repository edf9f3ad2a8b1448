// Package version holds build metadata injected with -ldflags:
//
//	go build -ldflags "-X github.com/smazurov/camctl/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the application version.
	Version = "dev"
	// GitCommit is the git commit hash.
	GitCommit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version" example:"v0.3.0"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform" example:"linux/arm64"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns "camctl <version> (<short commit>)".
func String() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("camctl %s (%s)", Version, commit)
}

// Long is the multi-line form printed by the version command.
func (i Info) Long() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "camctl %s\n", i.Version)
	fmt.Fprintf(&sb, "  commit:   %s\n", i.GitCommit)
	fmt.Fprintf(&sb, "  built:    %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  go:       %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "  platform: %s\n", i.Platform)
	return sb.String()
}
