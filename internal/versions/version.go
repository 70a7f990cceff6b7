// Package versions exposes build-time version information.
package versions

import (
	"fmt"
	"runtime"
)

// Set at build time via ldflags.
var (
	// Version is the semantic version of the build
	Version = "dev"
	// Commit is the git commit the build was produced from
	Commit = "unknown"
	// BuildDate is the UTC timestamp of the build
	BuildDate = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information for the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
