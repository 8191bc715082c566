// Package version exposes build metadata set via -ldflags.
package version

import "fmt"

// Set at build time with -ldflags "-X oembedfixes/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("oembedfixes %s (commit %s, built %s)", Version, Commit, Date)
}
