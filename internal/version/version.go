// Package version holds build information injected with -ldflags:
//
//	go build -ldflags "-X piiguard/internal/version.Version=v1.2.0 \
//	  -X piiguard/internal/version.Commit=$(git rev-parse --short HEAD) \
//	  -X piiguard/internal/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/piiguard
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("piiguard %s (commit: %s, built: %s)", Version, Commit, Date)
}
