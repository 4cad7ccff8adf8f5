// Package version reports which mrzscan build is running.
package version

import "fmt"

// Overridden with -ldflags "-X mrz-reader/internal/version.Version=..." at
// release time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown" // UTC, RFC 3339
)

// String formats the build metadata for `mrzscan version`.
func String() string {
	return fmt.Sprintf("mrzscan %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
