// Package version carries build identification, set at link time via
// -ldflags "-X github.com/banshee-data/seqscan/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns the full build identification line.
func String() string {
	return fmt.Sprintf("seqscan %s (%s, built %s)", Version, GitSHA, BuildTime)
}
