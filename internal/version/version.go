package version

import "fmt"

var (
	// Version is the semantic version baked into the binary; release builds
	// override it through ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA of the build, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC timestamp stamped at build time.
	BuildTime = "unknown"
)

// Short returns the bare semantic version.
func Short() string {
	return Version
}

// Full renders the version together with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
