// Package version provides version information for autopatrol.
package version

// These variables are set via ldflags during build
//
//nolint:gochecknoglobals // These are intentionally global for ldflags injection
var (
	version = "dev"
	commit  = "none"
)

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetCommit returns the commit the binary was built from.
func GetCommit() string {
	return commit
}

// GetFullVersion returns version with commit
func GetFullVersion() string {
	return version + " (commit: " + commit + ")"
}
