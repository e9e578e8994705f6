// -----------------------------------------------------------------------
// Version - Build-time version information
// -----------------------------------------------------------------------

package common

// Version info, overridden at build time via ldflags:
//
//	go build -ldflags "-X github.com/ternarybob/hydrun/internal/common.Version=1.2.3"
var (
	Version = "0.1.0-dev"
	Build   = "unknown"
	GitHash = "unknown"
)

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitHash
}
