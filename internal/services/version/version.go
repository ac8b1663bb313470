// Package version describes the running build.
package version

import (
	"fmt"
	"regexp"
	"strings"
)

// Name is the program name reported by /version.
const Name = "lacylights-strip"

// semverPattern accepts v1.2.3, 1.2.3-rc.1 and build metadata
var semverPattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Info is the build information set via -ldflags.
type Info struct {
	Version   string
	BuildTime string
	GitCommit string
}

// New normalizes build information. A version that is not semver is reported as "dev".
func New(v, buildTime, commit string) Info {
	v = strings.TrimSpace(v)
	if !semverPattern.MatchString(v) {
		v = "dev"
	}
	v = strings.TrimPrefix(v, "v")
	if buildTime == "" {
		buildTime = "unknown"
	}
	if commit == "" {
		commit = "unknown"
	}
	return Info{Version: v, BuildTime: buildTime, GitCommit: commit}
}

// String returns "<name> <version>".
func (i Info) String() string {
	return fmt.Sprintf("%s %s", Name, i.Version)
}

// ValidateVersion checks that v is a semver version string.
func ValidateVersion(v string) error {
	if !semverPattern.MatchString(v) {
		return fmt.Errorf("invalid version format: %s (must be semver format, e.g., v1.0.0 or 1.2.3)", v)
	}
	return nil
}
