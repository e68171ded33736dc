package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Version information for the rule candidate index
const (
	// Version is the current semantic version of rci
	Version = "0.1.0"

	// BuildDate is set during build time (use -ldflags)
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags)
	GitCommit = "unknown"
)

// FullInfo returns detailed version information
func FullInfo() string {
	return "Rule Candidate Index " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}

var (
	buildID     string
	buildIDOnce sync.Once
)

// BuildID returns a fingerprint of the current binary build, reported by
// `rci stats` and the MCP stats tool so rebuilt binaries can be told apart.
func BuildID() string {
	buildIDOnce.Do(func() {
		buildID = computeBuildID()
	})
	return buildID
}

func computeBuildID() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version + "-" + GitCommit
	}

	h := xxhash.New()
	_, _ = h.WriteString(info.GoVersion)
	_, _ = h.WriteString(info.Main.Path)
	_, _ = h.WriteString(info.Main.Version)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision", "vcs.modified", "vcs.time":
			_, _ = h.WriteString(s.Key)
			_, _ = h.WriteString(s.Value)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
