// Package version holds build metadata of the jarfang binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/Sumatoshi-tech/jarfang/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

const shortCommit = 12

// InitBinaryVersion fills Version and Commit from the module build info when
// they were not set at link time.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = setting.Value
				if len(Commit) > shortCommit {
					Commit = Commit[:shortCommit]
				}
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}

// String formats the version line printed by "jarfang version".
func String() string {
	return fmt.Sprintf("jarfang %s (commit: %s, built: %s)", Version, Commit, Date)
}
