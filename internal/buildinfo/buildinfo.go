// Package buildinfo holds build metadata for the lazyhg binary.
// main() forwards the linker-injected values with Set.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const (
	unsetVersion = "dev"
	unsetCommit  = "none"
	unsetValue   = "unknown"
)

// Info is a snapshot of the build metadata.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	BuiltBy string `json:"built_by"`
}

var current = Info{
	Version: unsetVersion,
	Commit:  unsetCommit,
	Date:    unsetValue,
	BuiltBy: unsetValue,
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Set stores the build metadata received from linker-injected variables.
func Set(version, commit, date, builtBy string) {
	current = Info{Version: version, Commit: commit, Date: date, BuiltBy: builtBy}
}

// Get returns the current build metadata.
func Get() Info { return current }

// Version returns the build version string.
func Version() string { return current.Version }

// Enrich fills placeholders from the binary's embedded module and VCS data.
func Enrich() {
	info, ok := readBuildInfo()
	if !ok {
		return
	}

	if current.Version == unsetVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		current.Version = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if current.Commit == unsetCommit {
				current.Commit = setting.Value
			}
		case "vcs.time":
			if current.Date == unsetValue {
				current.Date = setting.Value
			}
		}
	}
	if current.BuiltBy == unsetValue {
		current.BuiltBy = info.GoVersion
	}
}

// String formats the metadata for the version command.
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("lazyhg %s (commit %s, built %s by %s)", i.Version, commit, i.Date, i.BuiltBy)
}
