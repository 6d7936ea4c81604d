// Package buildinfo records which build of seu is running. Release builds set
// the values with -ldflags on package main, which hands them over through Set;
// go install builds fall back to the module and VCS data embedded by the
// toolchain (see Enrich).
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

const (
	unsetVersion = "dev"
	unsetCommit  = "none"
	unset        = "unknown"
)

// Info describes one build.
type Info struct {
	Version string
	Commit  string
	Date    string
	BuiltBy string
}

var current = Info{Version: unsetVersion, Commit: unsetCommit, Date: unset, BuiltBy: unset}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Set records the linker-provided values.
func Set(version, commit, date, builtBy string) {
	current = Info{Version: version, Commit: commit, Date: date, BuiltBy: builtBy}
}

// Get returns the recorded build.
func Get() Info { return current }

// Version is the release version, "dev" for untagged builds.
func Version() string { return current.Version }

// Enrich completes the values the linker left unset from the data the Go
// toolchain embeds: module version, VCS revision and time, and Go version.
// A revision built from a dirty tree gets a "-dirty" suffix.
func Enrich() {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if current.Version == unsetVersion && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		current.Version = bi.Main.Version
	}
	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}
	if current.Commit == unsetCommit {
		if rev := settings["vcs.revision"]; rev != "" {
			current.Commit = rev
			if settings["vcs.modified"] == "true" {
				current.Commit += "-dirty"
			}
		}
	}
	if current.Date == unset && settings["vcs.time"] != "" {
		current.Date = settings["vcs.time"]
	}
	if current.BuiltBy == unset && bi.GoVersion != "" {
		current.BuiltBy = bi.GoVersion
	}
}

// Summary is the text printed by `<prog> version`.
func Summary(prog string) string {
	return current.summary(prog)
}

func (i Info) summary(prog string) string {
	return fmt.Sprintf("%s version %s\ncommit: %s\nbuilt at: %s\nbuilt by: %s\n",
		prog, i.Version, i.Commit, i.Date, i.BuiltBy)
}
