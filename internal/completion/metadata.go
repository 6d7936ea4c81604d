// Package completion holds the flag metadata of every seu command and renders
// shell completion scripts from it.
package completion

import (
	"sort"

	"github.com/seutils/seu/internal/theme"
)

// FlagInfo contains metadata about a command-line flag for completion generation.
type FlagInfo struct {
	Name        string   // Flag name without dashes
	Short       string   // One-letter alias, if any
	Description string   // Human-readable description
	HasValue    bool     // true for string flags, false for bool flags
	ValueHint   string   // Hint for value type (e.g., "DIR", "PATH", "NAME")
	Values      []string // Enumerated values for completion
}

// CommandInfo describes a subcommand.
type CommandInfo struct {
	Name        string
	Description string
	Flags       []FlagInfo
	RemotePaths bool // positional arguments are storage paths
}

var mgmFlag = FlagInfo{Name: "mgm", Short: "m", Description: "Default MGM for paths without protocol", HasValue: true, ValueHint: "MGM"}

// GlobalFlags returns metadata for the flags accepted by every command.
func GlobalFlags() []FlagInfo {
	return []FlagInfo{
		{Name: "verbose", Short: "v", Description: "Print debug output"},
		{Name: "dry", Short: "d", Description: "Print the commands instead of running them"},
		{Name: "fake", Description: "Use the in-memory storage implementation"},
		{
			Name:        "implementation",
			Short:       "i",
			Description: "Force a storage implementation",
			HasValue:    true,
			ValueHint:   "NAME",
			Values:      []string{"auto", "xrd", "gfal", "fake"},
		},
		{Name: "config-file", Description: "Path to configuration file", HasValue: true, ValueHint: "FILE"},
		{Name: "config", Short: "C", Description: "Override config values (repeatable): --config=seu.key=value", HasValue: true, ValueHint: "KEY=VALUE"},
		{Name: "debug-log", Description: "Path to debug log file", HasValue: true, ValueHint: "PATH"},
		{Name: "theme", Description: "Colour theme", HasValue: true, ValueHint: "NAME", Values: theme.AvailableThemes()},
	}
}

// Commands returns metadata for all seu subcommands, sorted by name.
// This is the single source of truth for shell completion generation.
func Commands() []CommandInfo {
	commands := []CommandInfo{
		{
			Name:        "ls",
			Description: "List paths on a storage element",
			RemotePaths: true,
			Flags: []FlagInfo{
				{Name: "long", Short: "l", Description: "Long listing format"},
				{Name: "sort", Short: "s", Description: "Sort long listings", HasValue: true, ValueHint: "KEY", Values: []string{"name", "date", "size"}},
				{Name: "icons", Description: "Show file type icons"},
			},
		},
		{
			Name:        "du",
			Description: "Print sizes of paths",
			RemotePaths: true,
			Flags: []FlagInfo{
				{Name: "sort", Short: "s", Description: "Sort by size"},
			},
		},
		{
			Name:        "rm",
			Description: "Remove paths from a storage element",
			RemotePaths: true,
			Flags: []FlagInfo{
				mgmFlag,
				{Name: "yes", Short: "y", Description: "Do not ask for confirmation"},
				{Name: "recursive", Short: "r", Description: "Remove directories and their contents"},
			},
		},
		{Name: "mkdir", Description: "Create directories", RemotePaths: true, Flags: []FlagInfo{mgmFlag}},
		{Name: "cat", Description: "Print file contents", RemotePaths: true},
		{
			Name:        "nentries",
			Description: "Count entries of trees in ROOT files",
			RemotePaths: true,
			Flags: []FlagInfo{
				{Name: "treepath", Short: "t", Description: "Path of the tree inside the files", HasValue: true, ValueHint: "PATH"},
				{Name: "fresh", Short: "f", Description: "Ignore cached counts"},
				{Name: "nthreads", Short: "n", Description: "Files read concurrently", HasValue: true, ValueHint: "N"},
				mgmFlag,
			},
		},
		{
			Name:        "hadd",
			Description: "Merge ROOT files",
			RemotePaths: true,
			Flags: []FlagInfo{
				{Name: "dst", Short: "o", Description: "Output file", HasValue: true, ValueHint: "PATH"},
				{Name: "parallel", Short: "p", Description: "Merge chunks concurrently"},
				{Name: "chunksize", Short: "c", Description: "Files merged per hadd call", HasValue: true, ValueHint: "N"},
				{Name: "nthreads", Short: "n", Description: "Chunks merged concurrently", HasValue: true, ValueHint: "N"},
				mgmFlag,
			},
		},
		{
			Name:        "printbranches",
			Description: "Print the branches of trees in a ROOT file",
			RemotePaths: true,
			Flags: []FlagInfo{
				{Name: "treepath", Short: "t", Description: "Only this tree", HasValue: true, ValueHint: "PATH"},
				{Name: "verbose", Short: "v", Description: "Show leaf types"},
			},
		},
		{Name: "format", Description: "Print fully formatted paths", RemotePaths: true, Flags: []FlagInfo{mgmFlag}},
		{Name: "install-completion", Description: "Print shell completion setup instructions"},
		{Name: "completion", Description: "Generate shell completion script", Flags: nil},
		{Name: "cache", Description: "Manage the local cache"},
		{Name: "version", Description: "Print version information"},
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

// Lookup returns the metadata of a command.
func Lookup(name string) (CommandInfo, bool) {
	for _, c := range Commands() {
		if c.Name == name {
			return c, true
		}
	}
	return CommandInfo{}, false
}

// Options lists every spelling of the flags, e.g. "--long" and "-l".
func Options(flags []FlagInfo) []string {
	var opts []string
	for _, f := range flags {
		opts = append(opts, "--"+f.Name)
		if f.Short != "" {
			opts = append(opts, "-"+f.Short)
		}
	}
	return opts
}
