package storage

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
)

// DefaultRmBlacklist protects the top of the namespace from removal.
var DefaultRmBlacklist = []string{"/", "/store", "/store/user", "/store/user/*"}

// RmSafety refuses rm operations on protected paths.
type RmSafety struct {
	// Blacklist entries are LFNs, optionally with * wildcards. An entry only
	// applies to paths of the same depth.
	Blacklist []string
	// Whitelist, when not empty, lists the only LFN prefixes that may be removed.
	Whitelist []string
}

// Check returns an error wrapping ErrRmSafety when path may not be removed.
func (s *RmSafety) Check(path string) error {
	if !lfn.HasProtocol(path) {
		log.Errorf("Remote rm operation called on local path")
		return &PathError{Op: "rm", Path: path, Err: ErrRmSafety}
	}
	l := lfn.LFN(path)
	depth := strings.Count(l, "/")
	for _, bl := range s.Blacklist {
		if bl == l {
			return &PathError{Op: "rm", Path: path, Err: ErrRmSafety}
		}
		if strings.Count(bl, "/") != depth || !strings.Contains(bl, "*") {
			continue
		}
		g, err := compileWildcard(bl)
		if err != nil {
			return fmt.Errorf("invalid rm blacklist entry %q: %w", bl, err)
		}
		if g.Match(l) {
			log.Debugf("rm safety: %s matches blacklist entry %s", l, bl)
			return &PathError{Op: "rm", Path: path, Err: ErrRmSafety}
		}
	}
	if len(s.Whitelist) == 0 {
		return nil
	}
	for _, wl := range s.Whitelist {
		if strings.HasPrefix(l, wl) {
			return nil
		}
	}
	log.Errorf("Path is outside of the whitelist: %s", strings.Join(s.Whitelist, ", "))
	return &PathError{Op: "rm", Path: path, Err: ErrRmSafety}
}

// compileWildcard compiles a pattern in which only * is special; it matches
// any run of characters except /.
func compileWildcard(pattern string) (glob.Glob, error) {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = glob.QuoteMeta(part)
	}
	return glob.Compile(strings.Join(parts, "*"), '/')
}
