// Package lfn implements the path grammar of storage elements.
//
// A remote path (PFN) looks like root://cmseos.fnal.gov//store/user/foo: the
// part up to the double slash is the MGM (protocol plus server), the rest is
// the logical file name (LFN), which always starts with a slash.
package lfn

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNoDefaultMGM is returned when a path without protocol must be resolved
// but no MGM was passed and no default is configured.
var ErrNoDefaultMGM = errors.New("a request relied on the default mgm to be set; " +
	"set default_mgm in the config, export SEU_DEFAULT_MGM, or pass a full path (starting with \"root:\")")

// HasProtocol reports whether p carries a protocol, e.g. root://.
func HasProtocol(p string) bool {
	return strings.Contains(p, "://")
}

// IsSSH reports whether p looks like an scp-style host:/path.
func IsSSH(p string) bool {
	return strings.Contains(p, ":/") && !strings.Contains(p, "://")
}

// SplitProtocol splits a PFN into protocol, server and LFN.
func SplitProtocol(p string) (protocol, server, lfn string, err error) {
	if !HasProtocol(p) {
		return "", "", "", fmt.Errorf("attempted to get protocol from %s, but there does not seem to be any", p)
	}
	protocol, rest, _ := strings.Cut(p, "://")
	server, lfn, ok := strings.Cut(rest, "//")
	if !ok {
		return "", "", "", fmt.Errorf("could not determine server and logical file name from %s", p)
	}
	// restore the leading slash dropped by the cut
	return protocol, server, "/" + lfn, nil
}

// Split returns the MGM and LFN the caller most likely meant.
//
// The MGM is taken from p when it has a protocol; an explicit mgm that
// disagrees is an error. Without protocol mgm is used as is, and an empty mgm
// yields ErrNoDefaultMGM.
func Split(p, mgm string) (string, string, error) {
	var lfn string
	switch {
	case HasProtocol(p):
		protocol, server, l, err := SplitProtocol(p)
		if err != nil {
			return "", "", err
		}
		fromPath := protocol + "://" + server
		if mgm != "" && strings.TrimRight(mgm, "/") != fromPath {
			return "", "", fmt.Errorf("conflicting mgms determined from path and passed argument: from path %s: %s, from argument: %s", p, fromPath, mgm)
		}
		mgm, lfn = fromPath, l
	case mgm == "":
		return "", "", ErrNoDefaultMGM
	default:
		lfn = p
	}
	if !strings.HasPrefix(lfn, "/") {
		return "", "", fmt.Errorf("lfn %s does not start with '/'", lfn)
	}
	return strings.TrimRight(mgm, "/"), lfn, nil
}

// Join glues an MGM and an LFN together with the double slash separator.
func Join(mgm, lfn string) (string, error) {
	if !strings.HasPrefix(lfn, "/") {
		return "", fmt.Errorf("lfn %s does not start with '/'", lfn)
	}
	if !strings.HasSuffix(mgm, "/") {
		mgm += "/"
	}
	return mgm + lfn, nil
}

// Format ensures p is a full path on a storage element, using mgm when p has
// no protocol. SSH paths are returned untouched.
func Format(p, mgm string) (string, error) {
	if IsSSH(p) {
		return p, nil
	}
	mgm, l, err := Split(p, mgm)
	if err != nil {
		return "", err
	}
	return Join(mgm, path.Clean(l))
}

// Normpath cleans p, keeping the MGM of remote paths.
func Normpath(p string) string {
	if !HasProtocol(p) {
		return path.Clean(p)
	}
	mgm, l, err := Split(p, "")
	if err != nil {
		return p
	}
	joined, _ := Join(mgm, path.Clean(l))
	return joined
}

// Dirname returns the parent of p, keeping the MGM of remote paths.
func Dirname(p string) string {
	if !HasProtocol(p) {
		return path.Dir(path.Clean(p))
	}
	mgm, l, err := Split(p, "")
	if err != nil {
		return p
	}
	joined, _ := Join(mgm, path.Dir(path.Clean(l)))
	return joined
}

// Basename returns the last element of p.
func Basename(p string) string {
	if HasProtocol(p) {
		if _, l, err := Split(p, ""); err == nil {
			return path.Base(l)
		}
	}
	return path.Base(p)
}

// ParentDirs lists every parent directory of p, nearest first, ending at the root.
func ParentDirs(p string) []string {
	var parents []string
	dir := Dirname(p)
	previous := ""
	for dir != previous {
		parents = append(parents, dir)
		previous = dir
		dir = Dirname(dir)
	}
	return parents
}

// Protocol returns the protocol of p, or "" for local paths.
func Protocol(p string) string {
	protocol, _, ok := strings.Cut(p, "://")
	if !ok {
		return ""
	}
	return protocol
}

// LFN strips the MGM from p. Local paths are returned cleaned.
func LFN(p string) string {
	if !HasProtocol(p) {
		return path.Clean(p)
	}
	_, l, err := Split(p, "")
	if err != nil {
		return p
	}
	return path.Clean(l)
}

// MGM returns the MGM part of p, or "" for local paths.
func MGM(p string) string {
	if !HasProtocol(p) {
		return ""
	}
	mgm, _, err := Split(p, "")
	if err != nil {
		return ""
	}
	return mgm
}
