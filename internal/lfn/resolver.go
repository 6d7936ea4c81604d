package lfn

import (
	"path"
	"strings"

	"github.com/seutils/seu/internal/log"
)

// FNALMGM is used as default MGM on fnal.gov hosts when none is configured.
const FNALMGM = "root://cmseos.fnal.gov"

// Resolver carries the process-wide defaults needed to turn loose command-line
// arguments into full storage element paths.
type Resolver struct {
	DefaultMGM string
	User       string
	Hostname   string
}

// Format is lfn.Format with the resolver's default MGM as fallback.
func (r *Resolver) Format(p, mgm string) (string, error) {
	if mgm == "" && !HasProtocol(p) {
		mgm = r.DefaultMGM
	}
	return Format(p, mgm)
}

// Split is lfn.Split with the resolver's default MGM as fallback.
func (r *Resolver) Split(p, mgm string) (string, string, error) {
	if mgm == "" && !HasProtocol(p) {
		mgm = r.DefaultMGM
	}
	return Split(p, mgm)
}

// DetectFNAL sets the FNAL MGM as default when running on a fnal.gov host
// without any configured default.
func (r *Resolver) DetectFNAL() {
	if r.DefaultMGM == "" && strings.HasSuffix(r.Hostname, ".fnal.gov") {
		log.Warnf("Detected fnal.gov host; using mgm %s as default if necessary", FNALMGM)
		r.DefaultMGM = FNALMGM
	}
}

// Flexible normalizes a path typed on the command line. Relative paths are
// taken relative to the user's /store/user directory.
func (r *Resolver) Flexible(p, mgm string) (string, error) {
	if IsSSH(p) {
		return p, nil
	}
	r.DetectFNAL()
	if !HasProtocol(p) && !strings.HasPrefix(p, "/") && r.User != "" {
		prefix := path.Join("/store/user", r.User)
		log.Warnf("Pre-fixing %s", prefix)
		p = path.Join(prefix, p)
	}
	if HasProtocol(p) {
		return Format(p, "")
	}
	return r.Format(p, mgm)
}

// UserStore returns /store/user/<user>, or "/" when the user is unknown.
func (r *Resolver) UserStore() string {
	if r.User == "" {
		return "/"
	}
	return path.Join("/store/user", r.User)
}
