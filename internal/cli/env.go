// Package cli implements the seu commands on top of the storage, rootio and
// hadd packages. Output goes to the writers of an Env so commands can be
// tested without a terminal.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/models"
	"github.com/seutils/seu/internal/storage"
	"github.com/seutils/seu/internal/theme"
)

// Storage is the part of the storage client the commands use.
type Storage interface {
	Ls(ctx context.Context, path string, opts storage.LsOptions) ([]string, error)
	LsStat(ctx context.Context, path string, opts storage.LsOptions) ([]*models.Inode, error)
	LsWildcard(ctx context.Context, pattern string) ([]string, error)
	LsWildcardStat(ctx context.Context, pattern string) ([]*models.Inode, error)
	Rm(ctx context.Context, path string, recursive bool) error
	Mkdir(ctx context.Context, path string) error
	Cat(ctx context.Context, path string) (string, error)
	Cp(ctx context.Context, src, dst string, opts storage.CopyOptions) error
}

var _ Storage = (*storage.Client)(nil)

// Env bundles the streams and services shared by every command.
type Env struct {
	Storage  Storage
	Resolver *lfn.Resolver
	Out      io.Writer
	Err      io.Writer
	In       io.Reader
	Styles   *theme.Styles
}

func (e *Env) styles() *theme.Styles {
	if e.Styles == nil {
		return theme.Plain()
	}
	return e.Styles
}

func (e *Env) resolver() *lfn.Resolver {
	if e.Resolver == nil {
		return &lfn.Resolver{}
	}
	return e.Resolver
}

// hasWildcard reports whether p needs wildcard expansion.
func hasWildcard(p string) bool {
	return strings.Contains(p, "*")
}

// ExpandLFNs formats every path the way it was meant on the command line and
// expands the ones containing wildcards. Directories are not expanded.
func ExpandLFNs(ctx context.Context, env *Env, paths []string, mgm string) ([]string, error) {
	var out []string
	for _, p := range paths {
		formatted, err := env.resolver().Flexible(p, mgm)
		if err != nil {
			return nil, err
		}
		if !hasWildcard(formatted) {
			out = append(out, formatted)
			continue
		}
		matches, err := env.Storage.LsWildcard(ctx, formatted)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

// isRemote tells whether a ROOT file argument refers to a storage element.
func isRemote(p, mgm string) bool {
	return lfn.HasProtocol(p) || mgm != ""
}

// expandRootFiles resolves arguments that may be local files. Paths with a
// protocol, or any path when mgm is given, are remote. Other paths are local
// globs; a path matching nothing locally falls back to remote formatting.
func expandRootFiles(ctx context.Context, env *Env, paths []string, mgm string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if !isRemote(p, mgm) {
			local, err := localMatches(p)
			if err != nil {
				return nil, err
			}
			if len(local) > 0 {
				out = append(out, local...)
				continue
			}
		}
		remote, err := ExpandLFNs(ctx, env, []string{p}, mgm)
		if err != nil {
			return nil, err
		}
		out = append(out, remote...)
	}
	return out, nil
}

func localMatches(p string) ([]string, error) {
	if hasWildcard(p) {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", p, err)
		}
		return matches, nil
	}
	if _, err := os.Stat(p); err == nil {
		return []string{p}, nil
	}
	return nil, nil
}
