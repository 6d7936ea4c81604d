package storage

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/models"
)

// LsOptions tunes Ls and LsStat.
type LsOptions struct {
	// AssumeIsDir skips the existence check and lists path as a directory.
	AssumeIsDir bool
	// NoExpandDirectory returns the directory itself instead of its contents,
	// like ls -d.
	NoExpandDirectory bool
}

// Ls lists path: a file yields itself, a directory its contents.
func (c *Client) Ls(ctx context.Context, path string, opts LsOptions) ([]string, error) {
	p, kind, err := c.lsKind(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if kind == models.Directory && !opts.NoExpandDirectory {
		return c.Listdir(ctx, p, true)
	}
	return []string{p}, nil
}

// LsStat is Ls returning inodes.
func (c *Client) LsStat(ctx context.Context, path string, opts LsOptions) ([]*models.Inode, error) {
	p, kind, err := c.lsKind(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if kind == models.Directory && !opts.NoExpandDirectory {
		return c.ListdirStat(ctx, p, true)
	}
	inode, err := c.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	return []*models.Inode{inode}, nil
}

func (c *Client) lsKind(ctx context.Context, path string, opts LsOptions) (string, models.FileKind, error) {
	p, err := c.Format(path)
	if err != nil {
		return "", models.Missing, err
	}
	if opts.AssumeIsDir {
		return p, models.Directory, nil
	}
	kind, err := c.FileOrDir(ctx, p)
	if err != nil {
		return "", models.Missing, err
	}
	if kind == models.Missing {
		return "", models.Missing, &PathError{Op: "ls", Path: p, Err: ErrNoSuchPath}
	}
	return p, kind, nil
}

// WalkStep is one directory visited by Walk. The callback may shrink Dirs to
// prune the traversal.
type WalkStep struct {
	Dir   string
	Dirs  []*models.Inode
	Files []*models.Inode
}

// WalkFunc is called once per visited directory, parents before children.
type WalkFunc func(step *WalkStep) error

// Walk traverses the tree under root depth first. Entries are sorted by
// basename. The number of listing requests is capped to avoid accidentally
// crawling a whole storage element.
func (c *Client) Walk(ctx context.Context, root string, fn WalkFunc) error {
	p, err := c.Format(root)
	if err != nil {
		return err
	}
	isDir, err := c.IsDir(ctx, p)
	if err != nil {
		return err
	}
	if !isDir {
		return &PathError{Op: "walk", Path: p, Err: ErrNotDirectory}
	}
	requests := 0
	return c.walk(ctx, p, fn, &requests)
}

func (c *Client) walk(ctx context.Context, dir string, fn WalkFunc, requests *int) error {
	if *requests >= c.maxWalkRequests {
		return fmt.Errorf("%w (%d); raise max_walk_requests if this many requests are really needed",
			ErrMaxWalkRequests, c.maxWalkRequests)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	contents, err := c.ListdirStat(ctx, dir, true)
	if err != nil {
		return err
	}
	*requests++
	step := &WalkStep{Dir: dir}
	for _, inode := range contents {
		if inode.IsDir {
			step.Dirs = append(step.Dirs, inode)
		} else {
			step.Files = append(step.Files, inode)
		}
	}
	sortByBasename(step.Dirs)
	sortByBasename(step.Files)
	if err := fn(step); err != nil {
		return err
	}
	for _, d := range step.Dirs {
		if err := c.walk(ctx, d.Path, fn, requests); err != nil {
			return err
		}
	}
	return nil
}

func sortByBasename(inodes []*models.Inode) {
	slices.SortFunc(inodes, func(a, b *models.Inode) int {
		return strings.Compare(a.Basename(), b.Basename())
	})
}

// LsWildcard is Ls accepting * wildcards; directories are not expanded.
func (c *Client) LsWildcard(ctx context.Context, pattern string) ([]string, error) {
	p, err := c.Format(pattern)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(p, "*") {
		return c.Ls(ctx, p, LsOptions{NoExpandDirectory: true})
	}
	dir, last := lfn.Dirname(p), lfn.Basename(p)
	if !strings.Contains(dir, "*") {
		log.Debugf("Detected * only in very last part of pattern; using a single listing")
		contents, err := c.Ls(ctx, dir, LsOptions{})
		if err != nil {
			return nil, err
		}
		if last == "*" {
			return contents, nil
		}
		g, err := compileWildcard(last)
		if err != nil {
			return nil, err
		}
		matches := contents[:0:0]
		for _, entry := range contents {
			if g.Match(lfn.Basename(entry)) {
				matches = append(matches, entry)
			}
		}
		return matches, nil
	}
	inodes, err := c.walkWildcard(ctx, p)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(inodes))
	for i, inode := range inodes {
		paths[i] = inode.Path
	}
	return paths, nil
}

// LsWildcardStat is LsWildcard returning inodes.
func (c *Client) LsWildcardStat(ctx context.Context, pattern string) ([]*models.Inode, error) {
	p, err := c.Format(pattern)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(p, "*") {
		return c.LsStat(ctx, p, LsOptions{NoExpandDirectory: true})
	}
	return c.walkWildcard(ctx, p)
}

// lfnDepth is the number of components of an LFN; / has depth 0.
func lfnDepth(l string) int {
	l = path.Clean(l)
	if l == "/" {
		return 0
	}
	return strings.Count(l, "/")
}

// walkWildcard walks from the longest wildcard-free directory of pattern,
// pruning directories that cannot match, and collects entries at the depth
// of the pattern.
func (c *Client) walkWildcard(ctx context.Context, pattern string) ([]*models.Inode, error) {
	mgm, patternLFN, err := lfn.Split(pattern, "")
	if err != nil {
		return nil, err
	}
	prefix := patternLFN[:strings.Index(patternLFN, "*")]
	baseLFN := prefix[:strings.LastIndex(prefix, "/")]
	if baseLFN == "" {
		baseLFN = "/"
	}
	base, err := lfn.Join(mgm, baseLFN)
	if err != nil {
		return nil, err
	}
	components := strings.Split(patternLFN, "/")
	patternDepth := lfnDepth(patternLFN)
	log.Debugf("Walking %s for pattern %s (depth %d)", base, pattern, patternDepth)

	var matches []*models.Inode
	err = c.Walk(ctx, base, func(step *WalkStep) error {
		childDepth := lfnDepth(lfn.LFN(step.Dir)) + 1
		g, err := compileWildcard(strings.Join(components[:childDepth+1], "/"))
		if err != nil {
			return err
		}
		keep := step.Dirs[:0]
		for _, d := range step.Dirs {
			if g.Match(d.LFN()) {
				keep = append(keep, d)
			}
		}
		step.Dirs = keep
		if childDepth == patternDepth {
			matches = append(matches, step.Dirs...)
			for _, f := range step.Files {
				if g.Match(f.LFN()) {
					matches = append(matches, f)
				}
			}
			step.Dirs = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
