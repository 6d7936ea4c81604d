package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	devicons "github.com/epilande/go-devicons"

	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/models"
	"github.com/seutils/seu/internal/storage"
)

// Sort keys of long listings.
const (
	SortName = "name"
	SortDate = "date"
	SortSize = "size"
)

// ListOptions configures List.
type ListOptions struct {
	Long  bool
	Sort  string
	Icons bool
}

// inodeInfo lets devicons pick an icon for an inode.
type inodeInfo struct {
	inode *models.Inode
}

func (i inodeInfo) Name() string { return i.inode.Basename() }

func (i inodeInfo) Size() int64 { return i.inode.Size }

func (i inodeInfo) Mode() os.FileMode {
	if i.inode.IsDir {
		return os.ModeDir | 0o755
	}
	return 0o644
}

func (i inodeInfo) ModTime() time.Time { return i.inode.ModTime }

func (i inodeInfo) IsDir() bool { return i.inode.IsDir }

func (i inodeInfo) Sys() any { return nil }

func iconFor(inode *models.Inode) string {
	style := devicons.IconForInfo(inodeInfo{inode: inode})
	if style.Icon == "" {
		return ""
	}
	return style.Icon + " "
}

func sortInodes(inodes []*models.Inode, key string) {
	switch key {
	case SortDate:
		sort.SliceStable(inodes, func(i, j int) bool { return inodes[i].ModTime.After(inodes[j].ModTime) })
	case SortSize:
		sort.SliceStable(inodes, func(i, j int) bool { return inodes[i].Size > inodes[j].Size })
	default:
		sort.SliceStable(inodes, func(i, j int) bool { return inodes[i].Path < inodes[j].Path })
	}
}

// List prints the contents of every path, expanding wildcards. Without paths
// the user's /store/user directory is listed.
func List(ctx context.Context, env *Env, paths []string, opts ListOptions) error {
	if opts.Sort == "" {
		opts.Sort = SortName
	}
	switch opts.Sort {
	case SortName, SortDate, SortSize:
	default:
		return fmt.Errorf("invalid sort key %q (choices: name, date, size)", opts.Sort)
	}
	if !opts.Long && opts.Sort != SortName {
		log.Warnf("Option --sort ignored (use --long as well)")
	}
	if len(paths) == 0 {
		paths = []string{env.resolver().UserStore()}
	}

	s := env.styles()
	for _, p := range paths {
		path, err := env.resolver().Flexible(p, "")
		if err != nil {
			return err
		}
		if !opts.Long && !opts.Icons {
			var names []string
			if hasWildcard(path) {
				names, err = env.Storage.LsWildcard(ctx, path)
			} else {
				names, err = env.Storage.Ls(ctx, path, storage.LsOptions{})
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(env.Out, name)
			}
			continue
		}

		var inodes []*models.Inode
		if hasWildcard(path) {
			inodes, err = env.Storage.LsWildcardStat(ctx, path)
		} else {
			inodes, err = env.Storage.LsStat(ctx, path, storage.LsOptions{})
		}
		if err != nil {
			return err
		}
		if opts.Long {
			sortInodes(inodes, opts.Sort)
		}
		for _, inode := range inodes {
			name := inode.Path
			if inode.IsDir {
				name = s.Dir.Render(name)
			}
			if opts.Icons {
				name = iconFor(inode) + name
			}
			if !opts.Long {
				fmt.Fprintln(env.Out, name)
				continue
			}
			fmt.Fprintf(env.Out, "%s  %s  %s\n",
				s.Muted.Render(inode.ModTime.Format("2006-01-02 15:04")),
				s.Muted.Render(fmt.Sprintf("%-8s", inode.SizeHuman())),
				name)
		}
	}
	return nil
}

// Du prints the size of everything matching each pattern.
func Du(ctx context.Context, env *Env, patterns []string, sortBySize bool) error {
	for _, p := range patterns {
		pattern, err := env.resolver().Flexible(p, "")
		if err != nil {
			return err
		}
		inodes, err := env.Storage.LsWildcardStat(ctx, pattern)
		if err != nil {
			return err
		}
		if sortBySize {
			sortInodes(inodes, SortSize)
		}
		for _, inode := range inodes {
			fmt.Fprintf(env.Out, "%-8s %s\n", inode.SizeHuman(), inode.Path)
		}
	}
	return nil
}
