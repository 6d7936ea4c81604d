// Package rootio inspects ROOT files, local or served over xrootd.
package rootio

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	_ "go-hep.org/x/hep/groot/riofs/plugin/xrootd"
	"go-hep.org/x/hep/groot/root"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/seutils/seu/internal/cache"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
)

// SubcacheNEntries holds entry counts keyed by file and tree path.
const SubcacheNEntries = "nentries"

var treeClasses = []string{"TTree", "TNtuple", "TNtupleD"}

var dirClasses = []string{"TDirectory", "TDirectoryFile"}

// Branch is a node of the branch hierarchy of a tree.
type Branch struct {
	Name     string
	Type     string
	Branches []*Branch
}

// Reader opens ROOT files. Entry counts are memoized in Cache when it is set;
// Fresh bypasses reading the cache but still refreshes it.
type Reader struct {
	Cache *cache.Store
	Fresh bool
}

func open(ctx context.Context, file string) (*riofs.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debugf("Opening ROOT file %s", file)
	f, err := groot.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	return f, nil
}

// Trees returns the path of every tree in file, recursing into directories.
func (r *Reader) Trees(ctx context.Context, file string) ([]string, error) {
	f, err := open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var trees []string
	if err := collectTrees(f, "", &trees); err != nil {
		return nil, fmt.Errorf("listing trees in %s: %w", file, err)
	}
	return trees, nil
}

func collectTrees(dir riofs.Directory, prefix string, trees *[]string) error {
	seen := map[string]bool{}
	for _, key := range dir.Keys() {
		name := path.Join(prefix, key.Name())
		if seen[name] {
			// older cycle of the same object
			continue
		}
		seen[name] = true
		switch {
		case slices.Contains(treeClasses, key.ClassName()):
			*trees = append(*trees, name)
		case slices.Contains(dirClasses, key.ClassName()):
			obj, err := key.Object()
			if err != nil {
				return err
			}
			sub, ok := obj.(riofs.Directory)
			if !ok {
				continue
			}
			if err := collectTrees(sub, name, trees); err != nil {
				return err
			}
		}
	}
	return nil
}

func getTree(f *riofs.File, file, treepath string) (rtree.Tree, error) {
	if treepath == "" {
		var trees []string
		if err := collectTrees(f, "", &trees); err != nil {
			return nil, err
		}
		if len(trees) == 0 {
			return nil, fmt.Errorf("no tree found in %s", file)
		}
		treepath = trees[0]
		log.Debugf("Using tree %s of %s", treepath, file)
	}
	obj, err := riofs.Dir(f).Get(treepath)
	if err != nil {
		return nil, fmt.Errorf("getting %s from %s: %w", treepath, file, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return nil, fmt.Errorf("%s in %s is a %s, not a tree", treepath, file, className(obj))
	}
	return tree, nil
}

func className(obj root.Object) string {
	if obj == nil {
		return "<nil>"
	}
	return obj.Class()
}

// NEntries returns the number of entries of treepath in file; an empty
// treepath selects the first tree found.
func (r *Reader) NEntries(ctx context.Context, file, treepath string) (int64, error) {
	compute := func() (int64, error) {
		f, err := open(ctx, file)
		if err != nil {
			return 0, err
		}
		defer func() { _ = f.Close() }()
		tree, err := getTree(f, file, treepath)
		if err != nil {
			return 0, err
		}
		return tree.Entries(), nil
	}
	if r.Cache == nil {
		return compute()
	}
	key := nentriesKey(file, treepath)
	if r.Fresh {
		n, err := compute()
		if err == nil {
			if putErr := r.Cache.Put(SubcacheNEntries, key, n); putErr != nil {
				log.Warnf("%v", putErr)
			}
		}
		return n, err
	}
	return cache.Memo(r.Cache, SubcacheNEntries, key, compute)
}

// nentriesKey identifies the count of treepath in file. Remote paths are used
// as given; local files are keyed by absolute path, size and modification time
// so another file of the same name, or a rewritten one, misses.
func nentriesKey(file, treepath string) string {
	if lfn.HasProtocol(file) {
		return file + "::" + treepath
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	info, err := os.Stat(abs)
	if err != nil {
		return abs + "::" + treepath
	}
	return fmt.Sprintf("%s@%d:%d::%s", abs, info.Size(), info.ModTime().UnixNano(), treepath)
}

// Branches returns the branch hierarchy of treepath in file.
func (r *Reader) Branches(ctx context.Context, file, treepath string) ([]*Branch, error) {
	f, err := open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	tree, err := getTree(f, file, treepath)
	if err != nil {
		return nil, err
	}
	return convertBranches(tree.Branches()), nil
}

func convertBranches(branches []rtree.Branch) []*Branch {
	out := make([]*Branch, 0, len(branches))
	for _, b := range branches {
		out = append(out, &Branch{
			Name:     b.Name(),
			Type:     branchType(b),
			Branches: convertBranches(b.Branches()),
		})
	}
	return out
}

func branchType(b rtree.Branch) string {
	leaves := b.Leaves()
	if len(leaves) == 1 {
		return leaves[0].TypeName()
	}
	return b.Class()
}
