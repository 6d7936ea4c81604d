package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/models"
)

// Subcaches used for listing results.
const (
	SubcacheStat        = "stat"
	SubcacheListdir     = "listdir"
	SubcacheListdirStat = "listdir-stat"
)

// Cache is the persistent key/value store results can be memoized in.
type Cache interface {
	Get(subcache, key string, dst any) (bool, error)
	Put(subcache, key string, value any) error
	Delete(subcache, key string) error
}

// Options configures a Client.
type Options struct {
	// Implementation forces a backend by name; "" or "auto" selects one per call.
	Implementation string
	// CopyAttempts is the default number of attempts of Cp.
	CopyAttempts    int
	MaxWalkRequests int
	Safety          *RmSafety
	Resolver        *lfn.Resolver
	// Cache, when set, memoizes Stat and Listdir results.
	Cache Cache
}

// Client executes storage operations on formatted paths, choosing the
// implementation per operation.
type Client struct {
	impls           map[string]Implementation
	forced          Implementation
	copyAttempts    int
	maxWalkRequests int
	safety          *RmSafety
	resolver        *lfn.Resolver
	cache           Cache

	installedMu sync.Mutex
	installed   map[string]bool
}

// NewClient builds a Client over the given implementations.
func NewClient(impls []Implementation, opts Options) (*Client, error) {
	c := &Client{
		impls:           make(map[string]Implementation, len(impls)),
		copyAttempts:    max(opts.CopyAttempts, 1),
		maxWalkRequests: opts.MaxWalkRequests,
		safety:          opts.Safety,
		resolver:        opts.Resolver,
		cache:           opts.Cache,
		installed:       map[string]bool{},
	}
	for _, impl := range impls {
		c.impls[impl.Name()] = impl
	}
	if c.maxWalkRequests <= 0 {
		c.maxWalkRequests = 20
	}
	if c.safety == nil {
		c.safety = &RmSafety{Blacklist: DefaultRmBlacklist}
	}
	if c.resolver == nil {
		c.resolver = &lfn.Resolver{}
	}
	if opts.Implementation != "" && opts.Implementation != ImplAuto {
		impl, ok := c.impls[opts.Implementation]
		if !ok {
			return nil, fmt.Errorf("unknown implementation %q", opts.Implementation)
		}
		c.forced = impl
	}
	return c, nil
}

func (c *Client) isInstalled(impl Implementation) bool {
	c.installedMu.Lock()
	defer c.installedMu.Unlock()
	ok, seen := c.installed[impl.Name()]
	if !seen {
		ok = impl.Installed()
		c.installed[impl.Name()] = ok
	}
	return ok
}

// Implementation returns the backend to use for op on path.
func (c *Client) Implementation(op, path string) (Implementation, error) {
	if c.forced != nil {
		return c.forced, nil
	}
	var order []string
	switch {
	case lfn.IsSSH(path):
		return nil, fmt.Errorf("%w for ssh path %s", ErrNoImplementation, path)
	case op == "rm":
		order = []string{ImplGfal, ImplXrd}
	case lfn.Protocol(path) == "root":
		order = []string{ImplXrd, ImplGfal}
	default:
		order = []string{ImplGfal}
	}
	for _, name := range order {
		impl, ok := c.impls[name]
		if !ok || !c.isInstalled(impl) {
			continue
		}
		log.Debugf("Using implementation %s to execute '%s' (path: %s)", name, op, path)
		return impl, nil
	}
	return nil, fmt.Errorf("%w for cmd %s, path %s", ErrNoImplementation, op, path)
}

// Format resolves p to a full remote path using the configured default MGM.
func (c *Client) Format(p string) (string, error) {
	return c.resolver.Format(p, "")
}

func (c *Client) cached(subcache, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	ok, err := c.cache.Get(subcache, key, dst)
	if err != nil {
		log.Warnf("reading cache %s: %v", subcache, err)
		return false
	}
	if ok {
		log.Debugf("Using cached result for %s from cache %s", key, subcache)
	}
	return ok
}

func (c *Client) remember(subcache, key string, value any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(subcache, key, value); err != nil {
		log.Warnf("writing cache %s: %v", subcache, err)
	}
}

// forget drops the cached stat and listings of path and the listings of its
// parent. With parents set every ancestor listing is dropped as well.
func (c *Client) forget(path string, parents bool) {
	if c.cache == nil {
		return
	}
	drop := func(subcache, key string) {
		if err := c.cache.Delete(subcache, key); err != nil {
			log.Warnf("invalidating cache %s: %v", subcache, err)
		}
	}
	drop(SubcacheStat, path)
	drop(SubcacheListdir, path)
	drop(SubcacheListdirStat, path)
	dirs := lfn.ParentDirs(path)
	if !parents && len(dirs) > 1 {
		dirs = dirs[:1]
	}
	for _, dir := range dirs {
		if parents {
			drop(SubcacheStat, dir)
		}
		drop(SubcacheListdir, dir)
		drop(SubcacheListdirStat, dir)
	}
}

// Stat returns the inode of path.
func (c *Client) Stat(ctx context.Context, path string) (*models.Inode, error) {
	p, err := c.Format(path)
	if err != nil {
		return nil, err
	}
	var inode models.Inode
	if c.cached(SubcacheStat, p, &inode) {
		return &inode, nil
	}
	impl, err := c.Implementation("stat", p)
	if err != nil {
		return nil, err
	}
	res, err := impl.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	c.remember(SubcacheStat, p, res)
	return res, nil
}

// FileOrDir classifies path, reporting Missing instead of ErrNoSuchPath.
func (c *Client) FileOrDir(ctx context.Context, path string) (models.FileKind, error) {
	inode, err := c.Stat(ctx, path)
	switch {
	case errors.Is(err, ErrNoSuchPath):
		return models.Missing, nil
	case err != nil:
		return models.Missing, err
	case inode.IsDir:
		return models.Directory, nil
	default:
		return models.File, nil
	}
}

// Exists reports whether path exists.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	kind, err := c.FileOrDir(ctx, path)
	return kind != models.Missing, err
}

// IsDir reports whether path is an existing directory.
func (c *Client) IsDir(ctx context.Context, path string) (bool, error) {
	kind, err := c.FileOrDir(ctx, path)
	return kind == models.Directory, err
}

// IsFile reports whether path is an existing file.
func (c *Client) IsFile(ctx context.Context, path string) (bool, error) {
	kind, err := c.FileOrDir(ctx, path)
	return kind == models.File, err
}

// Mkdir creates path and any missing parents.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	p, err := c.Format(path)
	if err != nil {
		return err
	}
	impl, err := c.Implementation("mkdir", p)
	if err != nil {
		return err
	}
	if err := impl.Mkdir(ctx, p); err != nil {
		return err
	}
	c.forget(p, true)
	return nil
}

// Rm removes path after checking it against the rm safety lists.
func (c *Client) Rm(ctx context.Context, path string, recursive bool) error {
	p, err := c.Format(path)
	if errors.Is(err, lfn.ErrNoDefaultMGM) {
		// a plain local path
		return c.safety.Check(path)
	}
	if err != nil {
		return err
	}
	if err := c.safety.Check(p); err != nil {
		return err
	}
	impl, err := c.Implementation("rm", p)
	if err != nil {
		return err
	}
	if err := impl.Rm(ctx, p, recursive); err != nil {
		return err
	}
	c.forget(p, false)
	return nil
}

// Cat returns the contents of a remote file.
func (c *Client) Cat(ctx context.Context, path string) (string, error) {
	p, err := c.Format(path)
	if err != nil {
		return "", err
	}
	impl, err := c.Implementation("cat", p)
	if err != nil {
		return "", err
	}
	return impl.Cat(ctx, p)
}

// Cp copies src to dst; either side may be local. Attempts defaults to the
// client's configured number of copy attempts.
func (c *Client) Cp(ctx context.Context, src, dst string, opts CopyOptions) error {
	var err error
	remote := ""
	if lfn.HasProtocol(src) {
		if src, err = c.Format(src); err != nil {
			return err
		}
		remote = src
	}
	remoteDst := lfn.HasProtocol(dst)
	if remoteDst {
		if dst, err = c.Format(dst); err != nil {
			return err
		}
		remote = dst
	}
	if remote == "" {
		return fmt.Errorf("cp %s -> %s: %w", src, dst, ErrNotRemote)
	}
	if opts.Attempts <= 0 {
		opts.Attempts = c.copyAttempts
	}
	impl, err := c.Implementation("cp", remote)
	if err != nil {
		return err
	}
	if err := impl.Cp(ctx, src, dst, opts); err != nil {
		return err
	}
	if remoteDst {
		c.forget(dst, opts.CreateParents)
	}
	return nil
}

// Put creates a remote file with the given contents.
func (c *Client) Put(ctx context.Context, path, contents string) error {
	p := lfn.Normpath(path)
	if !lfn.HasProtocol(p) {
		return &PathError{Op: "put", Path: path, Err: ErrNotRemote}
	}
	tmp := filepath.Join(os.TempDir(), "seu-put-"+uuid.NewString())
	if err := os.WriteFile(tmp, []byte(contents), 0o600); err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()
	return c.Cp(ctx, tmp, p, CopyOptions{CreateParents: true})
}

// Listdir returns the paths in dir. Unless assumeIsDir is set, dir is first
// checked to be a directory.
func (c *Client) Listdir(ctx context.Context, dir string, assumeIsDir bool) ([]string, error) {
	p, err := c.checkDir(ctx, dir, assumeIsDir)
	if err != nil {
		return nil, err
	}
	var contents []string
	if c.cached(SubcacheListdir, p, &contents) {
		return contents, nil
	}
	impl, err := c.Implementation("listdir", p)
	if err != nil {
		return nil, err
	}
	contents, err = impl.Listdir(ctx, p)
	if err != nil {
		return nil, err
	}
	c.remember(SubcacheListdir, p, contents)
	return contents, nil
}

// ListdirStat is Listdir returning inodes.
func (c *Client) ListdirStat(ctx context.Context, dir string, assumeIsDir bool) ([]*models.Inode, error) {
	p, err := c.checkDir(ctx, dir, assumeIsDir)
	if err != nil {
		return nil, err
	}
	var contents []*models.Inode
	if c.cached(SubcacheListdirStat, p, &contents) {
		return contents, nil
	}
	impl, err := c.Implementation("listdir", p)
	if err != nil {
		return nil, err
	}
	contents, err = impl.ListdirStat(ctx, p)
	if err != nil {
		return nil, err
	}
	c.remember(SubcacheListdirStat, p, contents)
	return contents, nil
}

func (c *Client) checkDir(ctx context.Context, dir string, assumeIsDir bool) (string, error) {
	p, err := c.Format(dir)
	if err != nil {
		return "", err
	}
	if assumeIsDir {
		return p, nil
	}
	isDir, err := c.IsDir(ctx, p)
	if err != nil {
		return "", err
	}
	if !isDir {
		return "", &PathError{Op: "listdir", Path: p, Err: ErrNotDirectory}
	}
	return p, nil
}
