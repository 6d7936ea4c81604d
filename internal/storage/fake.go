package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/models"
)

type fakeNode struct {
	isDir    bool
	contents []byte
	modTime  time.Time
}

// Fake is an in-memory storage element spanning any number of hosts. Local
// paths given to Cp go through the real filesystem.
type Fake struct {
	mu    sync.RWMutex
	nodes map[string]*fakeNode
	now   func() time.Time
}

// NewFake returns an empty fake storage element.
func NewFake() *Fake {
	return &Fake{nodes: map[string]*fakeNode{}, now: time.Now}
}

// FakeFixture is the YAML layout used to seed a Fake.
//
//	dirs:
//	  - root://foo.bar.gov//store/user/test/empty
//	files:
//	  - path: root://foo.bar.gov//store/user/test/a.txt
//	    contents: hello
//	    mtime: 2021-02-15T10:52:01Z
type FakeFixture struct {
	Dirs  []string          `yaml:"dirs"`
	Files []FakeFixtureFile `yaml:"files"`
}

// FakeFixtureFile is a single file of a FakeFixture.
type FakeFixtureFile struct {
	Path     string    `yaml:"path"`
	Contents string    `yaml:"contents"`
	ModTime  time.Time `yaml:"mtime"`
}

// LoadFakeFile builds a Fake from a YAML fixture on disk.
func LoadFakeFile(path string) (*Fake, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading fake filesystem %s: %w", path, err)
	}
	var fixture FakeFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parsing fake filesystem %s: %w", path, err)
	}
	f := NewFake()
	for _, d := range fixture.Dirs {
		if err := f.AddDir(d); err != nil {
			return nil, err
		}
	}
	for _, file := range fixture.Files {
		if err := f.AddFile(file.Path, file.Contents, file.ModTime); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddDir creates a directory and its parents.
func (f *Fake) AddDir(path string) error {
	p, err := lfn.Format(path, "")
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mkdirLocked(p)
}

// AddFile creates a file and its parents. A zero modTime means now.
func (f *Fake) AddFile(path, contents string, modTime time.Time) error {
	p, err := lfn.Format(path, "")
	if err != nil {
		return err
	}
	if modTime.IsZero() {
		modTime = f.now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mkParentsLocked(p); err != nil {
		return err
	}
	f.nodes[p] = &fakeNode{contents: []byte(contents), modTime: modTime}
	return nil
}

// Paths returns every path in the fake, sorted.
func (f *Fake) Paths() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	paths := make([]string, 0, len(f.nodes))
	for p := range f.nodes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (f *Fake) mkParentsLocked(p string) error {
	parents := lfn.ParentDirs(p)
	for i := len(parents) - 1; i >= 0; i-- {
		node, ok := f.nodes[parents[i]]
		if !ok {
			f.nodes[parents[i]] = &fakeNode{isDir: true, modTime: f.now()}
			continue
		}
		if !node.isDir {
			return &PathError{Op: "mkdir", Path: parents[i], Err: ErrNotDirectory}
		}
	}
	return nil
}

func (f *Fake) mkdirLocked(p string) error {
	if err := f.mkParentsLocked(p); err != nil {
		return err
	}
	if node, ok := f.nodes[p]; ok {
		if !node.isDir {
			return &PathError{Op: "mkdir", Path: p, Err: ErrExists}
		}
		return nil
	}
	f.nodes[p] = &fakeNode{isDir: true, modTime: f.now()}
	return nil
}

func (f *Fake) Name() string { return ImplFake }

func (f *Fake) Installed() bool { return true }

func (f *Fake) inode(p string, node *fakeNode) *models.Inode {
	return models.NewInode(p, node.modTime, node.isDir, int64(len(node.contents)))
}

func (f *Fake) Stat(_ context.Context, p string) (*models.Inode, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	node, ok := f.nodes[p]
	if !ok {
		return nil, &PathError{Op: "stat", Path: p, Err: ErrNoSuchPath}
	}
	return f.inode(p, node), nil
}

func (f *Fake) Mkdir(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mkdirLocked(p)
}

func (f *Fake) Rm(_ context.Context, p string, recursive bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	node, ok := f.nodes[p]
	if !ok {
		return &PathError{Op: "rm", Path: p, Err: ErrNoSuchPath}
	}
	if node.isDir {
		if !recursive {
			return &PathError{Op: "rm", Path: p, Err: ErrIsDirectory}
		}
		prefix := strings.TrimSuffix(p, "/") + "/"
		for other := range f.nodes {
			if strings.HasPrefix(other, prefix) {
				delete(f.nodes, other)
			}
		}
	}
	delete(f.nodes, p)
	return nil
}

func (f *Fake) Cat(_ context.Context, p string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	node, ok := f.nodes[p]
	if !ok {
		return "", &PathError{Op: "cat", Path: p, Err: ErrNoSuchPath}
	}
	if node.isDir {
		return "", &PathError{Op: "cat", Path: p, Err: fmt.Errorf("is a directory")}
	}
	return string(node.contents), nil
}

func (f *Fake) children(dir string) ([]string, error) {
	node, ok := f.nodes[dir]
	if !ok {
		return nil, &PathError{Op: "listdir", Path: dir, Err: ErrNoSuchPath}
	}
	if !node.isDir {
		return nil, &PathError{Op: "listdir", Path: dir, Err: ErrNotDirectory}
	}
	var children []string
	for p := range f.nodes {
		if p != dir && lfn.Dirname(p) == dir {
			children = append(children, p)
		}
	}
	slices.Sort(children)
	return children, nil
}

func (f *Fake) Listdir(_ context.Context, dir string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.children(dir)
}

func (f *Fake) ListdirStat(_ context.Context, dir string) ([]*models.Inode, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	children, err := f.children(dir)
	if err != nil {
		return nil, err
	}
	inodes := make([]*models.Inode, 0, len(children))
	for _, c := range children {
		inodes = append(inodes, f.inode(c, f.nodes[c]))
	}
	return inodes, nil
}

func (f *Fake) read(p string) ([]byte, error) {
	if !lfn.HasProtocol(p) {
		return os.ReadFile(p) //nolint:gosec
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	node, ok := f.nodes[p]
	if !ok {
		return nil, &PathError{Op: "cp", Path: p, Err: ErrNoSuchPath}
	}
	if node.isDir {
		return nil, &PathError{Op: "cp", Path: p, Err: fmt.Errorf("is a directory")}
	}
	return append([]byte(nil), node.contents...), nil
}

func (f *Fake) write(p string, data []byte, opts CopyOptions) error {
	if !lfn.HasProtocol(p) {
		if _, err := os.Stat(p); err == nil && !opts.Force {
			return &PathError{Op: "cp", Path: p, Err: ErrExists}
		}
		if opts.CreateParents {
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(p, data, 0o644) //nolint:gosec
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if node, ok := f.nodes[p]; ok && (node.isDir || !opts.Force) {
		return &PathError{Op: "cp", Path: p, Err: ErrExists}
	}
	if opts.CreateParents {
		if err := f.mkParentsLocked(p); err != nil {
			return err
		}
	} else if parent, ok := f.nodes[lfn.Dirname(p)]; !ok || !parent.isDir {
		return &PathError{Op: "cp", Path: lfn.Dirname(p), Err: ErrNoSuchPath}
	}
	f.nodes[p] = &fakeNode{contents: data, modTime: f.now()}
	return nil
}

func (f *Fake) Cp(_ context.Context, src, dst string, opts CopyOptions) error {
	data, err := f.read(src)
	if err != nil {
		return err
	}
	return f.write(dst, data, opts)
}
