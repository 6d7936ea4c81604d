// Package storage talks to grid storage elements through the client tools
// installed on the machine (xrootd, gfal2) or an in-memory fake.
package storage

import (
	"context"

	"github.com/seutils/seu/internal/models"
)

// CopyOptions tunes Implementation.Cp.
type CopyOptions struct {
	// Attempts is the number of tries before giving up.
	Attempts int
	// CreateParents creates missing parent directories of the destination.
	CreateParents bool
	// Silent suppresses the progress output of the copy tool.
	Silent bool
	Force  bool
}

// Implementation is a backend able to execute the basic storage operations.
// Paths are fully formatted (root://host//lfn); Cp also accepts local paths.
type Implementation interface {
	Name() string
	Installed() bool
	Stat(ctx context.Context, path string) (*models.Inode, error)
	Mkdir(ctx context.Context, path string) error
	Rm(ctx context.Context, path string, recursive bool) error
	Cat(ctx context.Context, path string) (string, error)
	Listdir(ctx context.Context, dir string) ([]string, error)
	ListdirStat(ctx context.Context, dir string) ([]*models.Inode, error)
	Cp(ctx context.Context, src, dst string, opts CopyOptions) error
}

// Implementation names accepted by the configuration.
const (
	ImplAuto = "auto"
	ImplXrd  = "xrd"
	ImplGfal = "gfal"
	ImplFake = "fake"
)
