// Package models defines the data objects shared across seu packages.
package models

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"
)

// Inode is the metadata of a single entry on a storage element.
type Inode struct {
	Path    string    `json:"path" yaml:"path"`
	ModTime time.Time `json:"mtime" yaml:"mtime"`
	IsDir   bool      `json:"isdir" yaml:"isdir"`
	Size    int64     `json:"size" yaml:"size"`
}

// NewInode builds an Inode with a normalized path.
func NewInode(p string, modTime time.Time, isDir bool, size int64) *Inode {
	return &Inode{Path: normpath(p), ModTime: modTime, IsDir: isDir, Size: size}
}

// IsFile is the negation of IsDir.
func (i *Inode) IsFile() bool {
	return !i.IsDir
}

// Basename returns the last path element.
func (i *Inode) Basename() string {
	return path.Base(i.LFN())
}

// Dirname returns the parent path, MGM included.
func (i *Inode) Dirname() string {
	mgm := i.MGM()
	dir := path.Dir(i.LFN())
	if mgm == "" {
		return dir
	}
	return mgm + "/" + dir
}

// LFN returns the path without its MGM.
func (i *Inode) LFN() string {
	_, rest, ok := strings.Cut(i.Path, "://")
	if !ok {
		return i.Path
	}
	_, l, ok := strings.Cut(rest, "//")
	if !ok {
		return i.Path
	}
	return "/" + l
}

// MGM returns the protocol and server of the path, or "" for local paths.
func (i *Inode) MGM() string {
	protocol, rest, ok := strings.Cut(i.Path, "://")
	if !ok {
		return ""
	}
	server, _, _ := strings.Cut(rest, "//")
	return protocol + "://" + server
}

// SizeHuman returns the size formatted like "1.0 kb".
func (i *Inode) SizeHuman() string {
	return HumanSize(i.Size)
}

func (i *Inode) String() string {
	kind := "file"
	if i.IsDir {
		kind = "dir"
	}
	return fmt.Sprintf("%s (%s, %s, %s)", i.Path, kind, i.SizeHuman(), i.ModTime.Format(time.DateTime))
}

var sizeUnits = []string{"", "k", "M", "G", "T", "P", "E", "Z"}

// HumanSize formats n bytes with base 1024 units.
func HumanSize(n int64) string {
	v := float64(n)
	for _, unit := range sizeUnits {
		if math.Abs(v) < 1024.0 {
			return fmt.Sprintf("%3.1f %sb", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f Yb", v)
}

// FileKind classifies the result of a stat.
type FileKind int

// FileKind values returned by FileOrDir-style lookups.
const (
	Missing FileKind = iota
	File
	Directory
)

func (k FileKind) String() string {
	switch k {
	case File:
		return "f"
	case Directory:
		return "d"
	default:
		return "missing"
	}
}

// normpath cleans the LFN part and keeps the MGM.
func normpath(p string) string {
	protocol, rest, ok := strings.Cut(p, "://")
	if !ok {
		return path.Clean(p)
	}
	server, l, ok := strings.Cut(rest, "//")
	if !ok {
		return p
	}
	return protocol + "://" + server + "/" + path.Clean("/"+l)
}
