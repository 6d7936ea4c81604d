package cache

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/seutils/seu/internal/log"
)

// TarballSuffix is appended to dump destinations that lack it.
const TarballSuffix = ".tar.gz"

// Dump writes the cache directory to a gzipped tarball and returns its
// absolute path. With onlyIfUpdated, the previous dump of this Store is
// returned as is when nothing was written since.
func (s *Store) Dump(dst string, onlyIfUpdated bool) (string, error) {
	if !strings.HasSuffix(dst, TarballSuffix) {
		dst += TarballSuffix
	}
	dst, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if onlyIfUpdated && s.lastDumpPath != "" && s.lastWrite.Before(s.lastDump) {
		log.Infof("Detected no change w.r.t. last tarball %s; using it instead", s.lastDumpPath)
		return s.lastDumpPath, nil
	}
	if _, err := s.conn.ExecContext(context.Background(), "CHECKPOINT"); err != nil {
		return "", fmt.Errorf("checkpointing cache database: %w", err)
	}
	log.Infof("Dumping %s --> %s", s.dir, dst)
	if err := writeTarball(s.dir, dst); err != nil {
		return "", err
	}
	s.lastDump = s.now()
	s.lastDumpPath = dst
	return dst, nil
}

// Load replaces the cache contents with those of tarball.
func (s *Store) Load(tarball string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return err
		}
		s.conn = nil
	}
	log.Infof("Extracting %s --> %s", tarball, s.dir)
	if err := extractTarball(tarball, s.dir); err != nil {
		return err
	}
	s.lastWrite = s.now()
	return s.open()
}

func writeTarball(srcDir, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst) //nolint:gosec
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil || rel == "." {
			return err
		}
		if filepath.Clean(p) == filepath.Clean(dst) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(p) //nolint:gosec
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(tw, f)
		return err
	})

	for _, c := range []io.Closer{tw, gz, out} {
		if err := c.Close(); err != nil && walkErr == nil {
			walkErr = err
		}
	}
	if walkErr != nil {
		return fmt.Errorf("writing tarball %s: %w", dst, walkErr)
	}
	return nil
}

func extractTarball(tarball, dst string) error {
	in, err := os.Open(tarball) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", tarball, err)
	}
	defer func() { _ = gz.Close() }()
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", tarball, err)
		}
		name := filepath.FromSlash(strings.TrimPrefix(hdr.Name, "./"))
		if name == "" || name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("refusing to extract %q outside of %s", hdr.Name, dst)
		}
		target := filepath.Join(dst, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			log.Warnf("skipping %s in %s: unsupported entry type", hdr.Name, tarball)
		}
	}
}

func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec
		_ = f.Close()
		return err
	}
	return f.Close()
}
