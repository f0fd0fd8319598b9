// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package archive packs cache directories into a zstd compressed tar stream
// and unpacks them again. Entry names are "<index>/<relative path>" where
// index is the position of the source directory in the paths list, so a
// restore puts every tree back into the same slot it was saved from.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/klauspost/compress/zstd"
)

// Compression names the codec. It is folded into cache versions so entries
// written with a different codec never match.
const Compression = "zstd"

// Extension is appended to keys by stores that keep archives as files.
const Extension = ".tar.zst"

var ErrUnsafePath = errors.New("archive entry escapes destination")

// countingWriter tracks the compressed size written to the sink.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Create writes an archive of paths to w and returns the number of
// compressed bytes written. Missing paths are skipped with a warning.
func Create(ctx context.Context, w io.Writer, paths []string) (int64, error) {
	cw := &countingWriter{w: w}

	zw, err := zstd.NewWriter(cw)
	if err != nil {
		return 0, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	for i, p := range paths {
		// A symlinked cache dir is archived as the tree it points to.
		root, err := filepath.EvalSymlinks(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warnf("path %s does not exist, not archiving it", p)
				continue
			}
			return 0, err
		}
		if err := addTree(ctx, tw, strconv.Itoa(i), root); err != nil {
			_ = tw.Close()
			_ = zw.Close()
			return 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return cw.n, nil
}

func addTree(ctx context.Context, tw *tar.Writer, slot, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := path.Join(slot, filepath.ToSlash(rel))

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("failed to build header for %s: %w", p, err)
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		// Ownership does not survive between runners.
		hdr.Uid, hdr.Gid, hdr.Uname, hdr.Gname = 0, 0, "", ""

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", p, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("failed to archive %s: %w", p, err)
		}
		return nil
	})
}

// Extract reads an archive from r and unpacks each slot into the matching
// entry of paths. Slots without a destination are ignored.
func Extract(ctx context.Context, r io.Reader, paths []string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		root, dest, err := destination(hdr.Name, paths)
		if err != nil {
			return err
		}
		if dest == "" {
			log.Debugf("no destination for %s", hdr.Name)
			continue
		}

		if err := writeEntry(tr, hdr, root, dest); err != nil {
			return err
		}
	}
}

// destination maps an entry name onto the filesystem and returns the slot
// root along with the full path. dest is "" for entries whose slot has no
// destination path.
func destination(name string, paths []string) (root, dest string, err error) {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if path.IsAbs(clean) || escapes(clean) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	slot, rel, _ := strings.Cut(clean, "/")
	i, err := strconv.Atoi(slot)
	if err != nil || i < 0 {
		return "", "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if i >= len(paths) {
		return "", "", nil
	}

	if rel == "" {
		return paths[i], paths[i], nil
	}
	return paths[i], filepath.Join(paths[i], filepath.FromSlash(rel)), nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// throughLink reports whether any path element between root and dest,
// dest included when self is set, is an existing symlink. Entries are never
// written through a link, so a link extracted earlier cannot redirect a later
// entry out of the slot.
func throughLink(root, dest string, self bool) bool {
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." {
		return false
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if !self {
		parts = parts[:len(parts)-1]
	}
	cur := root
	for _, part := range parts {
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if err != nil {
			// Nothing below a missing element exists yet.
			return false
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return true
		}
	}
	return false
}

func writeEntry(r io.Reader, hdr *tar.Header, root, dest string) error {
	mode := hdr.FileInfo().Mode()

	if throughLink(root, dest, hdr.Typeflag == tar.TypeDir) {
		return fmt.Errorf("%w: %s is below a symlink", ErrUnsafePath, hdr.Name)
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, mode.Perm()|0o700)

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:mnd
			return err
		}
		// Replace, never follow, a link already sitting at dest.
		if fi, err := os.Lstat(dest); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
			if err := os.Remove(dest); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return fmt.Errorf("failed to extract %s: %w", dest, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		return os.Chtimes(dest, hdr.ModTime, hdr.ModTime)

	case tar.TypeSymlink:
		// Links may point anywhere inside the slot, but not out of it.
		target := filepath.Join(filepath.Dir(dest), filepath.FromSlash(hdr.Linkname))
		rel, err := filepath.Rel(root, target)
		if filepath.IsAbs(hdr.Linkname) || err != nil || escapes(filepath.ToSlash(rel)) {
			return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil { //nolint:mnd
			return err
		}
		_ = os.Remove(dest)
		return os.Symlink(hdr.Linkname, dest)

	default:
		log.Debugf("skipping %s of type %c", hdr.Name, hdr.Typeflag)
		return nil
	}
}
