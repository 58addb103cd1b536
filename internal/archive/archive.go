// Package archive unpacks gzip-compressed tar archives.
package archive

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for entries that would land outside the
// destination directory.
var ErrUnsafePath = errors.New("archive: entry escapes destination")

// ExtractTarGz opens the .tar.gz file at path and unpacks it into dest.
func ExtractTarGz(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return Untar(bufio.NewReader(f), dest)
}

// Untar decodes the gzip layer of r and unpacks the tar stream into dest,
// creating dest if needed. Regular file modes are preserved.
func Untar(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	abs, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir destination: %w", err)
	}
	// Entries are checked against the real root, since dest itself may sit
	// below a symlink (e.g. /tmp on macOS).
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := resolve(root, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			dir, err := realPath(root, target)
			if err != nil {
				return fmt.Errorf("%w: %s", err, hdr.Name)
			}
			if err := os.MkdirAll(dir, dirMode(hdr)); err != nil {
				return fmt.Errorf("mkdir %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(root, target, hdr, tr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(root, target, hdr); err != nil {
				return err
			}
		default:
			// pax globals, hard links and devices are not used by book archives.
			continue
		}
	}
}

func resolve(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || !within(root, filepath.Join(root, clean)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(root, clean), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath follows every symlink already on disk along p and returns the
// resulting path. Components that do not exist yet are appended as is. The
// result must stay under root.
func realPath(root, p string) (string, error) {
	existing, rest := p, ""
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	resolved = filepath.Join(resolved, rest)
	if !within(root, resolved) {
		return "", ErrUnsafePath
	}
	return resolved, nil
}

// realParent resolves the directory holding target and returns the on-disk
// path target will be created at.
func realParent(root, target string) (string, error) {
	dir, err := realPath(root, filepath.Dir(target))
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(target)), nil
}

func dirMode(hdr *tar.Header) os.FileMode {
	mode := hdr.FileInfo().Mode().Perm()
	if mode == 0 {
		return 0o755
	}
	// Keep the directory writable so its children can be created.
	return mode | 0o700
}

func writeFile(root, target string, hdr *tar.Header, r io.Reader) error {
	path, err := realParent(root, target)
	if err != nil {
		return fmt.Errorf("%w: %s", err, hdr.Name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(hdr.Name), err)
	}
	// Never write through a symlink left by an earlier entry.
	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("replace symlink %s: %w", hdr.Name, err)
		}
	}

	mode := hdr.FileInfo().Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", hdr.Name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", hdr.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", hdr.Name, err)
	}
	// OpenFile applies the umask; set the recorded mode explicitly.
	return os.Chmod(path, mode)
}

func writeSymlink(root, target string, hdr *tar.Header) error {
	path, err := realParent(root, target)
	if err != nil {
		return fmt.Errorf("%w: symlink %s", err, hdr.Name)
	}

	link := hdr.Linkname
	if filepath.IsAbs(link) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, hdr.Name, link)
	}
	if !followLink(root, filepath.Dir(path), link) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, hdr.Name, link)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(hdr.Name), err)
	}
	_ = os.Remove(path)
	if err := os.Symlink(link, path); err != nil {
		return fmt.Errorf("symlink %s: %w", hdr.Name, err)
	}
	return nil
}

// followLink walks link one component at a time from dir, the way the
// kernel would, and reports whether every step stays under root.
func followLink(root, dir, link string) bool {
	cur := dir
	for _, part := range strings.Split(filepath.ToSlash(link), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, part)
			if fi, err := os.Lstat(cur); err == nil && fi.Mode()&os.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(cur)
				if err != nil {
					return false
				}
				cur = resolved
			}
		}
		if !within(root, cur) {
			return false
		}
	}
	return true
}
