// Package archive packages generated lesson artifacts into zip files.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ZipDir writes every regular file under dir into a zip archive at dst,
// replacing any existing archive. Entry names are relative to dir. When dst
// lives inside dir it is not added to itself. The archive is built under a
// temporary name and renamed into place, so readers of an older dst are not
// disturbed.
func ZipDir(dir, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	tmp := f.Name()
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("chmod archive: %w", err)
	}
	skip := map[string]bool{}
	for _, p := range []string{dst, tmp} {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}

	if err := writeZip(f, dir, skip); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("move archive into place: %w", err)
	}
	return nil
}

func writeZip(w io.Writer, dir string, skip map[string]bool) error {
	zw := zip.NewWriter(w)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && skip[abs] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("zip %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// Entries lists the file names stored in a zip archive.
func Entries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// WriteTextChunks writes phrases into dir as {base}-phrases-{N}.txt files of
// at most perFile lines each, numbered from 1, and returns the file paths.
func WriteTextChunks(dir, base string, phrases []string, perFile int) ([]string, error) {
	if perFile < 1 {
		return nil, fmt.Errorf("phrases per file must be positive, got %d", perFile)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	var paths []string
	for start, n := 0, 1; start < len(phrases); start, n = start+perFile, n+1 {
		end := min(start+perFile, len(phrases))
		path := filepath.Join(dir, fmt.Sprintf("%s-phrases-%d.txt", base, n))
		content := strings.Join(phrases[start:end], "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
