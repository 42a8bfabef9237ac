package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the data directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative name against the data root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("storage: empty file name")
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", name)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes data root: %s", name)
	}
	return abs, nil
}

// Read returns the raw bytes of a collection file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically replaces content: tmp file → fsync → rename.
func (f *FS) Write(name string, data []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	tmpName, err := f.stage(abs, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// WriteAll replaces several files as one staged commit. Every file is
// written to a temp and synced before the first rename, so an interruption
// during staging leaves all targets untouched. The rename pass runs in
// sorted name order; each individual rename is atomic.
func (f *FS) WriteAll(files map[string][]byte) error {
	staged := make(map[string]string, len(files))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		abs, err := f.safePath(name)
		if err != nil {
			cleanup()
			return err
		}
		tmp, err := f.stage(abs, files[name])
		if err != nil {
			cleanup()
			return err
		}
		staged[abs] = tmp
	}

	for _, name := range names {
		abs, _ := f.safePath(name)
		if err := os.Rename(staged[abs], abs); err != nil {
			cleanup()
			return fmt.Errorf("storage: rename %s: %w", name, err)
		}
		delete(staged, abs)
	}
	return nil
}

// Exists reports whether the file at name currently exists.
func (f *FS) Exists(name string) bool {
	abs, err := f.safePath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// stage writes data to a synced temp file next to abs and returns its name.
func (f *FS) stage(abs string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".mindadmin-tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp: %w", err)
	}
	success = true
	return tmpName, nil
}
