package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

const docExt = ".pdf"

// fingerprintRe constrains vault keys to hex digests, which also rules out
// path traversal through a crafted fingerprint.
var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
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

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// path maps a fingerprint to its file in the vault, rejecting keys that are
// not hex digests.
func (f *FS) path(fp string) (string, error) {
	if !fingerprintRe.MatchString(fp) {
		return "", fmt.Errorf("storage: invalid fingerprint: %q", fp)
	}
	return filepath.Join(f.root, fp+docExt), nil
}

// List returns metadata for every stored document in the vault root.
// Subdirectories (e.g. the ingest inbox) are not descended into.
func (f *FS) List() ([]models.StoredDocument, error) {
	var out []models.StoredDocument
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != f.root {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, docExt) {
			return nil
		}
		fp := strings.TrimSuffix(name, docExt)
		if !fingerprintRe.MatchString(fp) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, models.StoredDocument{
			Fingerprint: fp,
			Size:        info.Size(),
			StoredAt:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a stored document.
func (f *FS) Read(fp string) ([]byte, error) {
	abs, err := f.path(fp)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", fp, err)
	}
	return data, nil
}

// Write atomically stores content: tmp file → fsync → rename.
func (f *FS) Write(fp string, content []byte) error {
	abs, err := f.path(fp)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Exists reports whether the document is already in the vault.
func (f *FS) Exists(fp string) bool {
	abs, err := f.path(fp)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Delete removes a document from the vault.
func (f *FS) Delete(fp string) error {
	abs, err := f.path(fp)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", fp, err)
	}
	return nil
}
