// Package assets stages locally uploaded files between form submission and
// final order creation, and cleans them up once the orders that reference
// them have been durably created.
package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StagedAsset describes one uploaded file written to temporary storage.
type StagedAsset struct {
	FieldName string
	Path      string
	Filename  string
}

// Store writes uploads under a root temp directory, one subdirectory per
// upload batch.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns a Store bound
// to it.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve store root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create store root")
	}
	return &Store{root: abs}, nil
}

// Stage writes the uploaded bytes under a per-batch directory and returns
// the staged asset. An empty batchID gets a fresh unique one.
func (s *Store) Stage(batchID, fieldName, filename string, r io.Reader) (StagedAsset, error) {
	if batchID == "" {
		batchID = "checkout_" + uuid.NewString()
	}
	dir := filepath.Join(s.root, sanitizeName(batchID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StagedAsset{}, errors.Wrap(err, "create batch dir")
	}

	name := sanitizeName(filepath.Base(filename))
	if name == "" || name == "." {
		name = "upload"
	}
	// Prefix with the field name so two uploads for different slots never
	// collide within a batch.
	name = sanitizeName(fieldName) + "_" + name

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return StagedAsset{}, errors.Wrap(err, "create staged file")
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return StagedAsset{}, errors.Wrap(err, "write staged file")
	}

	return StagedAsset{FieldName: fieldName, Path: path, Filename: name}, nil
}

// Cleanup removes the given staged files, best-effort: a file already gone is
// not a failure, and repeated calls for the same path set are harmless.
// Parent batch directories are removed once empty. Paths outside the store
// root are refused.
func (s *Store) Cleanup(ctx context.Context, paths []string) {
	lg := zctx.From(ctx)

	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		clean, ok := s.confine(p)
		if !ok {
			lg.Warn("refusing to delete path outside asset store", zap.String("path", p))
			continue
		}
		if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
			lg.Debug("staged file cleanup failed", zap.String("path", clean), zap.Error(err))
		}
		dirs[filepath.Dir(clean)] = struct{}{}
	}

	for dir := range dirs {
		if dir == s.root {
			continue
		}
		// Fails when non-empty; that is fine.
		_ = os.Remove(dir)
	}
}

// confine resolves p and checks it lies strictly under the store root.
func (s *Store) confine(p string) (string, bool) {
	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(s.root, clean)
	}
	if !strings.HasPrefix(clean, s.root+string(os.PathSeparator)) {
		return "", false
	}
	return clean, true
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")

func sanitizeName(name string) string {
	name = nameReplacer.Replace(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
