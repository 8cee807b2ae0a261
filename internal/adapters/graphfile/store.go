package graphfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.GraphStore = (*Store)(nil)

// Store implements ports.GraphStore on top of graph files.
type Store struct {
	writer *Writer
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{writer: NewWriter()}
}

// Load reads the graph saved at path. A missing file yields no graph and no error.
func (s *Store) Load(path string, r ports.ErrorReporter) (*domain.Graph, error) {
	f, err := os.Open(path) //nolint:gosec // path is derived from the project root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrGraphReadFailed.Error()), "path", path)
	}
	defer func() { _ = f.Close() }()

	return NewReader(r).Read(f, path)
}

// Save writes g to path through a temporary file in the same directory.
func (s *Store) Save(path string, g *domain.Graph) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphWriteFailed.Error()), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphWriteFailed.Error()), "path", path)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := s.writer.Write(tmp, g); err != nil {
		_ = tmp.Close()
		return zerr.With(err, "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphWriteFailed.Error()), "path", path)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphWriteFailed.Error()), "path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrGraphWriteFailed.Error()), "path", path)
	}
	return nil
}
