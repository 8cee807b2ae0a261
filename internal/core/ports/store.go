package ports

import "go.trai.ch/sweet/internal/core/domain"

// GraphStore persists dependency graphs between runs.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type GraphStore interface {
	// Load reads the graph saved at path. It returns a nil graph and no error
	// when nothing was saved yet. Invalid files are reported through r.
	Load(path string, r ErrorReporter) (*domain.Graph, error)
	// Save writes g to path, replacing any previous graph atomically.
	Save(path string, g *domain.Graph) error
}
