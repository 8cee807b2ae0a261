package ports

import "go.trai.ch/sweet/internal/core/domain"

// ConfigLoader declares targets from buildfiles.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Discover returns the directory holding the buildfile, searching dir and its parents.
	Discover(dir string) (string, error)
	// Load declares the buildfile below g's root directory into g.
	// Declaration errors are reported through r and do not stop loading.
	Load(g *domain.Graph, r ErrorReporter) (*domain.Project, error)
}
