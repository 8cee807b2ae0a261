// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sweet/internal/adapters/config"
	_ "go.trai.ch/sweet/internal/adapters/fs"
	_ "go.trai.ch/sweet/internal/adapters/graphfile"
	_ "go.trai.ch/sweet/internal/adapters/linear"
	_ "go.trai.ch/sweet/internal/adapters/logger"
	_ "go.trai.ch/sweet/internal/adapters/shell"
	_ "go.trai.ch/sweet/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/sweet/internal/app"
)
