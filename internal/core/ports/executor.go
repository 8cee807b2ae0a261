package ports

import (
	"context"
	"io"

	"go.trai.ch/sweet/internal/core/domain"
)

// Executor defines the interface for running rule commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd and waits for it to exit.
	// It returns an error if the command cannot be started or exits unsuccessfully.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
