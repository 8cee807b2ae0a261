package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrPrototypeConflict is matched by errors returned when a target is declared with two prototypes.
	ErrPrototypeConflict = zerr.New("target created with conflicting prototypes")

	// ErrPrototypeAlreadyExists is returned when a prototype name is registered twice.
	ErrPrototypeAlreadyExists = zerr.New("prototype already exists")

	// ErrPrototypeNotFound is returned when a target references an undeclared prototype.
	ErrPrototypeNotFound = zerr.New("prototype not found")

	// ErrTargetAlreadyExists is returned when a restored target collides with an existing id.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrTargetNotFound is returned when a requested target is not in the graph.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrTargetOutsideRoot is returned when a target id resolves above the root directory.
	ErrTargetOutsideRoot = zerr.New("target is outside the root directory")

	// ErrForeignTarget is returned when an edge connects targets of different graphs.
	ErrForeignTarget = zerr.New("target belongs to another graph")

	// ErrCycleDetected is returned when a dependency edge would close a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrWorkingDirectoryUnderflow is returned when popping the root working directory.
	ErrWorkingDirectoryUnderflow = zerr.New("cannot pop the root working directory")

	// ErrInvalidGraphFile is returned when a graph file fails validation.
	ErrInvalidGraphFile = zerr.New("not a valid dependency graph")

	// ErrUnsupportedGraphVersion is returned when a graph file carries an unknown version.
	ErrUnsupportedGraphVersion = zerr.New("unsupported dependency graph version")

	// ErrDanglingReference is returned when a graph file refers to a key it never defined.
	ErrDanglingReference = zerr.New("dangling target reference")

	// ErrTargetIDTooLong is returned when a target id does not fit in a graph file.
	ErrTargetIDTooLong = zerr.New("target id too long for the graph file")

	// ErrGraphReadFailed is returned when the graph stream cannot be read.
	ErrGraphReadFailed = zerr.New("failed to read dependency graph")

	// ErrGraphWriteFailed is returned when the graph stream cannot be written.
	ErrGraphWriteFailed = zerr.New("failed to write dependency graph")

	// ErrConfigNotFound is returned when no buildfile exists in the directory or its parents.
	ErrConfigNotFound = zerr.New("could not find sweet.yaml or sweet.hcl")

	// ErrConfigReadFailed is returned when a buildfile cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read buildfile")

	// ErrConfigParseFailed is returned when a buildfile cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse buildfile")

	// ErrInvalidJobTransition is returned when a job state change skips or reverses a state.
	ErrInvalidJobTransition = zerr.New("invalid job state transition")

	// ErrEmptyCommand is returned when a prototype expands to no arguments.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrCommandFailed is returned when a rule command exits unsuccessfully.
	ErrCommandFailed = zerr.New("command failed")

	// ErrSourceMissing is returned when a required source file does not exist.
	ErrSourceMissing = zerr.New("source file does not exist")

	// ErrDepfileParseFailed is returned when a depfile cannot be parsed.
	ErrDepfileParseFailed = zerr.New("failed to parse depfile")

	// ErrBuildFailed is returned when a command finished with reported errors.
	ErrBuildFailed = zerr.New("build failed")

	// ErrNoGoals is returned when neither the command line nor the buildfile names a target.
	ErrNoGoals = zerr.New("no targets specified and no default goals")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to watch directory")
)

// PrototypeConflictError reports that a target id was created with two different prototypes.
type PrototypeConflictError struct {
	ID       string
	Existing string
	Proposed string
}

func (e *PrototypeConflictError) Error() string {
	return fmt.Sprintf("The target '%s' has been created with prototypes '%s' and '%s'", e.ID, e.Existing, e.Proposed)
}

// Is reports whether target is ErrPrototypeConflict.
func (e *PrototypeConflictError) Is(target error) bool {
	return target == ErrPrototypeConflict
}

// SourceMissingError reports a required source file that is not on disk.
type SourceMissingError struct {
	Path string
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("The source file '%s' does not exist", e.Path)
}

// Is reports whether target is ErrSourceMissing.
func (e *SourceMissingError) Is(target error) bool {
	return target == ErrSourceMissing
}

// CycleError reports a dependency edge that would close a cycle. Path starts
// and ends with the dependent target.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	quoted := make([]string, len(e.Path))
	for i, id := range e.Path {
		quoted[i] = "'" + id + "'"
	}
	from, to := e.Path[0], e.Path[1]
	return fmt.Sprintf("The dependency of '%s' on '%s' would create the cycle %s",
		from, to, strings.Join(quoted, " -> "))
}

// Is reports whether target is ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// OutsideRootError reports a target id that resolves above the root directory.
type OutsideRootError struct {
	ID string
}

func (e *OutsideRootError) Error() string {
	return fmt.Sprintf("The target '%s' is outside the root directory", e.ID)
}

// Is reports whether target is ErrTargetOutsideRoot.
func (e *OutsideRootError) Is(target error) bool {
	return target == ErrTargetOutsideRoot
}
