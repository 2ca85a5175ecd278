package git

import (
	"fmt"
)

// Error types that can be returned by the git package
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCommandSpawn is returned when a git command cannot be started or exits with an error
	ErrCommandSpawn Error = "failed to spawn git command"
	// ErrNoWorkDir is returned when a command needs a repository but no working directory is set
	ErrNoWorkDir Error = "working directory not set"
	// ErrRevisionNotFound is returned when a ref does not resolve to a commit
	ErrRevisionNotFound Error = "revision not found"
	// ErrNotShallow is returned when deepening a repository that already has its full history
	ErrNotShallow Error = "repository is not shallow"
)

// WrappedError provides additional context for errors
type WrappedError struct {
	Err     error  // Original error
	Op      string // Operation that failed
	Context string // Additional context
}

func (e *WrappedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Context, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WrappedError) Unwrap() error {
	return e.Err
}
