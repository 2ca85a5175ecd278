package change

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
)

// RevisionNotFoundError is returned when a requested ref cannot be resolved to a commit, even after deepening
// a shallow clone.
type RevisionNotFoundError struct {
	Err error
	Ref string
}

func (err RevisionNotFoundError) Error() string {
	return fmt.Sprintf("revision %q not found: %v", err.Ref, err.Err)
}

func (err RevisionNotFoundError) Unwrap() error {
	return err.Err
}

func (RevisionNotFoundError) Kind() errors.Kind {
	return errors.KindRevisionNotFound
}

// InvalidGlobalPathError is returned when a global trigger pattern does not compile.
type InvalidGlobalPathError struct {
	Err     error
	Pattern string
}

func (err InvalidGlobalPathError) Error() string {
	return fmt.Sprintf("invalid global trigger pattern %q: %v", err.Pattern, err.Err)
}

func (err InvalidGlobalPathError) Unwrap() error {
	return err.Err
}

func (InvalidGlobalPathError) Kind() errors.Kind {
	return errors.KindConfig
}
