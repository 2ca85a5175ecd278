package telemetry

import (
	"fmt"
	"strings"

	"github.com/relplan/relplan/internal/errors"
)

// MissingEnvVariableError is returned when an exporter needs a variable that is unset.
type MissingEnvVariableError struct {
	Vars []string
}

func (err MissingEnvVariableError) Error() string {
	return "missing environment variables: " + strings.Join(err.Vars, ", ")
}

func (MissingEnvVariableError) Kind() errors.Kind {
	return errors.KindConfig
}

type UnknownExporterError struct {
	Exporter string
}

func (err UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown trace exporter %q", err.Exporter)
}

func (UnknownExporterError) Kind() errors.Kind {
	return errors.KindConfig
}

type InvalidTraceParentError struct {
	Err   error
	Value string
}

func (err InvalidTraceParentError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("invalid TRACEPARENT value %s: %v", err.Value, err.Err)
	}

	return "invalid TRACEPARENT value " + err.Value
}

func (err InvalidTraceParentError) Unwrap() error {
	return err.Err
}

func (InvalidTraceParentError) Kind() errors.Kind {
	return errors.KindConfig
}
