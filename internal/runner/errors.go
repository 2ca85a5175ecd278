package runner

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
)

// ScanErrorsError is returned when manifests failed to parse and the run must fail on scan errors.
type ScanErrorsError struct {
	Count int
}

func (err ScanErrorsError) Error() string {
	return fmt.Sprintf("%d manifests could not be scanned", err.Count)
}

func (ScanErrorsError) Kind() errors.Kind {
	return errors.KindManifestParse
}

// UnavailableDecisionsError is returned when some decisions are unknown and the run must fail on them.
type UnavailableDecisionsError struct {
	Count int
}

func (err UnavailableDecisionsError) Error() string {
	return fmt.Sprintf("%d publish decisions are unknown because a registry was unavailable", err.Count)
}

func (UnavailableDecisionsError) Kind() errors.Kind {
	return errors.KindRegistryUnavailable
}

// MisconfiguredDecisionsError is returned when some decisions are unknown because a declared channel has no
// configured registry.
type MisconfiguredDecisionsError struct {
	Count int
}

func (err MisconfiguredDecisionsError) Error() string {
	return fmt.Sprintf("%d publish decisions are unknown because their registry is not configured", err.Count)
}

func (MisconfiguredDecisionsError) Kind() errors.Kind {
	return errors.KindConfig
}
