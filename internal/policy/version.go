package policy

import (
	"strconv"
	"strings"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/workspace"
)

// Mode selects how the published version is derived from the declared one.
type Mode string

const (
	// ModeRelease publishes the declared version verbatim.
	ModeRelease Mode = "release"
	// ModeNightly appends the number of days since the nightly epoch to the declared version.
	ModeNightly Mode = "nightly"
	// ModeAuto picks release or nightly per package from the git ref being built.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode name. An empty name means ModeAuto.
func ParseMode(str string) (Mode, error) {
	switch mode := Mode(strings.ToLower(str)); mode {
	case "":
		return ModeAuto, nil
	case ModeRelease, ModeNightly, ModeAuto:
		return mode, nil
	default:
		return "", errors.New(InvalidModeError{Mode: str})
	}
}

// DefaultEpoch is the day nightly version numbering starts from.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// DaysSince returns the number of UTC calendar days between epoch and now. The time of day of either is
// ignored, so the count changes at UTC midnight only.
func DaysSince(epoch, now time.Time) (int, error) {
	epochDate, nowDate := utcDate(epoch), utcDate(now)
	if nowDate.Before(epochDate) {
		return 0, errors.New(ClockBeforeEpochError{Now: now, Epoch: epoch})
	}

	return int(nowDate.Sub(epochDate) / day), nil
}

func utcDate(t time.Time) time.Time {
	year, month, dayOfMonth := t.UTC().Date()

	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// NightlyVersion appends the day number to version: "1.3.44" on day 203 becomes "1.3.44.203".
func NightlyVersion(version string, epoch, now time.Time) (string, error) {
	days, err := DaysSince(epoch, now)
	if err != nil {
		return "", err
	}

	return version + "." + strconv.Itoa(days), nil
}

// ResolveVersion returns the version a package publishes under mode. mode must be ModeRelease or ModeNightly.
func ResolveVersion(pkg *workspace.Package, mode Mode, epoch, now time.Time) (string, error) {
	switch mode {
	case ModeRelease:
		return pkg.RawVersion(), nil
	case ModeNightly:
		return NightlyVersion(pkg.RawVersion(), epoch, now)
	case ModeAuto:
	}

	return "", errors.New(InvalidModeError{Mode: string(mode)})
}
