package policy_test

import (
	"testing"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/policy"
	"github.com/relplan/relplan/internal/workspace"
)

func TestNightlyVersion(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		now      time.Time
		name     string
		version  string
		expected string
	}{
		{
			name:     "day zero",
			version:  "1.3.44",
			now:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			expected: "1.3.44.0",
		},
		{
			name:     "day 203",
			version:  "1.3.44",
			now:      time.Date(2024, time.July, 22, 15, 4, 5, 0, time.UTC),
			expected: "1.3.44.203",
		},
		{
			name:     "last second of day 203",
			version:  "1.3.44",
			now:      time.Date(2024, time.July, 22, 23, 59, 59, 0, time.UTC),
			expected: "1.3.44.203",
		},
		{
			name:     "non-UTC clock",
			version:  "1.3.44",
			now:      time.Date(2024, time.July, 23, 1, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
			expected: "1.3.44.203",
		},
		{
			name:     "pre-release",
			version:  "2.0.0-rc.1",
			now:      time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC),
			expected: "2.0.0-rc.1.10",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			actual, err := policy.NightlyVersion(tc.version, policy.DefaultEpoch, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestNightlyVersionIsStablePerDayAndIncreasing(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	first, err := policy.DaysSince(policy.DefaultEpoch, start)
	require.NoError(t, err)
	assert.Equal(t, 425, first)

	previous := first - 1

	for hour := range 24 * 5 {
		now := start.Add(time.Duration(hour) * time.Hour)

		days, err := policy.DaysSince(policy.DefaultEpoch, now)
		require.NoError(t, err)

		if hour%24 == 0 {
			assert.Equal(t, previous+1, days, "day boundary at %s", now)
		} else {
			assert.Equal(t, previous, days, "same day at %s", now)
		}

		previous = days
	}
}

func TestDaysSinceCountsUTCCalendarDays(t *testing.T) {
	t.Parallel()

	epoch := time.Date(2024, time.January, 1, 18, 0, 0, 0, time.UTC)
	eastern := time.FixedZone("UTC+5", 5*60*60)

	testCases := []struct {
		now      time.Time
		name     string
		expected int
	}{
		{name: "same day before epoch time", now: time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC), expected: 0},
		{name: "next day morning", now: time.Date(2024, time.January, 2, 0, 30, 0, 0, time.UTC), expected: 1},
		{name: "next day evening", now: time.Date(2024, time.January, 2, 23, 59, 0, 0, time.UTC), expected: 1},
		{name: "local time past utc midnight", now: time.Date(2024, time.January, 3, 2, 0, 0, 0, eastern), expected: 1},
		{name: "after utc midnight", now: time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), expected: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			days, err := policy.DaysSince(epoch, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, days)
		})
	}
}

func TestNightlyVersionBeforeEpoch(t *testing.T) {
	t.Parallel()

	_, err := policy.NightlyVersion("1.0.0", policy.DefaultEpoch, policy.DefaultEpoch.Add(-time.Second))
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}

func TestResolveVersion(t *testing.T) {
	t.Parallel()

	pkg := &workspace.Package{Name: "foo", Version: version.Must(version.NewSemver("1.3.44"))}
	now := time.Date(2024, time.July, 22, 0, 0, 0, 0, time.UTC)

	release, err := policy.ResolveVersion(pkg, policy.ModeRelease, policy.DefaultEpoch, now)
	require.NoError(t, err)
	assert.Equal(t, "1.3.44", release)

	nightly, err := policy.ResolveVersion(pkg, policy.ModeNightly, policy.DefaultEpoch, now)
	require.NoError(t, err)
	assert.Equal(t, "1.3.44.203", nightly)

	custom, err := policy.ResolveVersion(pkg, policy.ModeNightly, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), now)
	require.NoError(t, err)
	assert.Equal(t, "1.3.44.21", custom)

	_, err = policy.ResolveVersion(pkg, policy.ModeAuto, policy.DefaultEpoch, now)
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for input, expected := range map[string]policy.Mode{
		"":        policy.ModeAuto,
		"auto":    policy.ModeAuto,
		"Release": policy.ModeRelease,
		"nightly": policy.ModeNightly,
	} {
		mode, err := policy.ParseMode(input)
		require.NoError(t, err)
		assert.Equal(t, expected, mode)
	}

	_, err := policy.ParseMode("weekly")
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.KindOf(err))
}
