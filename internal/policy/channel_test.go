package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relplan/relplan/internal/policy"
)

func TestReleaseChannelFromRef(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		ref      string
		expected policy.ReleaseChannel
	}{
		{"", policy.ReleaseNightly},
		{"refs/heads/main", policy.ReleaseNightly},
		{"refs/pull/42/merge", policy.ReleaseNightly},
		{"refs/tags/foo-alpha.3", policy.ReleaseAlpha},
		{"refs/tags/foo-beta-1.3.44", policy.ReleaseBeta},
		{"refs/tags/foo-prod", policy.ReleaseProd},
		{"refs/tags/foo-1.3.44", policy.ReleaseRelease},
		{"refs/tags/foo-v1.3.44", policy.ReleaseRelease},
		{"refs/tags/foo_member1-1.3.44", policy.ReleaseNightly},
		{"refs/tags/foo-bar-1.0.0", policy.ReleaseNightly},
		{"refs/tags/bar-alpha", policy.ReleaseNightly},
	}

	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, policy.ReleaseChannelFromRef("foo", tc.ref))
		})
	}
}

func TestTaggedPackage(t *testing.T) {
	t.Parallel()

	names := []string{"foo", "foo-beta-lib", "bar"}

	testCases := []struct {
		ref   string
		pkg   string
		isTag bool
	}{
		{ref: "refs/heads/main"},
		{ref: "refs/tags/foo-1.3.44", pkg: "foo", isTag: true},
		{ref: "refs/tags/foo-beta-lib-1.0.0", pkg: "foo-beta-lib", isTag: true},
		{ref: "refs/tags/foo-beta.1", pkg: "foo", isTag: true},
		{ref: "refs/tags/foobar-1.0.0", isTag: true},
		{ref: "refs/tags/v1.0.0", isTag: true},
	}

	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			t.Parallel()

			pkg, isTag := policy.TaggedPackage(tc.ref, names)
			assert.Equal(t, tc.pkg, pkg)
			assert.Equal(t, tc.isTag, isTag)
		})
	}
}

func TestParseReleaseChannel(t *testing.T) {
	t.Parallel()

	channel, err := policy.ParseReleaseChannel("Beta")
	require.NoError(t, err)
	assert.Equal(t, policy.ReleaseBeta, channel)

	channel, err = policy.ParseReleaseChannel("")
	require.NoError(t, err)
	assert.Empty(t, channel)

	_, err = policy.ParseReleaseChannel("canary")
	require.Error(t, err)
}
