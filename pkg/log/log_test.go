package log_test

import (
	"bytes"
	"testing"

	"github.com/relplan/relplan/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		str      string
		expected log.Level
		wantErr  bool
	}{
		{"info", log.InfoLevel, false},
		{"DEBUG", log.DebugLevel, false},
		{"trace", log.TraceLevel, false},
		{"loud", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.str, func(t *testing.T) {
			t.Parallel()

			level, err := log.ParseLevel(tc.str)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestLoggerLevelsAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := log.New(log.WithOutput(&buf), log.WithFormat(log.BareFormat, true), log.WithLevel(log.InfoLevel))

	logger.Debugf("hidden %d", 1)
	logger.WithField(log.FieldKeyPackage, "foo").Infof("checking %s", "registry")

	assert.Equal(t, "checking registry package=foo\n", buf.String())
	assert.Equal(t, log.InfoLevel, logger.Level())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	parent := log.New(log.WithOutput(&buf), log.WithFormat(log.BareFormat, true))
	child := parent.Clone()

	require.NoError(t, child.SetLevel("debug"))

	assert.Equal(t, log.InfoLevel, parent.Level())
	assert.Equal(t, log.DebugLevel, child.Level())

	child.Debug("from child")
	assert.Equal(t, "from child\n", buf.String())
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	logger := log.Discard()
	ctx := log.ContextWithLogger(t.Context(), logger)

	assert.Equal(t, logger, log.LoggerFromContext(ctx))
	assert.Equal(t, log.Default(), log.LoggerFromContext(t.Context()))
}
