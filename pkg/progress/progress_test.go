package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinner_Disabled(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&Config{Enabled: false, Writer: &buf})

	require.NoError(t, s.Start("working"))
	assert.False(t, s.IsActive())

	s.Update("still working")
	s.Success("done")
	s.Failure("failed")
	require.NoError(t, s.Stop())
	assert.Empty(t, buf.String())
}

func TestNewSpinner_DefaultConfig(t *testing.T) {
	s := NewSpinner(nil)
	assert.True(t, s.config.Enabled)
	assert.NotNil(t, s.config.Writer)
}

func TestRun(t *testing.T) {
	s := NewSpinner(&Config{Enabled: false})

	calls := 0
	err := Run(s, "calling", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	err = Run(s, "calling", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.IsActive())
}
