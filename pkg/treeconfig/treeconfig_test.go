package treeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandParsesPositionalArgs(t *testing.T) {
	var got Config
	cmd := NewCommand(func(c Config) error {
		got = c
		return nil
	})
	cmd.SetArgs([]string{"16", "0.5"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 16, got.NumThreads)
	assert.Equal(t, 0.5, got.PercentInsert)
	assert.Equal(t, VariantOLC, got.Variant)
	assert.Equal(t, 8, got.HTMRetryMax)
}

func TestNewCommandHonorsFlags(t *testing.T) {
	var got Config
	cmd := NewCommand(func(c Config) error {
		got = c
		return nil
	})
	cmd.SetArgs([]string{"--variant=htm", "--htm-retry-max=0", "--weaved", "4", "0.25"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, VariantHTM, got.Variant)
	assert.Equal(t, 0, got.HTMRetryMax)
	assert.True(t, got.Weaved)
}

func TestNewCommandRejectsBadThreadCount(t *testing.T) {
	cmd := NewCommand(func(Config) error { return nil })
	cmd.SetArgs([]string{"not-a-number", "0.5"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadThreadCount)
}

func TestNewCommandRejectsOutOfRangePercent(t *testing.T) {
	cmd := NewCommand(func(Config) error { return nil })
	cmd.SetArgs([]string{"4", "1.5"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadPercentInsert)
}

func TestNewCommandRejectsUnsupportedVariant(t *testing.T) {
	cmd := NewCommand(func(Config) error { return nil })
	cmd.SetArgs([]string{"--variant=quantum", "4", "0.5"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVariant)
}
