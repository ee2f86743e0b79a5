package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newFlagTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("frozen", false, "")
	return cmd
}

func TestFlagChangedReportsExplicitFlags(t *testing.T) {
	cmd := newFlagTestCommand()
	assert.False(t, flagChanged(cmd, "frozen"))

	assert.NoError(t, cmd.Flags().Set("frozen", "true"))
	assert.True(t, flagChanged(cmd, "frozen"))
}

func TestFlagChangedUnknownFlagReturnsFalse(t *testing.T) {
	cmd := newFlagTestCommand()
	assert.False(t, flagChanged(cmd, "does-not-exist"))
}

func TestFlagChangedNilCommandReturnsFalse(t *testing.T) {
	assert.False(t, flagChanged(nil, "frozen"))
}

func TestResolveBoolPrefersExplicitFlagOverViper(t *testing.T) {
	viper.Set("frozen", false)
	defer viper.Set("frozen", nil)

	cmd := newFlagTestCommand()
	assert.NoError(t, cmd.Flags().Set("frozen", "true"))

	assert.True(t, resolveBool(cmd, true, "frozen", "frozen"))
}

func TestResolveBoolFallsBackToViperWhenUnset(t *testing.T) {
	viper.Set("frozen", true)
	defer viper.Set("frozen", nil)

	cmd := newFlagTestCommand()
	assert.True(t, resolveBool(cmd, false, "frozen", "frozen"))
}
