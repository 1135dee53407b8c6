package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	require.Equal(t, "https://rpc.qubic.org", GetString(ArchiverEndpointKey))
	require.Equal(t, "m/44'/83'/0'/0/0", GetString(BaseDerivationPathKey))
	require.Greater(t, GetInt(TickIntervalKey), 0)
	require.Greater(t, GetInt(TickOffsetKey), 0)
	require.False(t, GetBool(DemoModeKey))
}

func TestEnvOverride(t *testing.T) {
	os.Setenv("TICKWALLET_TICK_OFFSET", "12")
	defer os.Unsetenv("TICKWALLET_TICK_OFFSET")

	require.Equal(t, 12, GetInt(TickOffsetKey))
}

func TestSetAndIsSet(t *testing.T) {
	require.False(t, IsSet("SOME_UNKNOWN_KEY"))
	Set("SOME_UNKNOWN_KEY", 1)
	require.True(t, IsSet("SOME_UNKNOWN_KEY"))
}

func TestValidate(t *testing.T) {
	require.NoError(t, validate())
}
