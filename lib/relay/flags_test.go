package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"running", "Valid", " Guard "})
	require.NoError(t, err)
	assert.True(t, f.Has(FlagRunning|FlagValid|FlagGuard))
	assert.Equal(t, "Guard Running Valid", f.String())

	_, err = ParseFlags([]string{"Running", "Speedy"})
	assert.Error(t, err)
}

func TestFlags_HasAndMissing(t *testing.T) {
	f := FlagFast | FlagStable
	assert.True(t, f.Has(0))
	assert.True(t, f.Has(FlagFast))
	assert.False(t, f.Has(FlagFast|FlagGuard))
	assert.True(t, f.HasAny(FlagGuard|FlagStable))
	assert.Equal(t, FlagGuard, f.Missing(FlagFast|FlagGuard))
	assert.Equal(t, "none", Flags(0).String())
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}

	r, err := ParseRole("intro")
	require.NoError(t, err)
	assert.Equal(t, RoleIntroduction, r)
	assert.True(t, r.IsOnionService())
	assert.False(t, RoleExit.IsOnionService())

	_, err = ParseRole("bridge")
	assert.Error(t, err)
}
