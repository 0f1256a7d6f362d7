package netview

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

const sampleDocument = `
version: "2026-01-01T12"
valid_after: 2026-01-01T12:00:00Z
params:
  hsdir_n_replicas: 2
  bwweightscale: 10000
bandwidth_weights:
  Wgg: 6000
  Wmg: 4000
relays:
  - nickname: alpha
    rsa: $AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA
    ed25519: ed25519:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA
    addrs: ["198.51.100.1:9001", "[2001:db8::1]:9001"]
    flags: [Running, Valid, Guard, Fast, Stable, V2Dir]
    bandwidth: 500
    measured: true
    family: ["$BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"]
  - nickname: bravo
    rsa: BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB
    addrs: ["203.0.113.7:443"]
    flags: [Running, Valid, Exit, Fast]
    bandwidth: 300
    policy_summary: accept 80,443
    policy6_summary: accept 443
    ntor_key: false
`

func TestLoadDocument(t *testing.T) {
	v, err := LoadDocument(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, "2026-01-01T12", v.Version())
	assert.Equal(t, 2026, v.ValidAfter().Year())
	assert.Equal(t, int32(2), v.Params().Get(ParamHsDirReplicas, 0))

	alpha, bravo := v.Relays()[0], v.Relays()[1]
	assert.True(t, alpha.HasEd25519)
	assert.Len(t, alpha.Addrs, 2)
	assert.True(t, alpha.Flags.Has(relay.FlagGuard|relay.FlagV2Dir))
	assert.True(t, alpha.IsUsable())
	assert.True(t, bravo.InFamilyWith(alpha))

	assert.False(t, bravo.IsUsable())
	assert.True(t, bravo.IPv4Policy.AllowsPort(80))
	assert.False(t, bravo.IPv6Policy.AllowsPort(80))
	assert.Nil(t, alpha.IPv4Policy)

	assert.Equal(t, 0.6, v.WeightTable().Coefficient(relay.RoleGuard, 1))
}

func TestLoadDocument_Errors(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "relays: [",
		"bad flag":      "relays:\n  - rsa: $AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\n    flags: [Speedy]\n",
		"bad address":   "relays:\n  - rsa: $AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\n    addrs: [nowhere]\n",
		"ed in rsa":     "relays:\n  - rsa: ed25519:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\n",
		"both policies": "relays:\n  - rsa: $AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\n    policy: [\"accept *:80\"]\n    policy_summary: accept 80\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadDocument(strings.NewReader(doc))
			require.Error(t, err)
			_, ok := oops.AsOops(err)
			assert.True(t, ok)
		})
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	v := TestNet()
	var buf bytes.Buffer
	require.NoError(t, v.WriteDocument(&buf))

	again, err := LoadDocument(&buf)
	require.NoError(t, err)
	require.Equal(t, v.Len(), again.Len())
	for i, r := range v.Relays() {
		got := again.Relays()[i]
		assert.True(t, r.SameRelay(got))
		assert.Equal(t, r.Flags, got.Flags)
		assert.Equal(t, r.Family().Len(), got.Family().Len())
		assert.Equal(t, r.IPv4Policy.AllowsPort(443), got.IPv4Policy.AllowsPort(443))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o600))
	v, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
