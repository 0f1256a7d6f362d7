package relay

import (
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rsaID(b byte) ID {
	var r RSAIdentity
	for i := range r {
		r[i] = b
	}
	return FromRSA(r)
}

func edID(b byte) ID {
	var e Ed25519Identity
	for i := range e {
		e[i] = b
	}
	return FromEd25519(e)
}

func TestParseID_RoundTripsBothKinds(t *testing.T) {
	for _, id := range []ID{rsaID(0xab), edID(0x42)} {
		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
}

func TestParseID_BareHex(t *testing.T) {
	id, err := ParseID(strings.Repeat("0A", RSAIDLen))
	require.NoError(t, err)
	assert.Equal(t, rsaID(0x0a), id)
	assert.Equal(t, RSA, id.Kind())
	assert.Len(t, id.Bytes(), RSAIDLen)
}

func TestParseID_Invalid(t *testing.T) {
	for _, in := range []string{"", "$1234", "ed25519:AAAA", "nothex!"} {
		_, err := ParseID(in)
		require.Error(t, err, in)
		oe, ok := oops.AsOops(err)
		require.True(t, ok)
		assert.Equal(t, "invalid_identity", oe.Code())
	}
}

func TestID_ZeroAndCompare(t *testing.T) {
	var zero ID
	assert.True(t, zero.IsZero())
	assert.Nil(t, zero.Bytes())
	assert.Equal(t, "<none>", zero.String())

	assert.Negative(t, rsaID(1).Compare(rsaID(2)))
	assert.Positive(t, edID(1).Compare(rsaID(9)))
	assert.Zero(t, edID(3).Compare(edID(3)))
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(rsaID(2), rsaID(1), ID{})
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(rsaID(1)))
	assert.False(t, s.Contains(rsaID(3)))
	assert.True(t, s.ContainsAny(rsaID(3), rsaID(2)))

	c := s.Clone()
	c.Add(edID(7))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []ID{rsaID(1), rsaID(2), edID(7)}, c.Slice())
}
