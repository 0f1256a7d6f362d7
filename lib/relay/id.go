package relay

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// IDKind distinguishes the identity key types a relay can advertise.
type IDKind uint8

const (
	// RSA is the legacy SHA-1 fingerprint of the relay's RSA identity key.
	RSA IDKind = iota + 1
	// Ed25519 is the relay's long-term Ed25519 identity key.
	Ed25519
)

// String returns the textual prefix used for the kind.
func (k IDKind) String() string {
	switch k {
	case RSA:
		return "rsa"
	case Ed25519:
		return "ed25519"
	default:
		return "unknown"
	}
}

const (
	// RSAIDLen is the length of an RSA identity fingerprint.
	RSAIDLen = 20
	// Ed25519IDLen is the length of an Ed25519 identity key.
	Ed25519IDLen = 32
)

// RSAIdentity is a SHA-1 fingerprint of a relay's RSA identity key.
type RSAIdentity [RSAIDLen]byte

// Ed25519Identity is a relay's Ed25519 identity key.
type Ed25519Identity [Ed25519IDLen]byte

// ID is a comparable relay identity of either kind. The zero ID is invalid.
type ID struct {
	kind IDKind
	key  [Ed25519IDLen]byte
}

// FromRSA wraps an RSA fingerprint as an ID.
func FromRSA(id RSAIdentity) ID {
	out := ID{kind: RSA}
	copy(out.key[:], id[:])
	return out
}

// FromEd25519 wraps an Ed25519 key as an ID.
func FromEd25519(id Ed25519Identity) ID {
	return ID{kind: Ed25519, key: id}
}

// Kind returns the identity kind.
func (id ID) Kind() IDKind { return id.kind }

// IsZero reports whether id was never set.
func (id ID) IsZero() bool { return id.kind == 0 }

// Bytes returns the raw key bytes (20 for RSA, 32 for Ed25519).
func (id ID) Bytes() []byte {
	switch id.kind {
	case RSA:
		return append([]byte(nil), id.key[:RSAIDLen]...)
	case Ed25519:
		return append([]byte(nil), id.key[:]...)
	default:
		return nil
	}
}

// String renders an RSA identity as "$HEX" and an Ed25519 identity as
// "ed25519:<unpadded base64>".
func (id ID) String() string {
	switch id.kind {
	case RSA:
		return "$" + strings.ToUpper(hex.EncodeToString(id.key[:RSAIDLen]))
	case Ed25519:
		return "ed25519:" + base64.RawStdEncoding.EncodeToString(id.key[:])
	default:
		return "<none>"
	}
}

// Compare orders IDs by kind, then by key bytes.
func (id ID) Compare(other ID) int {
	if id.kind != other.kind {
		if id.kind < other.kind {
			return -1
		}
		return 1
	}
	return bytes.Compare(id.key[:], other.key[:])
}

// ParseID parses "$HEX", a bare 40 character hex fingerprint, or
// "ed25519:<base64>".
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "ed25519:"); ok {
		raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(rest, "="))
		if err != nil {
			return ID{}, oops.Code("invalid_identity").In("relay").With("input", s).Wrapf(err, "decoding ed25519 identity")
		}
		if len(raw) != Ed25519IDLen {
			return ID{}, oops.Code("invalid_identity").In("relay").With("input", s).
				Errorf("ed25519 identity has %d bytes, want %d", len(raw), Ed25519IDLen)
		}
		var ed Ed25519Identity
		copy(ed[:], raw)
		return FromEd25519(ed), nil
	}

	s = strings.TrimPrefix(s, "$")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, oops.Code("invalid_identity").In("relay").With("input", s).Wrapf(err, "decoding rsa fingerprint")
	}
	if len(raw) != RSAIDLen {
		return ID{}, oops.Code("invalid_identity").In("relay").With("input", s).
			Errorf("rsa fingerprint has %d bytes, want %d", len(raw), RSAIDLen)
	}
	var rsa RSAIdentity
	copy(rsa[:], raw)
	return FromRSA(rsa), nil
}

// IDSet is an unordered set of relay identities. The zero value is not
// usable; create one with NewIDSet.
type IDSet map[ID]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids, ignoring zero IDs.
func (s IDSet) Add(ids ...ID) {
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		s[id] = struct{}{}
	}
}

// AddSet inserts every member of other.
func (s IDSet) AddSet(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Contains reports whether id is a member.
func (s IDSet) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// ContainsAny reports whether any of ids is a member.
func (s IDSet) ContainsAny(ids ...ID) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

// Len returns the number of members.
func (s IDSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	out.AddSet(s)
	return out
}

// Slice returns the members in a stable order.
func (s IDSet) Slice() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
