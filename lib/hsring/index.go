package hsring

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/go-i2p/go-relayselect/lib/relay"
)

// Period identifies one onion service time period. The caller supplies it
// together with the shared random value that was current for it.
type Period struct {
	Number       uint64
	Length       time.Duration
	SharedRandom []byte
}

// LengthMinutes returns the period length in whole minutes.
func (p Period) LengthMinutes() uint64 {
	return uint64(p.Length / time.Minute)
}

func (p Period) String() string {
	return fmt.Sprintf("period %d (%s)", p.Number, p.Length)
}

// Index is a position on the ring.
type Index [32]byte

// Compare orders indexes as big-endian integers.
func (i Index) Compare(o Index) int { return bytes.Compare(i[:], o[:]) }

func (i Index) String() string { return hex.EncodeToString(i[:]) }

// BlindedID is an onion service's blinded public key for one period.
type BlindedID [32]byte

// ParseBlindedID decodes a 64 character hex string.
func ParseBlindedID(s string) (BlindedID, error) {
	var id BlindedID
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, errInvalidBlindedID(s)
	}
	copy(id[:], raw)
	return id, nil
}

// RelayIndex returns a relay's position on the ring for period:
// SHA3-256("node-idx" | ed25519 id | shared random | period number |
// period length in minutes), integers as 8 byte big-endian.
func RelayIndex(id relay.Ed25519Identity, p Period) Index {
	h := sha3.New256()
	h.Write([]byte("node-idx"))
	h.Write(id[:])
	h.Write(p.SharedRandom)
	h.Write(be64(p.Number))
	h.Write(be64(p.LengthMinutes()))
	var out Index
	copy(out[:], h.Sum(nil))
	return out
}

// ServiceIndex returns where replica of a service is stored for period:
// SHA3-256("store-at-idx" | blinded id | replica | period length in
// minutes | period number).
func ServiceIndex(blinded BlindedID, replica uint8, p Period) Index {
	h := sha3.New256()
	h.Write([]byte("store-at-idx"))
	h.Write(blinded[:])
	h.Write(be64(uint64(replica)))
	h.Write(be64(p.LengthMinutes()))
	h.Write(be64(p.Number))
	var out Index
	copy(out[:], h.Sum(nil))
	return out
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
