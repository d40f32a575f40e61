package consensus

import (
	"fmt"

	"github.com/mosaicnetworks/snowball/src/common"
)

// HashLength is the size of a transaction identifier in bytes.
const HashLength = 32

// Hash is the content identifier of a transaction. It is comparable and can be
// used as a map key.
type Hash [HashLength]byte

// BytesToHash copies b into a Hash. b must be HashLength bytes long.
func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashLength {
		return h, fmt.Errorf("hash should be %d bytes, not %d", HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashFromString parses the representation returned by Hash.String.
func HashFromString(s string) (Hash, error) {
	b, err := common.DecodeFromString(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b)
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return append([]byte{}, h[:]...)
}

// String returns the 0X-prefixed hexadecimal representation of the hash.
func (h Hash) String() string {
	return common.EncodeToString(h[:])
}

// Short returns the first bytes of the hash in hex, for log lines.
func (h Hash) Short() string {
	return common.EncodeToString(h[:4])
}

// MarshalText implements encoding.TextMarshaler so that hashes show up as hex
// strings in JSON documents, including as map keys.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromString(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
