package consensus

import (
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/snowball/src/crypto"
	"github.com/ugorji/go/codec"
)

// ValidityBound is the exclusive upper bound of payloads that pass local
// verification.
const ValidityBound = 7

// Transaction is the unit of data the network votes on. It is immutable once
// created; its identity is the hash of its canonical encoding.
type Transaction struct {
	Nonce   uint64 `codec:"nonce"`
	Payload int64  `codec:"payload"`
}

// NewTransaction creates a Transaction.
func NewTransaction(nonce uint64, payload int64) Transaction {
	return Transaction{
		Nonce:   nonce,
		Payload: payload,
	}
}

// NewRandomTransaction returns a Transaction with a random nonce and a payload
// in [0, 10), so that roughly 70% of random transactions are valid.
func NewRandomTransaction(rng *rand.Rand) Transaction {
	return NewTransaction(rng.Uint64(), rng.Int63n(10))
}

func canonicalHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.Canonical = true
	return mh
}

// Marshal returns the canonical msgpack encoding of the transaction.
func (t Transaction) Marshal() ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, canonicalHandle())
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal decodes a transaction encoded with Marshal.
func (t *Transaction) Unmarshal(data []byte) error {
	dec := codec.NewDecoderBytes(data, canonicalHandle())
	return dec.Decode(t)
}

// Hash returns the content identifier of the transaction.
func (t Transaction) Hash() Hash {
	b, err := t.Marshal()
	if err != nil {
		// Encoding two integers cannot fail.
		panic(fmt.Errorf("encoding transaction: %v", err))
	}
	var h Hash
	copy(h[:], crypto.SHA256(b))
	return h
}

// Verify is the local validity check that seeds a node's initial belief.
func (t Transaction) Verify() Status {
	if t.Payload < ValidityBound {
		return Valid
	}
	return Invalid
}

// String returns a short description of the transaction.
func (t Transaction) String() string {
	return fmt.Sprintf("tx(nonce=%d payload=%d)", t.Nonce, t.Payload)
}
