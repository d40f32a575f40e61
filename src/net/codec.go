package net

import (
	"fmt"

	"github.com/ugorji/go/codec"
)

// wireEnvelope is the msgpack shape of an Envelope. Exactly one of the
// payload pointers is set, according to Kind.
type wireEnvelope struct {
	Origin   uint64         `codec:"origin"`
	Kind     MessageKind    `codec:"kind"`
	Query    *QueryMessage  `codec:"query,omitempty"`
	Response *QueryResponse `codec:"response,omitempty"`
}

func wireHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.Canonical = true
	return mh
}

// EncodeEnvelope serialises an envelope. Transaction envelopes have no wire
// form because transactions are never routed.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	w := wireEnvelope{
		Origin: env.Origin,
	}

	switch msg := env.Message.(type) {
	case *QueryMessage:
		w.Kind = QueryKind
		w.Query = msg
	case *QueryResponse:
		w.Kind = QueryResponseKind
		w.Response = msg
	case *TransactionMessage:
		return nil, ErrTransactionRouted
	default:
		return nil, fmt.Errorf("cannot encode message of type %T", env.Message)
	}

	var b []byte
	enc := codec.NewEncoderBytes(&b, wireHandle())
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeEnvelope is the inverse of EncodeEnvelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var w wireEnvelope

	dec := codec.NewDecoderBytes(data, wireHandle())
	if err := dec.Decode(&w); err != nil {
		return Envelope{}, err
	}

	env := Envelope{Origin: w.Origin}

	switch w.Kind {
	case QueryKind:
		if w.Query == nil {
			return Envelope{}, fmt.Errorf("query envelope without payload")
		}
		env.Message = w.Query
	case QueryResponseKind:
		if w.Response == nil {
			return Envelope{}, fmt.Errorf("response envelope without payload")
		}
		env.Message = w.Response
	case TransactionKind:
		return Envelope{}, ErrTransactionRouted
	default:
		return Envelope{}, fmt.Errorf("unknown message kind %d", w.Kind)
	}

	return env, nil
}
