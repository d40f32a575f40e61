package net

import (
	"fmt"

	"github.com/mosaicnetworks/snowball/src/consensus"
)

// MessageKind identifies the three kinds of protocol messages.
type MessageKind uint8

const (
	// TransactionKind is an externally injected transaction. It is never
	// routed.
	TransactionKind MessageKind = iota
	// QueryKind asks sampled peers for their belief about a transaction.
	QueryKind
	// QueryResponseKind carries a peer's belief back to the querying node.
	QueryResponseKind
)

// String returns the string representation of a MessageKind
func (k MessageKind) String() string {
	switch k {
	case TransactionKind:
		return "Transaction"
	case QueryKind:
		return "Query"
	case QueryResponseKind:
		return "QueryResponse"
	default:
		return "Unknown"
	}
}

// Message is implemented by the protocol messages.
type Message interface {
	Kind() MessageKind
	String() string
}

// TransactionMessage injects a transaction into a node.
type TransactionMessage struct {
	Transaction consensus.Transaction
}

// Kind implements Message.
func (m *TransactionMessage) Kind() MessageKind { return TransactionKind }

func (m *TransactionMessage) String() string {
	return fmt.Sprintf("Transaction{%s}", m.Transaction)
}

// QueryMessage carries a transaction and the sender's current belief about it.
type QueryMessage struct {
	Transaction consensus.Transaction `codec:"tx"`
	Status      consensus.Status      `codec:"status"`
}

// Kind implements Message.
func (m *QueryMessage) Kind() MessageKind { return QueryKind }

func (m *QueryMessage) String() string {
	return fmt.Sprintf("Query{%s %s}", m.Transaction.Hash().Short(), m.Status)
}

// QueryResponse carries the responder's current belief back to node To.
type QueryResponse struct {
	To     uint64           `codec:"to"`
	TxHash consensus.Hash   `codec:"hash"`
	Status consensus.Status `codec:"status"`
}

// Kind implements Message.
func (m *QueryResponse) Kind() MessageKind { return QueryResponseKind }

func (m *QueryResponse) String() string {
	return fmt.Sprintf("QueryResponse{to=%d %s %s}", m.To, m.TxHash.Short(), m.Status)
}

// Envelope is a message together with the ID of the node that emitted it.
type Envelope struct {
	Origin  uint64
	Message Message
}

func (e Envelope) String() string {
	return fmt.Sprintf("(%d: %s)", e.Origin, e.Message)
}
