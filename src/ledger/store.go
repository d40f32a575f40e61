package ledger

import (
	"github.com/mosaicnetworks/snowball/src/consensus"
)

// Store provides an interface for decision journals.
type Store interface {
	// SetDecision records a decision. A second decision for the same node
	// and transaction is a KeyAlreadyExists error, except that a journal may
	// let a new run supersede a loaded decision with the same status.
	SetDecision(consensus.Decision) error

	GetDecision(node uint64, hash consensus.Hash) (consensus.Decision, error)

	// NodeDecisions returns the decisions of a node in the order they were
	// recorded.
	NodeDecisions(node uint64) ([]consensus.Decision, error)

	// TransactionDecisions returns the decisions on a transaction ordered by
	// node ID.
	TransactionDecisions(hash consensus.Hash) ([]consensus.Decision, error)

	// Decisions returns every decision ordered by transaction then node.
	Decisions() []consensus.Decision

	Count() int
	Close() error
	StorePath() string
}
