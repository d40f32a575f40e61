package consensus

import (
	"fmt"
	"time"
)

// Decision is the terminal output of a node's consensus on a transaction. A
// node produces at most one Decision per transaction.
type Decision struct {
	NodeID    uint64    `codec:"node" json:"node"`
	TxHash    Hash      `codec:"tx" json:"tx"`
	Status    Status    `codec:"status" json:"status"`
	Epoch     uint32    `codec:"epoch" json:"epoch"`
	Timestamp time.Time `codec:"ts" json:"timestamp"`
}

// NewDecision creates a Decision from a final State.
func NewDecision(nodeID uint64, s *State) Decision {
	return Decision{
		NodeID:    nodeID,
		TxHash:    s.Hash(),
		Status:    s.Status,
		Epoch:     s.Epoch,
		Timestamp: time.Now().UTC(),
	}
}

func (d Decision) String() string {
	return fmt.Sprintf("node %d decided %s on %s (epoch %d)", d.NodeID, d.Status, d.TxHash.Short(), d.Epoch)
}
