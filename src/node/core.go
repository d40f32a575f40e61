package node

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/net"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTransaction is returned when a QueryResponse refers to a
// transaction the node has never seen.
var ErrUnknownTransaction = errors.New("unknown transaction")

// DecisionCallback is called once per transaction, when the node's state for
// it becomes final.
type DecisionCallback func(consensus.Decision) error

// coreStats are updated by the owning goroutine and read atomically by
// observers.
type coreStats struct {
	transactionsReceived uint64
	queriesReceived      uint64
	responsesReceived    uint64
	queriesSent          uint64
	responsesSent        uint64
	flips                uint64
	epochs               uint64
	decisions            uint64
}

// Core holds a node's mempool and applies the consensus rules to it. It is
// not safe for concurrent use.
type Core struct {
	id     uint64
	params consensus.Params

	// mempool maps transaction hashes to the node's consensus state for them.
	mempool map[consensus.Hash]*consensus.State

	// pending counts the mempool entries that are not final yet.
	pending int

	commitCallback DecisionCallback

	stats coreStats

	logger *logrus.Entry
}

// NewCore is a factory method that returns a new Core object
func NewCore(id uint64,
	params consensus.Params,
	commitCallback DecisionCallback,
	logger *logrus.Entry,
) *Core {
	return &Core{
		id:             id,
		params:         params,
		mempool:        make(map[consensus.Hash]*consensus.State),
		commitCallback: commitCallback,
		logger:         logger,
	}
}

// Handle applies msg, received from origin, to the mempool and returns the
// messages the node wants routed, in emission order.
func (c *Core) Handle(origin uint64, msg net.Message) ([]net.Message, error) {
	switch m := msg.(type) {
	case *net.TransactionMessage:
		return c.handleTransaction(m.Transaction), nil
	case *net.QueryMessage:
		return c.handleQuery(origin, m), nil
	case *net.QueryResponse:
		return c.handleResponse(origin, m)
	default:
		return nil, fmt.Errorf("%w: %T", net.ErrUnknownMessage, msg)
	}
}

func (c *Core) handleTransaction(tx consensus.Transaction) []net.Message {
	atomic.AddUint64(&c.stats.transactionsReceived, 1)

	hash := tx.Hash()
	if _, ok := c.mempool[hash]; ok {
		c.logger.WithField("tx", hash.Short()).Debug("Transaction already known")
		return nil
	}

	s := c.insert(tx, tx.Verify())

	c.logger.WithFields(logrus.Fields{
		"tx":     hash.Short(),
		"status": s.Status,
	}).Debug("New transaction")

	return []net.Message{c.query(s)}
}

func (c *Core) handleQuery(origin uint64, m *net.QueryMessage) []net.Message {
	atomic.AddUint64(&c.stats.queriesReceived, 1)

	var out []net.Message

	hash := m.Transaction.Hash()
	s, ok := c.mempool[hash]
	if !ok {
		// First contact: adopt the querier's belief and start querying.
		s = c.insert(m.Transaction, m.Status)

		c.logger.WithFields(logrus.Fields{
			"tx":     hash.Short(),
			"from":   origin,
			"status": s.Status,
		}).Debug("Learnt transaction from query")

		out = append(out, c.query(s))
	}

	atomic.AddUint64(&c.stats.responsesSent, 1)
	out = append(out, &net.QueryResponse{
		To:     origin,
		TxHash: hash,
		Status: s.Status,
	})

	return out
}

func (c *Core) handleResponse(origin uint64, m *net.QueryResponse) ([]net.Message, error) {
	s, ok := c.mempool[m.TxHash]
	if !ok {
		return nil, fmt.Errorf("%w: node %d has no %s", ErrUnknownTransaction, c.id, m.TxHash)
	}

	atomic.AddUint64(&c.stats.responsesReceived, 1)

	outcome := s.RecordResponse(m.Status, c.params)

	if outcome.Ignored {
		return nil, nil
	}

	fields := logrus.Fields{
		"tx":     m.TxHash.Short(),
		"from":   origin,
		"status": s.Status,
		"epoch":  s.Epoch,
	}

	if outcome.Flipped {
		atomic.AddUint64(&c.stats.flips, 1)
		c.logger.WithFields(fields).Debug("Flipped")
	}

	if outcome.EpochAdvanced {
		atomic.AddUint64(&c.stats.epochs, 1)
		c.logger.WithFields(fields).Debug("Epoch advanced")
	}

	if outcome.Final {
		c.pending--
		atomic.AddUint64(&c.stats.decisions, 1)
		c.logger.WithFields(fields).Info("Final")

		if c.commitCallback != nil {
			if err := c.commitCallback(consensus.NewDecision(c.id, s)); err != nil {
				c.logger.WithError(err).Error("Committing decision")
				return nil, err
			}
		}
		return nil, nil
	}

	return []net.Message{c.query(s)}, nil
}

func (c *Core) insert(tx consensus.Transaction, status consensus.Status) *consensus.State {
	s := consensus.NewState(tx, status)
	c.mempool[tx.Hash()] = s
	c.pending++
	return s
}

func (c *Core) query(s *consensus.State) *net.QueryMessage {
	atomic.AddUint64(&c.stats.queriesSent, 1)
	return &net.QueryMessage{
		Transaction: s.Transaction,
		Status:      s.Status,
	}
}

// GetState returns a copy of the node's state for a transaction.
func (c *Core) GetState(hash consensus.Hash) (consensus.StateInfo, error) {
	s, ok := c.mempool[hash]
	if !ok {
		return consensus.StateInfo{}, common.NewStoreErr("Mempool", common.KeyNotFound, hash.String())
	}
	return s.Snapshot(), nil
}

// GetStates returns a copy of every state in the mempool.
func (c *Core) GetStates() map[consensus.Hash]consensus.StateInfo {
	res := make(map[consensus.Hash]consensus.StateInfo, len(c.mempool))
	for h, s := range c.mempool {
		res[h] = s.Snapshot()
	}
	return res
}

// Pending returns the number of transactions in the mempool that are not
// final.
func (c *Core) Pending() int {
	return c.pending
}

// Size returns the number of transactions in the mempool.
func (c *Core) Size() int {
	return len(c.mempool)
}
