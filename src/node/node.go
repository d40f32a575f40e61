package node

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/net"
	"github.com/mosaicnetworks/snowball/src/node/state"
	"github.com/sirupsen/logrus"
)

// Node defines a snowball node
type Node struct {
	state state.Manager

	id      uint64
	moniker string
	logger  *logrus.Entry

	core *Core

	netCh     <-chan net.RPC
	inspectCh chan func()

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	doneCh       chan struct{}
}

// NewNode is a factory method that returns a Node instance. The node
// registers itself with the transport straight away, so that messages routed
// to it before Run is called are queued rather than rejected.
func NewNode(id uint64,
	moniker string,
	params consensus.Params,
	trans net.Transport,
	commitCallback DecisionCallback,
	logger *logrus.Entry,
) *Node {
	logger = logger.WithFields(logrus.Fields{
		"prefix":  moniker,
		"this_id": id,
	})

	return &Node{
		id:         id,
		moniker:    moniker,
		logger:     logger,
		core:       NewCore(id, params, commitCallback, logger),
		netCh:      trans.Connect(id),
		inspectCh:  make(chan func()),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// ID returns the node's identifier.
func (n *Node) ID() uint64 {
	return n.id
}

// Moniker returns the node's human-readable name.
func (n *Node) Moniker() string {
	return n.moniker
}

// RunAsync calls Run in a separate goroutine
func (n *Node) RunAsync() {
	if !n.state.Transition(state.Idle, state.Running) {
		return
	}
	go n.loop()
}

// Run invokes the main loop of the node. It returns when Shutdown is called.
func (n *Node) Run() {
	if !n.state.Transition(state.Idle, state.Running) {
		return
	}
	n.loop()
}

func (n *Node) loop() {
	defer close(n.doneCh)

	n.logger.Debug("Node running")

	for {
		select {
		case rpc := <-n.netCh:
			rpc.Respond(n.core.Handle(rpc.Origin, rpc.Command))
		case f := <-n.inspectCh:
			f()
		case <-n.shutdownCh:
			return
		}
	}
}

// Handle applies a message synchronously. It must only be used while the
// node's loop is not running; tests use it to drive a node directly.
func (n *Node) Handle(origin uint64, msg net.Message) ([]net.Message, error) {
	return n.core.Handle(origin, msg)
}

// inspect runs f with exclusive access to the mempool. While the loop runs,
// f executes on the loop's goroutine; otherwise it runs inline.
func (n *Node) inspect(f func()) {
	if n.state.GetState() != state.Running {
		f()
		return
	}

	done := make(chan struct{})
	select {
	case n.inspectCh <- func() { f(); close(done) }:
		<-done
	case <-n.doneCh:
		f()
	}
}

// GetState returns a copy of the node's consensus state for a transaction.
func (n *Node) GetState(hash consensus.Hash) (res consensus.StateInfo, err error) {
	n.inspect(func() {
		res, err = n.core.GetState(hash)
	})
	return
}

// GetStates returns a copy of the whole mempool.
func (n *Node) GetStates() (res map[consensus.Hash]consensus.StateInfo) {
	n.inspect(func() {
		res = n.core.GetStates()
	})
	return
}

// Knows tells whether the transaction is in the node's mempool.
func (n *Node) Knows(hash consensus.Hash) bool {
	_, err := n.GetState(hash)
	return err == nil
}

// Pending returns the number of transactions the node has not decided yet.
func (n *Node) Pending() (res int) {
	n.inspect(func() {
		res = n.core.Pending()
	})
	return
}

// GetStats returns information about the node.
func (n *Node) GetStats() map[string]string {
	var pending, size int
	n.inspect(func() {
		pending = n.core.Pending()
		size = n.core.Size()
	})

	stats := &n.core.stats
	u := func(addr *uint64) string {
		return strconv.FormatUint(atomic.LoadUint64(addr), 10)
	}

	return map[string]string{
		"id":                    strconv.FormatUint(n.id, 10),
		"moniker":               n.moniker,
		"state":                 n.state.GetState().String(),
		"transactions_received": u(&stats.transactionsReceived),
		"queries_received":      u(&stats.queriesReceived),
		"responses_received":    u(&stats.responsesReceived),
		"queries_sent":          u(&stats.queriesSent),
		"responses_sent":        u(&stats.responsesSent),
		"flips":                 u(&stats.flips),
		"epochs":                u(&stats.epochs),
		"decisions":             u(&stats.decisions),
		"pending":               strconv.Itoa(pending),
		"mempool_size":          strconv.Itoa(size),
	}
}

// Shutdown stops the node's loop and waits for it to return.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")
		close(n.shutdownCh)

		if n.state.Transition(state.Idle, state.Shutdown) {
			close(n.doneCh)
			return
		}

		<-n.doneCh
		n.state.SetState(state.Shutdown)
	})
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%d)", n.moniker, n.id)
}
