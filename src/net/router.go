package net

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/peers"
	"github.com/sirupsen/logrus"
)

// ExternalOrigin is the origin of injected transactions, which do not come
// from any node.
const ExternalOrigin = math.MaxUint64

const errChSize = 64

// RouterStats is a snapshot of the router's counters.
type RouterStats struct {
	QueriesRouted   uint64 `json:"queries_routed"`
	ResponsesRouted uint64 `json:"responses_routed"`
	Deliveries      uint64 `json:"deliveries"`
	Injections      uint64 `json:"injections"`
	Errors          uint64 `json:"errors"`
	Enqueued        uint64 `json:"enqueued"`
	MailboxLen      int    `json:"mailbox_len"`
	Pending         int64  `json:"pending"`
}

// Router consumes the Mailbox and delivers each envelope to its recipients.
type Router struct {
	peers   *peers.PeerSet
	ids     []uint64
	sampler *peers.Sampler
	k       int
	trans   Transport
	mailbox *Mailbox
	logger  *logrus.Entry

	errCh        chan error
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	doneCh       chan struct{}
	started      int32

	// pending counts envelopes pushed and not yet fully dispatched.
	pending int64

	queriesRouted   uint64
	responsesRouted uint64
	deliveries      uint64
	injections      uint64
	errorCount      uint64
}

// NewRouter creates a Router for the given membership. k is the number of
// peers each query is fanned out to.
func NewRouter(peerSet *peers.PeerSet,
	sampler *peers.Sampler,
	k int,
	trans Transport,
	wireEncoding bool,
	logger *logrus.Entry,
) *Router {
	return &Router{
		peers:      peerSet,
		ids:        peerSet.IDs(),
		sampler:    sampler,
		k:          k,
		trans:      trans,
		mailbox:    NewMailbox(wireEncoding),
		logger:     logger.WithField("prefix", "router"),
		errCh:      make(chan error, errChSize),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Inject delivers a transaction directly to node target, bypassing the
// mailbox, and enqueues whatever the node emits in response.
func (r *Router) Inject(target uint64, tx consensus.Transaction) error {
	if !r.peers.Contains(target) {
		return fmt.Errorf("%w: %d", ErrUnknownNode, target)
	}

	r.logger.WithFields(logrus.Fields{
		"node": target,
		"tx":   tx.Hash().Short(),
	}).Debug("Injecting transaction")

	out, err := r.trans.Deliver(target, ExternalOrigin, &TransactionMessage{Transaction: tx})
	if err != nil {
		return err
	}
	atomic.AddUint64(&r.injections, 1)

	return r.enqueueAll(target, out)
}

// Enqueue appends an envelope to the mailbox.
func (r *Router) Enqueue(env Envelope) error {
	atomic.AddInt64(&r.pending, 1)
	if err := r.mailbox.Push(env); err != nil {
		atomic.AddInt64(&r.pending, -1)
		return err
	}
	return nil
}

func (r *Router) enqueueAll(origin uint64, msgs []Message) error {
	for _, m := range msgs {
		if err := r.Enqueue(Envelope{Origin: origin, Message: m}); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes the mailbox until Shutdown is called. Envelopes are dispatched
// strictly in arrival order.
func (r *Router) Run() {
	atomic.StoreInt32(&r.started, 1)
	defer close(r.doneCh)

	r.logger.WithFields(logrus.Fields{
		"peers": r.peers.Len(),
		"k":     r.k,
	}).Debug("Router running")

	for {
		env, ok, err := r.mailbox.Pop(r.shutdownCh)
		if !ok {
			return
		}
		if err != nil {
			r.fail(err, logrus.Fields{})
		} else {
			r.dispatch(env)
		}
		atomic.AddInt64(&r.pending, -1)
	}
}

// RunAsync calls Run in a separate goroutine.
func (r *Router) RunAsync() {
	atomic.StoreInt32(&r.started, 1)
	go r.Run()
}

func (r *Router) dispatch(env Envelope) {
	switch msg := env.Message.(type) {
	case *QueryMessage:
		r.routeQuery(env.Origin, msg)
	case *QueryResponse:
		r.routeResponse(env.Origin, msg)
	case *TransactionMessage:
		r.fail(ErrTransactionRouted, logrus.Fields{"origin": env.Origin})
	default:
		r.fail(ErrUnknownMessage, logrus.Fields{"origin": env.Origin})
	}
}

func (r *Router) routeQuery(origin uint64, msg *QueryMessage) {
	fields := logrus.Fields{
		"origin": origin,
		"kind":   QueryKind,
		"tx":     msg.Transaction.Hash().Short(),
	}

	if !r.peers.Contains(origin) {
		r.fail(fmt.Errorf("%w: query origin %d", ErrUnknownNode, origin), fields)
		return
	}

	sample, err := r.sampler.Sample(r.ids, origin, r.k)
	if err != nil {
		r.fail(err, fields)
		return
	}

	r.logger.WithFields(fields).WithField("peers", sample).Debug("Routing")

	// Each sampled peer is a distinct node, so all of them can work at once.
	// Their output is enqueued in sample order.
	respChs := make([]<-chan RPCResponse, len(sample))
	for i, peer := range sample {
		respCh, err := r.trans.Send(peer, origin, msg)
		if err != nil {
			r.fail(err, fields)
			continue
		}
		respChs[i] = respCh
	}

	for i, peer := range sample {
		if respChs[i] == nil {
			continue
		}
		out, err := r.trans.Wait(respChs[i])
		if err != nil {
			r.fail(err, fields)
			continue
		}
		atomic.AddUint64(&r.deliveries, 1)
		if err := r.enqueueAll(peer, out); err != nil {
			r.fail(err, fields)
		}
	}

	atomic.AddUint64(&r.queriesRouted, 1)
}

func (r *Router) routeResponse(origin uint64, msg *QueryResponse) {
	fields := logrus.Fields{
		"origin": origin,
		"kind":   QueryResponseKind,
		"to":     msg.To,
		"tx":     msg.TxHash.Short(),
	}

	if !r.peers.Contains(msg.To) {
		r.fail(fmt.Errorf("%w: %d", ErrUnknownNode, msg.To), fields)
		return
	}

	r.logger.WithFields(fields).Debug("Routing")

	out, err := r.trans.Deliver(msg.To, origin, msg)
	if err != nil {
		r.fail(err, fields)
		return
	}
	atomic.AddUint64(&r.deliveries, 1)
	atomic.AddUint64(&r.responsesRouted, 1)

	if err := r.enqueueAll(msg.To, out); err != nil {
		r.fail(err, fields)
	}
}

// fail reports a precondition violation. The offending delivery is dropped,
// which halts the chain of messages it belonged to.
func (r *Router) fail(err error, fields logrus.Fields) {
	if errors.Is(err, ErrTransportShutdown) {
		return
	}

	atomic.AddUint64(&r.errorCount, 1)
	r.logger.WithError(err).WithFields(fields).Error("Routing failed")

	select {
	case r.errCh <- err:
	default:
	}
}

// ErrCh publishes routing errors. It is buffered and drops errors when full;
// Stats keeps the exact count.
func (r *Router) ErrCh() <-chan error {
	return r.errCh
}

// Quiescent tells whether every enqueued envelope has been dispatched.
func (r *Router) Quiescent() bool {
	return atomic.LoadInt64(&r.pending) == 0
}

// Stats returns a snapshot of the router's counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		QueriesRouted:   atomic.LoadUint64(&r.queriesRouted),
		ResponsesRouted: atomic.LoadUint64(&r.responsesRouted),
		Deliveries:      atomic.LoadUint64(&r.deliveries),
		Injections:      atomic.LoadUint64(&r.injections),
		Errors:          atomic.LoadUint64(&r.errorCount),
		Enqueued:        r.mailbox.Pushed(),
		MailboxLen:      r.mailbox.Len(),
		Pending:         atomic.LoadInt64(&r.pending),
	}
}

// Shutdown stops the dispatch loop and waits for it to return if it was
// started.
func (r *Router) Shutdown() {
	r.shutdownOnce.Do(func() {
		close(r.shutdownCh)
	})
	if atomic.LoadInt32(&r.started) == 1 {
		<-r.doneCh
	}
}
