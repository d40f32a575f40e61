package snowball

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/snowball/src/config"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/ledger"
	"github.com/mosaicnetworks/snowball/src/net"
	"github.com/mosaicnetworks/snowball/src/node"
	"github.com/mosaicnetworks/snowball/src/peers"
	"github.com/mosaicnetworks/snowball/src/service"
	"github.com/sirupsen/logrus"
)

const (
	decisionChSize = 1024
	pollInterval   = 5 * time.Millisecond
)

var (
	// ErrNotRunning is returned by operations that need the node loops and
	// the router to be running.
	ErrNotRunning = errors.New("simulation is not running")

	// ErrTimeout is returned by WaitFinal when the deadline passes first.
	ErrTimeout = errors.New("timed out waiting for finality")

	// ErrStalled is returned by WaitFinal when no message is left in flight
	// but some nodes that know the transaction have not decided it.
	ErrStalled = errors.New("network is quiescent but undecided")
)

// Simulation is a whole snowball network running in one process.
type Simulation struct {
	Config    *config.Config
	Peers     *peers.PeerSet
	Sampler   *peers.Sampler
	Transport *net.InmemTransport
	Router    *net.Router
	Nodes     []*node.Node
	Store     ledger.Store
	Service   *service.Service

	nodesByID  map[uint64]*node.Node
	decisionCh chan consensus.Decision

	runLock      sync.Mutex
	running      bool
	shutdownOnce sync.Once

	logger *logrus.Entry
}

// NewSimulation creates a Simulation. Init must be called before Run.
func NewSimulation(conf *config.Config) *Simulation {
	return &Simulation{
		Config:     conf,
		nodesByID:  make(map[uint64]*node.Node),
		decisionCh: make(chan consensus.Decision, decisionChSize),
		logger:     conf.Logger(),
	}
}

func (s *Simulation) initPeers() error {
	if s.Peers != nil {
		return nil
	}

	if !s.Config.LoadPeers {
		s.Peers = peers.NewSequentialPeerSet(s.Config.Nodes)
		return nil
	}

	peerStore := peers.NewJSONPeerSet(s.Config.DataDir)

	peerSet, err := peerStore.PeerSet()
	if err != nil {
		return err
	}
	if peerSet == nil {
		return fmt.Errorf("%s defines no peers", peerStore.Path())
	}

	s.logger.WithFields(logrus.Fields{
		"path":  peerStore.Path(),
		"peers": peerSet.Len(),
	}).Debug("Loaded peers")

	s.Peers = peerSet

	return nil
}

func (s *Simulation) initStore() error {
	if !s.Config.Store {
		s.Store = ledger.NewInmemStore()

		s.logger.Debug("created new in-mem store")
		return nil
	}

	s.logger.WithField("path", s.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := ledger.LoadOrCreateBadgerStore(s.Config.DatabaseDir, s.logger)
	if err != nil {
		return err
	}
	s.Store = store

	return nil
}

func (s *Simulation) initRouter() {
	s.Sampler = peers.NewSampler(s.Config.Seed)
	s.Transport = net.NewInmemTransport()
	s.Router = net.NewRouter(
		s.Peers,
		s.Sampler,
		s.Config.Params.K,
		s.Transport,
		s.Config.WireEncoding,
		s.Config.RootLogger().WithField("seed", s.Config.Seed),
	)
}

func (s *Simulation) initNodes() {
	for _, p := range s.Peers.Peers {
		n := node.NewNode(
			p.ID,
			p.Moniker,
			s.Config.Params,
			s.Transport,
			s.commit,
			logrus.NewEntry(s.Config.RootLogger()),
		)
		s.Nodes = append(s.Nodes, n)
		s.nodesByID[p.ID] = n
	}
}

func (s *Simulation) initService() {
	if !s.Config.NoService {
		s.Service = service.NewService(s.Config.ServiceAddr, s.Nodes, s.Router, s.Store, s.logger)
	}
}

// Init validates the configuration and builds every component.
func (s *Simulation) Init() error {
	if err := s.Config.Params.Validate(); err != nil {
		return err
	}

	if err := s.initPeers(); err != nil {
		return err
	}

	// Every query needs k peers besides its origin.
	if s.Peers.Len() < s.Config.Params.K+1 {
		return fmt.Errorf("%w: %d nodes for k=%d", peers.ErrNotEnoughPeers, s.Peers.Len(), s.Config.Params.K)
	}

	if err := s.initStore(); err != nil {
		return err
	}

	s.initRouter()
	s.initNodes()
	s.initService()

	s.logger.WithFields(logrus.Fields{
		"nodes":         s.Peers.Len(),
		"peer_set":      s.Peers.Hex(),
		"params":        s.Config.Params.String(),
		"seed":          s.Config.Seed,
		"wire_encoding": s.Config.WireEncoding,
	}).Debug("Simulation initialised")

	return nil
}

// Run starts the node loops, the router and the service, and returns
// immediately.
func (s *Simulation) Run() {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	if s.running {
		return
	}

	for _, n := range s.Nodes {
		n.RunAsync()
	}
	s.Router.RunAsync()

	if s.Service != nil {
		go s.Service.Serve()
	}

	s.running = true
}

// commit is the DecisionCallback of every node.
func (s *Simulation) commit(d consensus.Decision) error {
	if err := s.Store.SetDecision(d); err != nil {
		return err
	}

	select {
	case s.decisionCh <- d:
	default:
		s.logger.WithField("node", d.NodeID).Warn("Decision channel full, dropping notification")
	}

	return nil
}

// Decisions publishes every decision as it is made. Notifications are dropped
// when nobody drains the channel; the Store keeps all of them.
func (s *Simulation) Decisions() <-chan consensus.Decision {
	return s.decisionCh
}

// Inject hands a transaction to one node.
func (s *Simulation) Inject(nodeID uint64, tx consensus.Transaction) error {
	s.runLock.Lock()
	running := s.running
	s.runLock.Unlock()

	if !running {
		return ErrNotRunning
	}

	s.logger.WithFields(logrus.Fields{
		"node": nodeID,
		"tx":   tx.Hash().Short(),
	}).Debug("Inject")

	return s.Router.Inject(nodeID, tx)
}

// Node returns the node with the given ID.
func (s *Simulation) Node(id uint64) (*node.Node, bool) {
	n, ok := s.nodesByID[id]
	return n, ok
}

// Learners returns the IDs of the nodes that hold the transaction, in peer
// order.
func (s *Simulation) Learners(hash consensus.Hash) []uint64 {
	res := []uint64{}
	for _, n := range s.Nodes {
		if n.Knows(hash) {
			res = append(res, n.ID())
		}
	}
	return res
}

// Undecided returns the IDs of the nodes that hold the transaction but have
// not decided it.
func (s *Simulation) Undecided(hash consensus.Hash) []uint64 {
	res := []uint64{}
	for _, n := range s.Nodes {
		st, err := n.GetState(hash)
		if err == nil && !st.IsFinal {
			res = append(res, n.ID())
		}
	}
	return res
}

// WaitFinal runs until every node that holds the transaction has decided it,
// and returns their decisions. It fails on the first routing error, when the
// timeout expires, or when the network goes quiet with undecided nodes left.
func (s *Simulation) WaitFinal(hash consensus.Hash, timeout time.Duration) ([]consensus.Decision, error) {
	s.runLock.Lock()
	running := s.running
	s.runLock.Unlock()

	if !running {
		return nil, ErrNotRunning
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-s.Router.ErrCh():
			return nil, err
		case <-deadline:
			return nil, fmt.Errorf("%w: %s undecided at %v", ErrTimeout, hash.Short(), s.Undecided(hash))
		case <-ticker.C:
		}

		// Quiescence first: once nothing is in flight, the set of learners
		// cannot grow any more.
		if !s.Router.Quiescent() {
			continue
		}

		if len(s.Learners(hash)) == 0 {
			return nil, fmt.Errorf("%w: %s", node.ErrUnknownTransaction, hash.Short())
		}

		if undecided := s.Undecided(hash); len(undecided) > 0 {
			return nil, fmt.Errorf("%w: %s undecided at %v", ErrStalled, hash.Short(), undecided)
		}

		return s.Store.TransactionDecisions(hash)
	}
}

// Stats returns the router's counters.
func (s *Simulation) Stats() net.RouterStats {
	return s.Router.Stats()
}

// Shutdown stops the router, then the nodes, then the transport, and closes
// the store.
func (s *Simulation) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Debug("Shutdown")

		if s.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := s.Service.Shutdown(ctx); err != nil {
				s.logger.WithError(err).Error("Stopping service")
			}
			cancel()
		}

		if s.Router != nil {
			s.Router.Shutdown()
		}

		for _, n := range s.Nodes {
			n.Shutdown()
		}

		if s.Transport != nil {
			s.Transport.Close()
		}

		if s.Store != nil {
			if err := s.Store.Close(); err != nil {
				s.logger.WithError(err).Error("Closing store")
			}
		}

		s.runLock.Lock()
		s.running = false
		s.runLock.Unlock()
	})
}
