package ledger

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
)

type decisionKey struct {
	node uint64
	hash consensus.Hash
}

func (k decisionKey) String() string {
	return fmt.Sprintf("%d_%s", k.node, k.hash)
}

// InmemStore implements the Store interface with maps. It is safe for
// concurrent use.
type InmemStore struct {
	sync.RWMutex
	decisions map[decisionKey]consensus.Decision
	byNode    map[uint64][]consensus.Hash
	byTx      map[consensus.Hash][]uint64
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		decisions: make(map[decisionKey]consensus.Decision),
		byNode:    make(map[uint64][]consensus.Hash),
		byTx:      make(map[consensus.Hash][]uint64),
	}
}

// SetDecision implements the Store interface.
func (s *InmemStore) SetDecision(d consensus.Decision) error {
	s.Lock()
	defer s.Unlock()

	key := decisionKey{d.NodeID, d.TxHash}
	if _, ok := s.decisions[key]; ok {
		return cm.NewStoreErr("Decision", cm.KeyAlreadyExists, key.String())
	}

	s.decisions[key] = d
	s.byNode[d.NodeID] = append(s.byNode[d.NodeID], d.TxHash)
	s.byTx[d.TxHash] = append(s.byTx[d.TxHash], d.NodeID)

	return nil
}

// replaceDecision overwrites a decision that is already recorded, keeping its
// place in the recording order.
func (s *InmemStore) replaceDecision(d consensus.Decision) {
	s.Lock()
	defer s.Unlock()
	s.decisions[decisionKey{d.NodeID, d.TxHash}] = d
}

// GetDecision implements the Store interface.
func (s *InmemStore) GetDecision(node uint64, hash consensus.Hash) (consensus.Decision, error) {
	s.RLock()
	defer s.RUnlock()

	key := decisionKey{node, hash}
	d, ok := s.decisions[key]
	if !ok {
		return consensus.Decision{}, cm.NewStoreErr("Decision", cm.KeyNotFound, key.String())
	}
	return d, nil
}

// NodeDecisions implements the Store interface.
func (s *InmemStore) NodeDecisions(node uint64) ([]consensus.Decision, error) {
	s.RLock()
	defer s.RUnlock()

	hashes, ok := s.byNode[node]
	if !ok {
		return nil, cm.NewStoreErr("NodeDecisions", cm.Empty, fmt.Sprint(node))
	}

	res := make([]consensus.Decision, 0, len(hashes))
	for _, h := range hashes {
		res = append(res, s.decisions[decisionKey{node, h}])
	}
	return res, nil
}

// TransactionDecisions implements the Store interface.
func (s *InmemStore) TransactionDecisions(hash consensus.Hash) ([]consensus.Decision, error) {
	s.RLock()
	defer s.RUnlock()

	nodes, ok := s.byTx[hash]
	if !ok {
		return nil, cm.NewStoreErr("TransactionDecisions", cm.Empty, hash.String())
	}

	res := make([]consensus.Decision, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, s.decisions[decisionKey{n, hash}])
	}
	sort.Slice(res, func(i, j int) bool { return res[i].NodeID < res[j].NodeID })
	return res, nil
}

// Decisions implements the Store interface.
func (s *InmemStore) Decisions() []consensus.Decision {
	s.RLock()
	defer s.RUnlock()

	res := make([]consensus.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		res = append(res, d)
	}
	sortDecisions(res)
	return res
}

// Count implements the Store interface.
func (s *InmemStore) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.decisions)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}

func sortDecisions(ds []consensus.Decision) {
	sort.Slice(ds, func(i, j int) bool {
		if c := bytes.Compare(ds[i].TxHash[:], ds[j].TxHash[:]); c != 0 {
			return c < 0
		}
		return ds[i].NodeID < ds[j].NodeID
	})
}
