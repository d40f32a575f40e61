package ledger

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const decisionPrefix = "decision"

// BadgerStore implements the Store interface with a Badger database. Reads
// are served by an InmemStore which every write goes through.
//
// Decisions loaded from an existing journal belong to an earlier run. The
// first decision of this run for the same (node, tx) supersedes the loaded
// one if both carry the same status.
type BadgerStore struct {
	sync.Mutex
	inmemStore *InmemStore
	replayed   map[decisionKey]struct{}
	db         *badger.DB
	path       string
	logger     *logrus.Entry
}

func openBadger(path string, logger *logrus.Entry) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(logger.WithField("prefix", "badger"))
	return badger.Open(opts)
}

// NewBadgerStore creates a brand new Store with a new database
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	handle, err := openBadger(path, logger)
	if err != nil {
		return nil, err
	}
	store := &BadgerStore{
		inmemStore: NewInmemStore(),
		replayed:   make(map[decisionKey]struct{}),
		db:         handle,
		path:       path,
		logger:     logger,
	}
	return store, nil
}

// LoadBadgerStore creates a Store from an existing database and loads its
// decisions into the cache.
func LoadBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := NewBadgerStore(path, logger)
	if err != nil {
		return nil, err
	}

	decisions, err := store.dbDecisions()
	if err != nil {
		store.db.Close()
		return nil, err
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Timestamp.Before(decisions[j].Timestamp)
	})

	for _, d := range decisions {
		if err := store.inmemStore.SetDecision(d); err != nil {
			store.db.Close()
			return nil, err
		}
		store.replayed[decisionKey{d.NodeID, d.TxHash}] = struct{}{}
	}

	logger.WithFields(logrus.Fields{
		"path":      path,
		"decisions": len(decisions),
	}).Debug("Loaded decision journal")

	return store, nil
}

// LoadOrCreateBadgerStore loads the database at path if it exists and
// creates it otherwise.
func LoadOrCreateBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path, logger)

	if err != nil {
		store, err = NewBadgerStore(path, logger)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

//==============================================================================
//Keys

func dbDecisionKey(node uint64, hash consensus.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%020d_%s", decisionPrefix, node, hash))
}

//==============================================================================
//Values

// decisionRecord is the persisted shape of a Decision.
type decisionRecord struct {
	Node      uint64 `codec:"node"`
	Tx        []byte `codec:"tx"`
	Status    uint8  `codec:"status"`
	Epoch     uint32 `codec:"epoch"`
	Timestamp int64  `codec:"ts"`
}

func marshalDecision(d consensus.Decision) ([]byte, error) {
	r := decisionRecord{
		Node:      d.NodeID,
		Tx:        d.TxHash.Bytes(),
		Status:    uint8(d.Status),
		Epoch:     d.Epoch,
		Timestamp: d.Timestamp.UnixNano(),
	}

	var b []byte
	enc := codec.NewEncoderBytes(&b, new(codec.MsgpackHandle))
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return b, nil
}

func unmarshalDecision(data []byte) (consensus.Decision, error) {
	var r decisionRecord

	dec := codec.NewDecoderBytes(data, new(codec.MsgpackHandle))
	if err := dec.Decode(&r); err != nil {
		return consensus.Decision{}, err
	}

	hash, err := consensus.BytesToHash(r.Tx)
	if err != nil {
		return consensus.Decision{}, err
	}

	return consensus.Decision{
		NodeID:    r.Node,
		TxHash:    hash,
		Status:    consensus.Status(r.Status),
		Epoch:     r.Epoch,
		Timestamp: time.Unix(0, r.Timestamp).UTC(),
	}, nil
}

//==============================================================================
//Implement the Store interface

// SetDecision implements the Store interface. The database is written before
// the cache, so the cache never holds a decision the journal lacks.
func (s *BadgerStore) SetDecision(d consensus.Decision) error {
	s.Lock()
	defer s.Unlock()

	key := decisionKey{d.NodeID, d.TxHash}

	old, err := s.inmemStore.GetDecision(d.NodeID, d.TxHash)
	switch {
	case err == nil:
		if _, ok := s.replayed[key]; !ok || old.Status != d.Status {
			return cm.NewStoreErr("Decision", cm.KeyAlreadyExists, key.String())
		}
		if err := s.dbSetDecision(d); err != nil {
			return err
		}
		s.inmemStore.replaceDecision(d)
		delete(s.replayed, key)
		return nil
	case !cm.IsStore(err, cm.KeyNotFound):
		return err
	}

	if err := s.dbSetDecision(d); err != nil {
		return err
	}
	return s.inmemStore.SetDecision(d)
}

// GetDecision implements the Store interface. It falls back to the database
// on a cache miss.
func (s *BadgerStore) GetDecision(node uint64, hash consensus.Hash) (consensus.Decision, error) {
	d, err := s.inmemStore.GetDecision(node, hash)
	if err != nil {
		d, err = s.dbGetDecision(node, hash)
	}
	return d, mapError(err, "Decision", string(dbDecisionKey(node, hash)))
}

// NodeDecisions implements the Store interface.
func (s *BadgerStore) NodeDecisions(node uint64) ([]consensus.Decision, error) {
	return s.inmemStore.NodeDecisions(node)
}

// TransactionDecisions implements the Store interface.
func (s *BadgerStore) TransactionDecisions(hash consensus.Hash) ([]consensus.Decision, error) {
	return s.inmemStore.TransactionDecisions(hash)
}

// Decisions implements the Store interface.
func (s *BadgerStore) Decisions() []consensus.Decision {
	return s.inmemStore.Decisions()
}

// Count implements the Store interface.
func (s *BadgerStore) Count() int {
	return s.inmemStore.Count()
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func (s *BadgerStore) dbSetDecision(d consensus.Decision) error {
	val, err := marshalDecision(d)
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(dbDecisionKey(d.NodeID, d.TxHash), val); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *BadgerStore) dbGetDecision(node uint64, hash consensus.Hash) (consensus.Decision, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbDecisionKey(node, hash))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return consensus.Decision{}, err
	}
	return unmarshalDecision(val)
}

func (s *BadgerStore) dbDecisions() ([]consensus.Decision, error) {
	res := []consensus.Decision{}
	prefix := []byte(decisionPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			d, err := unmarshalDecision(val)
			if err != nil {
				return err
			}
			res = append(res, d)
		}
		return nil
	})

	return res, err
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
