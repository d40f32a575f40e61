package snowball

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/config"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/ledger"
	"github.com/mosaicnetworks/snowball/src/peers"
	"github.com/sirupsen/logrus"
)

func newTestSimulation(t *testing.T, mutate func(*config.Config)) *Simulation {
	conf := config.NewTestConfig(t, logrus.InfoLevel)
	conf.Nodes = 10
	conf.Params = consensus.Params{K: 4, Alpha: 0.75, Beta: 3, M: 4}
	conf.Timeout = 10 * time.Second
	if mutate != nil {
		mutate(conf)
	}

	sim := NewSimulation(conf)
	if err := sim.Init(); err != nil {
		t.Fatal(err)
	}
	sim.Run()
	t.Cleanup(sim.Shutdown)

	return sim
}

func checkUnanimous(t *testing.T, sim *Simulation, tx consensus.Transaction, want consensus.Status) {
	decisions, err := sim.WaitFinal(tx.Hash(), sim.Config.Timeout)
	if err != nil {
		t.Fatal(err)
	}

	learners := sim.Learners(tx.Hash())
	if len(decisions) != len(learners) {
		t.Fatalf("%d learners but %d decisions", len(learners), len(decisions))
	}
	if len(learners) < sim.Config.Params.K+1 {
		t.Fatalf("transaction should reach at least k+1 nodes, reached %v", learners)
	}

	for _, d := range decisions {
		if d.Status != want {
			t.Fatalf("node %d decided %s, want %s", d.NodeID, d.Status, want)
		}
		if d.Epoch != uint32(sim.Config.Params.M) {
			t.Fatalf("node %d decided at epoch %d", d.NodeID, d.Epoch)
		}
	}

	for _, id := range learners {
		n, _ := sim.Node(id)
		st, err := n.GetState(tx.Hash())
		if err != nil {
			t.Fatal(err)
		}
		if !st.IsFinal || st.Status != want {
			t.Fatalf("node %d state %+v", id, st)
		}
		// Every node converges without ever switching belief.
		if flips := n.GetStats()["flips"]; flips != "0" {
			t.Fatalf("node %d flipped %s times", id, flips)
		}
	}

	if errs := sim.Stats().Errors; errs != 0 {
		t.Fatalf("router reported %d errors", errs)
	}
}

func TestUnanimousValid(t *testing.T) {
	sim := newTestSimulation(t, nil)

	tx := consensus.NewTransaction(1, 3)
	if err := sim.Inject(0, tx); err != nil {
		t.Fatal(err)
	}

	checkUnanimous(t, sim, tx, consensus.Valid)
}

func TestUnanimousInvalid(t *testing.T) {
	sim := newTestSimulation(t, nil)

	tx := consensus.NewTransaction(2, 9)
	if err := sim.Inject(3, tx); err != nil {
		t.Fatal(err)
	}

	checkUnanimous(t, sim, tx, consensus.Invalid)
}

func TestWireEncoding(t *testing.T) {
	sim := newTestSimulation(t, func(conf *config.Config) {
		conf.WireEncoding = true
	})

	valid := consensus.NewTransaction(1, 3)
	invalid := consensus.NewTransaction(2, 9)
	if err := sim.Inject(0, valid); err != nil {
		t.Fatal(err)
	}
	if err := sim.Inject(5, invalid); err != nil {
		t.Fatal(err)
	}

	checkUnanimous(t, sim, valid, consensus.Valid)
	checkUnanimous(t, sim, invalid, consensus.Invalid)
}

func TestDecisionsChannel(t *testing.T) {
	sim := newTestSimulation(t, nil)

	tx := consensus.NewTransaction(4, 0)
	sim.Inject(1, tx)

	if _, err := sim.WaitFinal(tx.Hash(), sim.Config.Timeout); err != nil {
		t.Fatal(err)
	}

	seen := map[uint64]bool{}
	for len(seen) < len(sim.Learners(tx.Hash())) {
		select {
		case d := <-sim.Decisions():
			if seen[d.NodeID] {
				t.Fatalf("node %d decided twice", d.NodeID)
			}
			seen[d.NodeID] = true
		case <-time.After(time.Second):
			t.Fatalf("missing decisions, got %d", len(seen))
		}
	}
}

func TestReinjection(t *testing.T) {
	sim := newTestSimulation(t, nil)

	tx := consensus.NewTransaction(1, 3)
	sim.Inject(0, tx)
	if _, err := sim.WaitFinal(tx.Hash(), sim.Config.Timeout); err != nil {
		t.Fatal(err)
	}
	count := sim.Store.Count()
	enqueued := sim.Stats().Enqueued

	// A node that already decided ignores the transaction.
	if err := sim.Inject(0, tx); err != nil {
		t.Fatal(err)
	}
	if sim.Stats().Enqueued != enqueued || sim.Store.Count() != count {
		t.Fatalf("re-injection should not produce any message")
	}
}

func TestBadgerJournal(t *testing.T) {
	dir := t.TempDir()

	sim := newTestSimulation(t, func(conf *config.Config) {
		conf.SetDataDir(dir)
		conf.DatabaseDir = filepath.Join(dir, config.DefaultBadgerFile)
		conf.Store = true
	})

	tx := consensus.NewTransaction(1, 3)
	sim.Inject(0, tx)
	decisions, err := sim.WaitFinal(tx.Hash(), sim.Config.Timeout)
	if err != nil {
		t.Fatal(err)
	}
	sim.Shutdown()

	store, err := ledger.LoadBadgerStore(filepath.Join(dir, config.DefaultBadgerFile), sim.logger)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Count() != len(decisions) {
		t.Fatalf("journal holds %d decisions, want %d", store.Count(), len(decisions))
	}
}

func TestBadgerJournalRerun(t *testing.T) {
	dir := t.TempDir()

	run := func() []consensus.Decision {
		conf := config.NewTestConfig(t, logrus.InfoLevel)
		conf.Nodes = 10
		conf.Params = consensus.Params{K: 4, Alpha: 0.75, Beta: 3, M: 4}
		conf.SetDataDir(dir)
		conf.DatabaseDir = filepath.Join(dir, config.DefaultBadgerFile)
		conf.Store = true

		sim := NewSimulation(conf)
		if err := sim.Init(); err != nil {
			t.Fatal(err)
		}
		sim.Run()
		defer sim.Shutdown()

		tx := consensus.NewTransaction(0, 3)
		if err := sim.Inject(0, tx); err != nil {
			t.Fatal(err)
		}
		decisions, err := sim.WaitFinal(tx.Hash(), 10*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		return decisions
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("first run decided at %d nodes, second at %d", len(first), len(second))
	}

	store, err := ledger.LoadBadgerStore(filepath.Join(dir, config.DefaultBadgerFile), common.NewTestEntry(t, logrus.InfoLevel))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Count() != len(second) {
		t.Fatalf("journal holds %d decisions, want %d", store.Count(), len(second))
	}
	for _, d := range second {
		got, err := store.GetDecision(d.NodeID, d.TxHash)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Timestamp.Equal(d.Timestamp) {
			t.Fatalf("node %d: journal kept %s, want the second run's decision", d.NodeID, got)
		}
	}
}

func TestInitErrors(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.InfoLevel)
	conf.Nodes = 4
	conf.Params.K = 4

	if err := NewSimulation(conf).Init(); !errors.Is(err, peers.ErrNotEnoughPeers) {
		t.Fatalf("expected ErrNotEnoughPeers, got %v", err)
	}

	conf.Nodes = 10
	conf.Params.Alpha = 0
	if err := NewSimulation(conf).Init(); !errors.Is(err, consensus.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestNotRunning(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.InfoLevel)
	sim := NewSimulation(conf)
	if err := sim.Init(); err != nil {
		t.Fatal(err)
	}
	defer sim.Shutdown()

	if err := sim.Inject(0, consensus.NewTransaction(1, 3)); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestLoadPeers(t *testing.T) {
	dir := t.TempDir()

	peerSet, _ := peers.NewPeerSet([]*peers.Peer{
		peers.NewPeer(10, "alice"),
		peers.NewPeer(20, "bob"),
		peers.NewPeer(30, "carol"),
		peers.NewPeer(40, "dave"),
		peers.NewPeer(50, "erin"),
		peers.NewPeer(60, "frank"),
	})
	if err := peers.NewJSONPeerSet(dir).Write(peerSet.Peers); err != nil {
		t.Fatal(err)
	}

	sim := newTestSimulation(t, func(conf *config.Config) {
		conf.SetDataDir(dir)
		conf.LoadPeers = true
		conf.Params = consensus.Params{K: 3, Alpha: 0.67, Beta: 2, M: 2}
	})

	if len(sim.Nodes) != 6 {
		t.Fatalf("expected 6 nodes from peers.json, got %d", len(sim.Nodes))
	}

	tx := consensus.NewTransaction(7, 8)
	if err := sim.Inject(40, tx); err != nil {
		t.Fatal(err)
	}
	checkUnanimous(t, sim, tx, consensus.Invalid)
}
