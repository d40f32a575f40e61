package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/ledger"
	"github.com/mosaicnetworks/snowball/src/net"
	"github.com/mosaicnetworks/snowball/src/node"
	"github.com/mosaicnetworks/snowball/src/peers"
	"github.com/sirupsen/logrus"
)

func initService(t *testing.T) (*Service, consensus.Transaction) {
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	peerSet := peers.NewSequentialPeerSet(3)
	trans := net.NewInmemTransport()
	t.Cleanup(func() { trans.Close() })

	router := net.NewRouter(peerSet, peers.NewSampler(1), 2, trans, false, logger)

	nodes := []*node.Node{}
	for _, id := range peerSet.IDs() {
		nodes = append(nodes, node.NewNode(id, "", consensus.DefaultParams(), trans, nil, logger))
	}

	tx := consensus.NewTransaction(1, 3)
	if _, err := nodes[0].Handle(net.ExternalOrigin, &net.TransactionMessage{Transaction: tx}); err != nil {
		t.Fatal(err)
	}

	store := ledger.NewInmemStore()
	store.SetDecision(consensus.Decision{
		NodeID:    2,
		TxHash:    tx.Hash(),
		Status:    consensus.Valid,
		Epoch:     4,
		Timestamp: time.Now().UTC(),
	})

	return NewService("127.0.0.1:0", nodes, router, store, logger), tx
}

func get(t *testing.T, s *Service, url string, v interface{}) int {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	if rec.Code == http.StatusOK && v != nil {
		if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return rec.Code
}

func TestGetStats(t *testing.T) {
	s, _ := initService(t)

	var stats Stats
	if code := get(t, s, "/stats", &stats); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}

	if len(stats.Nodes) != 3 {
		t.Fatalf("expected stats of 3 nodes, got %d", len(stats.Nodes))
	}
	if stats.Nodes["0"]["mempool_size"] != "1" || stats.Nodes["1"]["mempool_size"] != "0" {
		t.Fatalf("unexpected node stats %v", stats.Nodes)
	}
	if stats.Store != 1 {
		t.Fatalf("expected 1 decision, got %d", stats.Store)
	}
}

func TestGetNode(t *testing.T) {
	s, tx := initService(t)

	var states map[string]consensus.StateInfo
	if code := get(t, s, "/nodes/0", &states); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}

	st, ok := states[tx.Hash().String()]
	if !ok {
		t.Fatalf("mempool should contain %s, got %v", tx.Hash(), states)
	}
	if st.Transaction != tx || st.Status != consensus.Valid {
		t.Fatalf("unexpected state %+v", st)
	}

	if code := get(t, s, "/nodes/7", nil); code != http.StatusNotFound {
		t.Fatalf("unknown node should be 404, got %d", code)
	}
	if code := get(t, s, "/nodes/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("bad node id should be 400, got %d", code)
	}
}

func TestGetDecisions(t *testing.T) {
	s, tx := initService(t)

	var all []consensus.Decision
	if code := get(t, s, "/decisions", &all); code != http.StatusOK || len(all) != 1 {
		t.Fatalf("expected 1 decision, got %d (status %d)", len(all), code)
	}

	var some []consensus.Decision
	get(t, s, "/decisions?tx="+tx.Hash().String(), &some)
	if len(some) != 1 || some[0].NodeID != 2 || some[0].TxHash != tx.Hash() {
		t.Fatalf("unexpected decisions %v", some)
	}

	var none []consensus.Decision
	get(t, s, "/decisions?tx="+consensus.NewTransaction(9, 9).Hash().String(), &none)
	if len(none) != 0 {
		t.Fatalf("expected no decision, got %v", none)
	}

	if code := get(t, s, "/decisions?tx=zz", nil); code != http.StatusBadRequest {
		t.Fatalf("bad hash should be 400, got %d", code)
	}
}
