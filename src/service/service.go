package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/consensus"
	"github.com/mosaicnetworks/snowball/src/ledger"
	"github.com/mosaicnetworks/snowball/src/net"
	"github.com/mosaicnetworks/snowball/src/node"
	"github.com/sirupsen/logrus"
)

// Stats is the document served on /stats.
type Stats struct {
	Router net.RouterStats              `json:"router"`
	Nodes  map[string]map[string]string `json:"nodes"`
	Store  int                          `json:"decisions"`
}

// Service exposes the state of a running simulation over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	nodes       map[uint64]*node.Node
	router      *net.Router
	store       ledger.Store
	mux         *http.ServeMux
	server      *http.Server
	logger      *logrus.Entry
}

// NewService creates a Service and registers its handlers on a private
// ServeMux.
func NewService(bindAddress string,
	nodes []*node.Node,
	router *net.Router,
	store ledger.Store,
	logger *logrus.Entry,
) *Service {
	service := Service{
		bindAddress: bindAddress,
		nodes:       make(map[uint64]*node.Node, len(nodes)),
		router:      router,
		store:       store,
		mux:         http.NewServeMux(),
		logger:      logger.WithField("prefix", "service"),
	}

	for _, n := range nodes {
		service.nodes[n.ID()] = n
	}

	service.server = &http.Server{Addr: bindAddress, Handler: service.mux}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/nodes/", s.makeHandler(s.GetNode))
	s.mux.HandleFunc("/decisions", s.makeHandler(s.GetDecisions))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the service's handlers, for embedding in another server or
// for tests.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call which returns when
// Shutdown is called.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown stops the server. Serve returns immediately if it is called
// afterwards.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetStats serves the router's counters and every node's stats.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		Router: s.router.Stats(),
		Nodes:  make(map[string]map[string]string, len(s.nodes)),
		Store:  s.store.Count(),
	}
	for id, n := range s.nodes {
		stats.Nodes[strconv.FormatUint(id, 10)] = n.GetStats()
	}

	writeJSON(w, stats)
}

// GetNode serves the mempool of the node in the path, /nodes/{id}.
func (s *Service) GetNode(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/nodes/"):]

	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing node id %s", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, ok := s.nodes[id]
	if !ok {
		http.Error(w, "unknown node "+param, http.StatusNotFound)
		return
	}

	writeJSON(w, n.GetStates())
}

// GetDecisions serves the decision journal, or only the decisions on one
// transaction when the tx query parameter is set.
func (s *Service) GetDecisions(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("tx")
	if param == "" {
		writeJSON(w, s.store.Decisions())
		return
	}

	hash, err := consensus.HashFromString(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing tx parameter %s", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	decisions, err := s.store.TransactionDecisions(hash)
	if err != nil {
		if !cm.IsStore(err, cm.Empty) {
			s.logger.WithError(err).Errorf("Retrieving decisions on %s", hash)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		decisions = []consensus.Decision{}
	}

	writeJSON(w, decisions)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
