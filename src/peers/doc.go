// Package peers defines the participants of a simulated network and the
// sampler used to pick the peers a query is sent to.
//
// Membership is fixed for the lifetime of a simulation: there is no join or
// leave. A PeerSet is either generated (IDs 0 to N-1) or read from a
// peers.json file in the data directory, which lets a run give its nodes
// friendly monikers.
//
// The Sampler draws k distinct peers uniformly at random, never including the
// node that issued the query. Asking for more peers than are eligible is a
// precondition violation, reported as ErrNotEnoughPeers.
package peers
