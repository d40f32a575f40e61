// Package node implements the reactive component of a snowball node.
//
// A Node owns a mempool mapping transaction hashes to their consensus state.
// The mempool is only ever touched by the node's own goroutine: the router
// hands messages to the node over the channel returned by
// Transport.Connect, and the node answers each RPC with the messages it wants
// routed. Introspection requests are executed as closures on the same
// goroutine, so there is no shared mutable state between nodes, the router
// and observers.
//
// Handlers
//
// A node reacts to three kinds of messages:
//
//   - Transaction: the first time a node sees a transaction it validates it
//     locally, records the result as its initial belief and queries its peers.
//
//   - Query: a node that has never seen the transaction adopts the sender's
//     belief and starts querying on its own behalf. In every case it answers
//     the sender with its current belief.
//
//   - QueryResponse: the reported belief is recorded in the transaction's
//     state. Unless the transaction just became final, the node queries
//     again. Responses about a final transaction are ignored.
//
// When a transaction becomes final the node calls its DecisionCallback once.
package node
