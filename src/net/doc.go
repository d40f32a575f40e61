// Package net moves protocol messages between the nodes of a simulation.
//
// There is no socket involved: every node is connected to an InmemTransport
// which hands it RPCs through a channel. A node answers each RPC with the messages it wants
// sent next.
//
// The Router owns the single Mailbox of the network, a FIFO queue of
// (origin, message) envelopes. Its dispatch loop pops envelopes in arrival
// order:
//
// - a QueryMessage is fanned out to K peers drawn by the Sampler, excluding
// the origin;
//
// - a QueryResponse is delivered point-to-point to the node it names.
//
// Whatever the receiving nodes produce is appended to the back of the Mailbox,
// so propagation is breadth-first. TransactionMessages are only ever injected
// directly into one node; the Mailbox refuses them.
//
// When wire encoding is enabled, envelopes are stored in the Mailbox as
// msgpack bytes and decoded again before dispatch.
package net
