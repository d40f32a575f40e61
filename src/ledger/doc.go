// Package ledger records the decisions produced by snowball nodes.
//
// A decision is keyed by the node that produced it and the transaction it is
// about, and every key is written once. InmemStore keeps decisions in memory;
// BadgerStore additionally writes them to a Badger database so that a finished
// run can be inspected later.
package ledger
