package net

import "errors"

var (
	// ErrTransactionRouted is returned when a transaction is handed to the
	// router instead of being injected into a node.
	ErrTransactionRouted = errors.New("transactions cannot be routed")

	// ErrUnknownNode is returned when a message is addressed to a node that is
	// not part of the network.
	ErrUnknownNode = errors.New("unknown node")

	// ErrTransportShutdown is returned by deliveries interrupted by Shutdown.
	ErrTransportShutdown = errors.New("transport is shut down")
)

// ErrUnknownMessage is returned for envelopes without a usable message.
var ErrUnknownMessage = errors.New("unknown message")
