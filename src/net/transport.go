package net

// Transport provides an interface for network transports to allow the router
// to hand messages to nodes.
type Transport interface {

	// Connect registers a node and returns the channel it consumes RPCs from.
	Connect(id uint64) <-chan RPC

	// Send hands msg to node target and returns the channel on which the
	// node's answer will arrive.
	Send(target, origin uint64, msg Message) (<-chan RPCResponse, error)

	// Wait blocks until the answer to a Send arrives.
	Wait(respCh <-chan RPCResponse) ([]Message, error)

	// Deliver is Send followed by Wait.
	Deliver(target, origin uint64, msg Message) ([]Message, error)

	// Close permanently closes a transport, interrupting pending
	// deliveries.
	Close() error
}
