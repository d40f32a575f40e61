package net

import (
	"fmt"
	"sync"
)

const consumerBuffer = 16

// InmemTransport implements the Transport interface with channels, so that
// a whole network runs inside one process.
type InmemTransport struct {
	sync.RWMutex
	consumers  map[uint64]chan RPC
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// NewInmemTransport creates a transport with no node connected.
func NewInmemTransport() *InmemTransport {
	return &InmemTransport{
		consumers:  make(map[uint64]chan RPC),
		shutdownCh: make(chan struct{}),
	}
}

// Connect implements the Transport interface. Connecting the same id twice
// returns the same channel.
func (i *InmemTransport) Connect(id uint64) <-chan RPC {
	i.Lock()
	defer i.Unlock()

	ch, ok := i.consumers[id]
	if !ok {
		ch = make(chan RPC, consumerBuffer)
		i.consumers[id] = ch
	}
	return ch
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(target, origin uint64, msg Message) (<-chan RPCResponse, error) {
	i.RLock()
	consumer, ok := i.consumers[target]
	i.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, target)
	}

	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		Origin:   origin,
		Command:  msg,
		RespChan: respCh,
	}

	select {
	case consumer <- rpc:
	case <-i.shutdownCh:
		return nil, ErrTransportShutdown
	}

	return respCh, nil
}

// Wait blocks until the answer to a Send arrives.
func (i *InmemTransport) Wait(respCh <-chan RPCResponse) ([]Message, error) {
	select {
	case resp := <-respCh:
		return resp.Outbound, resp.Error
	case <-i.shutdownCh:
		return nil, ErrTransportShutdown
	}
}

// Deliver implements the Transport interface.
func (i *InmemTransport) Deliver(target, origin uint64, msg Message) ([]Message, error) {
	respCh, err := i.Send(target, origin, msg)
	if err != nil {
		return nil, err
	}
	return i.Wait(respCh)
}

// ShutdownCh is closed when the transport closes. Consumers select on it.
func (i *InmemTransport) ShutdownCh() <-chan struct{} {
	return i.shutdownCh
}

// Close implements the Transport interface.
func (i *InmemTransport) Close() error {
	i.closeOnce.Do(func() {
		close(i.shutdownCh)
	})
	return nil
}
