package net

// RPCResponse captures both the messages produced by a node and a potential
// error.
type RPCResponse struct {
	Outbound []Message
	Error    error
}

// RPC encapsulates a message delivered to a node and provides a response
// mechanism.
type RPC struct {
	Origin   uint64
	Command  Message
	RespChan chan<- RPCResponse
}

// Respond is used to respond with outbound messages, an error, or both.
func (r *RPC) Respond(outbound []Message, err error) {
	r.RespChan <- RPCResponse{outbound, err}
}
