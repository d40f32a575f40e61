package net

import (
	"sync"
)

type mailboxEntry struct {
	env     Envelope
	encoded []byte
}

// Mailbox is the unbounded FIFO queue of envelopes waiting to be routed. Any
// number of goroutines may Push; a single consumer Pops.
type Mailbox struct {
	mu       sync.Mutex
	entries  []mailboxEntry
	encode   bool
	notifyCh chan struct{}
	pushed   uint64
}

// NewMailbox creates an empty Mailbox. When encode is true, envelopes are
// stored in their wire form.
func NewMailbox(encode bool) *Mailbox {
	return &Mailbox{
		encode:   encode,
		notifyCh: make(chan struct{}, 1),
	}
}

// Push appends an envelope to the back of the queue. Transactions are refused
// with ErrTransactionRouted.
func (m *Mailbox) Push(env Envelope) error {
	if env.Message == nil {
		return ErrUnknownMessage
	}
	if env.Message.Kind() == TransactionKind {
		return ErrTransactionRouted
	}

	entry := mailboxEntry{env: env}
	if m.encode {
		b, err := EncodeEnvelope(env)
		if err != nil {
			return err
		}
		entry = mailboxEntry{encoded: b}
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.pushed++
	m.mu.Unlock()

	select {
	case m.notifyCh <- struct{}{}:
	default:
	}

	return nil
}

// Pop removes the envelope at the front of the queue, waiting for one to be
// pushed if necessary. ok is false once shutdownCh is closed, even if entries
// remain.
func (m *Mailbox) Pop(shutdownCh <-chan struct{}) (env Envelope, ok bool, err error) {
	for {
		select {
		case <-shutdownCh:
			return Envelope{}, false, nil
		default:
		}

		m.mu.Lock()
		if len(m.entries) > 0 {
			entry := m.entries[0]
			m.entries[0] = mailboxEntry{}
			m.entries = m.entries[1:]
			if len(m.entries) == 0 {
				// Let the backing array go instead of growing forever.
				m.entries = nil
			}
			m.mu.Unlock()

			if entry.encoded != nil {
				env, err = DecodeEnvelope(entry.encoded)
				return env, true, err
			}
			return entry.env, true, nil
		}
		m.mu.Unlock()

		select {
		case <-m.notifyCh:
		case <-shutdownCh:
			return Envelope{}, false, nil
		}
	}
}

// Len returns the number of envelopes waiting.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Pushed returns the number of envelopes ever pushed.
func (m *Mailbox) Pushed() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushed
}
