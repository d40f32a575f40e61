package consensus

import "fmt"

// Status is a node's belief about a transaction.
type Status uint8

const (
	// Valid means the transaction is believed to be acceptable.
	Valid Status = iota
	// Invalid means the transaction is believed to be unacceptable.
	Invalid
)

// Flip returns the opposite belief.
func (s Status) Flip() Status {
	if s == Valid {
		return Invalid
	}
	return Valid
}

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case Valid:
		return "Valid"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s != Valid && s != Invalid {
		return nil, fmt.Errorf("unknown status %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Valid":
		*s = Valid
	case "Invalid":
		*s = Invalid
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}
