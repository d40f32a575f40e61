package consensus

import (
	"errors"
	"fmt"
	"math"
)

// Default protocol parameters.
const (
	DefaultK     = 4
	DefaultAlpha = 0.75
	DefaultBeta  = 3
	DefaultM     = 4
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid protocol parameters")

// Params holds the protocol configuration shared by every node.
type Params struct {
	// K is the number of peers sampled per query.
	K int `mapstructure:"k"`

	// Alpha is the fraction of K that must agree for a quorum.
	Alpha float64 `mapstructure:"alpha"`

	// Beta is the streak bound: the epoch advances once more than Beta
	// consecutive quorums agree.
	Beta int `mapstructure:"beta"`

	// M is the number of epochs required for finality.
	M int `mapstructure:"epochs"`
}

// DefaultParams returns the reference parameters.
func DefaultParams() Params {
	return Params{
		K:     DefaultK,
		Alpha: DefaultAlpha,
		Beta:  DefaultBeta,
		M:     DefaultM,
	}
}

// QuorumSize is ceil(Alpha*K), the number of agreeing responses that make a
// quorum.
func (p Params) QuorumSize() int {
	// Round first so that 0.75*4 does not become 3.0000000000000004.
	product := math.Round(p.Alpha*float64(p.K)*1e9) / 1e9
	return int(math.Ceil(product))
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	switch {
	case p.K < 1:
		return fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidParams, p.K)
	case p.Alpha <= 0 || p.Alpha > 1:
		return fmt.Errorf("%w: alpha must be in (0,1], got %v", ErrInvalidParams, p.Alpha)
	case p.Beta < 0:
		return fmt.Errorf("%w: beta must not be negative, got %d", ErrInvalidParams, p.Beta)
	case p.M < 1:
		return fmt.Errorf("%w: epochs must be at least 1, got %d", ErrInvalidParams, p.M)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("k=%d alpha=%v beta=%d m=%d", p.K, p.Alpha, p.Beta, p.M)
}
