package peers

import "fmt"

// Peer is a participant of the simulated network.
type Peer struct {
	ID      uint64 `json:"id"`
	Moniker string `json:"moniker"`
}

// NewPeer creates a Peer. An empty moniker is replaced by a name derived from
// the ID.
func NewPeer(id uint64, moniker string) *Peer {
	if moniker == "" {
		moniker = fmt.Sprintf("node%d", id)
	}
	return &Peer{
		ID:      id,
		Moniker: moniker,
	}
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s(%d)", p.Moniker, p.ID)
}

// ExcludePeer is used to exclude a single peer from a list of peers. It
// returns the index of the excluded peer, or -1.
func ExcludePeer(peers []*Peer, id uint64) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID != id {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}

// ExcludeID is ExcludePeer for bare identifiers.
func ExcludeID(ids []uint64, id uint64) []uint64 {
	res := make([]uint64, 0, len(ids))
	for _, other := range ids {
		if other != id {
			res = append(res, other)
		}
	}
	return res
}
