package peers

import (
	"encoding/binary"
	"fmt"

	"github.com/mosaicnetworks/snowball/src/common"
	"github.com/mosaicnetworks/snowball/src/crypto"
)

// PeerSet is the fixed membership of a simulated network.
type PeerSet struct {
	Peers []*Peer          `json:"peers"`
	ByID  map[uint64]*Peer `json:"-"`

	//cached values
	hash []byte
	hex  string
}

// NewPeerSet creates a new PeerSet from a list of Peers. Duplicate IDs are an
// error.
func NewPeerSet(peers []*Peer) (*PeerSet, error) {
	peerSet := &PeerSet{
		ByID: make(map[uint64]*Peer),
	}

	for _, peer := range peers {
		if _, ok := peerSet.ByID[peer.ID]; ok {
			return nil, fmt.Errorf("duplicate peer id %d", peer.ID)
		}
		peerSet.ByID[peer.ID] = peer
	}

	peerSet.Peers = peers

	return peerSet, nil
}

// NewSequentialPeerSet creates a PeerSet of n peers with IDs 0 to n-1.
func NewSequentialPeerSet(n int) *PeerSet {
	peers := make([]*Peer, 0, n)
	for i := 0; i < n; i++ {
		peers = append(peers, NewPeer(uint64(i), ""))
	}
	peerSet, _ := NewPeerSet(peers)
	return peerSet
}

// IDs returns the PeerSet's slice of IDs, in insertion order.
func (peerSet *PeerSet) IDs() []uint64 {
	res := make([]uint64, 0, len(peerSet.Peers))
	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID)
	}
	return res
}

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByID)
}

// Contains tells whether a peer with the given ID belongs to the set.
func (peerSet *PeerSet) Contains(id uint64) bool {
	_, ok := peerSet.ByID[id]
	return ok
}

// Hash fingerprints the membership by hashing the peer IDs together, one by
// one.
func (peerSet *PeerSet) Hash() []byte {
	if len(peerSet.hash) == 0 {
		hash := []byte{}
		for _, p := range peerSet.Peers {
			idBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(idBytes, p.ID)
			hash = crypto.SimpleHashFromTwoHashes(hash, idBytes)
		}
		peerSet.hash = hash
	}
	return peerSet.hash
}

// Hex is the hexadecimal representation of Hash
func (peerSet *PeerSet) Hex() string {
	if len(peerSet.hex) == 0 {
		peerSet.hex = common.EncodeToString(peerSet.Hash())
	}
	return peerSet.hex
}
