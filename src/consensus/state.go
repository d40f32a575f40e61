package consensus

// Outcome describes what a single response did to a State.
type Outcome struct {
	// Ignored is set when the State was already final.
	Ignored bool
	// Quorum is set when the response completed a quorum for its status.
	Quorum bool
	// Flipped is set when the belief changed.
	Flipped bool
	// EpochAdvanced is set when the streak bound was crossed.
	EpochAdvanced bool
	// Final is set when this response made the State final.
	Final bool
}

// Requery tells whether the owner should issue another query.
func (o Outcome) Requery() bool {
	return !o.Ignored && !o.Final
}

// State is the consensus state of one transaction at one node. It is not safe
// for concurrent use; the owning node serialises access.
type State struct {
	Transaction       Transaction
	Status            Status
	Epoch             uint32
	RoundResponses    []Status
	ConfidenceValid   uint32
	ConfidenceInvalid uint32
	StreakBelief      Status
	StreakCount       uint32
	IsFinal           bool
}

// NewState creates the State of a transaction seen for the first time, with
// the given initial belief.
func NewState(tx Transaction, status Status) *State {
	return &State{
		Transaction:  tx,
		Status:       status,
		StreakBelief: status,
	}
}

// Hash returns the identifier of the underlying transaction.
func (s *State) Hash() Hash {
	return s.Transaction.Hash()
}

// Confidence returns the number of quorums observed for the given belief.
func (s *State) Confidence(status Status) uint32 {
	if status == Valid {
		return s.ConfidenceValid
	}
	return s.ConfidenceInvalid
}

func (s *State) incConfidence(status Status) uint32 {
	if status == Valid {
		s.ConfidenceValid++
		return s.ConfidenceValid
	}
	s.ConfidenceInvalid++
	return s.ConfidenceInvalid
}

// tally counts the responses of the current epoch equal to status.
func (s *State) tally(status Status) int {
	n := 0
	for _, r := range s.RoundResponses {
		if r == status {
			n++
		}
	}
	return n
}

func (s *State) advance() {
	s.Epoch++
	s.RoundResponses = s.RoundResponses[:0]
}

// RecordResponse applies a peer's reported status to the State.
func (s *State) RecordResponse(status Status, p Params) Outcome {
	if s.IsFinal {
		return Outcome{Ignored: true}
	}

	var out Outcome

	s.RoundResponses = append(s.RoundResponses, status)

	// The tally is taken against the received status, not the current belief.
	if s.tally(status) < p.QuorumSize() {
		return out
	}
	out.Quorum = true

	c := s.incConfidence(status)
	if status != s.Status && c > s.Confidence(s.Status) {
		s.Status = status
		out.Flipped = true
	}

	if status != s.StreakBelief {
		s.StreakBelief = status
		s.StreakCount = 0
	} else {
		s.StreakCount++
	}

	if s.StreakCount > uint32(p.Beta) {
		s.advance()
		out.EpochAdvanced = true
		if s.Epoch >= uint32(p.M) {
			s.IsFinal = true
			out.Final = true
		}
	}

	return out
}

// StateInfo is a read-only copy of a State, safe to hand out of the owning
// node's goroutine.
type StateInfo struct {
	Hash              Hash        `json:"hash"`
	Transaction       Transaction `json:"transaction"`
	Status            Status      `json:"status"`
	Epoch             uint32      `json:"epoch"`
	RoundResponses    []Status    `json:"round_responses"`
	ConfidenceValid   uint32      `json:"confidence_valid"`
	ConfidenceInvalid uint32      `json:"confidence_invalid"`
	StreakBelief      Status      `json:"streak_belief"`
	StreakCount       uint32      `json:"streak_count"`
	IsFinal           bool        `json:"is_final"`
}

// Snapshot copies the State into a StateInfo.
func (s *State) Snapshot() StateInfo {
	return StateInfo{
		Hash:              s.Hash(),
		Transaction:       s.Transaction,
		Status:            s.Status,
		Epoch:             s.Epoch,
		RoundResponses:    append([]Status{}, s.RoundResponses...),
		ConfidenceValid:   s.ConfidenceValid,
		ConfidenceInvalid: s.ConfidenceInvalid,
		StreakBelief:      s.StreakBelief,
		StreakCount:       s.StreakCount,
		IsFinal:           s.IsFinal,
	}
}
