package consensus

import (
	"math/rand"
	"reflect"
	"testing"
)

func feed(s *State, p Params, status Status, n int) []Outcome {
	outs := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		outs = append(outs, s.RecordResponse(status, p))
	}
	return outs
}

func TestNewState(t *testing.T) {
	tx := NewTransaction(1, 3)
	s := NewState(tx, Invalid)

	if s.Epoch != 0 || s.IsFinal || s.ConfidenceValid != 0 || s.ConfidenceInvalid != 0 || s.StreakCount != 0 {
		t.Fatalf("new state should be pristine: %+v", s)
	}
	if s.Status != Invalid || s.StreakBelief != Invalid {
		t.Fatalf("new state should adopt the initial belief")
	}
	if s.Hash() != tx.Hash() {
		t.Fatalf("state hash should be the transaction hash")
	}
}

func TestUnanimousResponses(t *testing.T) {
	p := DefaultParams()
	s := NewState(NewTransaction(1, 3), Valid)

	outs := feed(s, p, Valid, 15)

	for i, out := range outs[:14] {
		if out.Final {
			t.Fatalf("response %d should not be final", i+1)
		}
		if !out.Requery() {
			t.Fatalf("response %d should trigger a requery", i+1)
		}
		if out.Flipped {
			t.Fatalf("response %d should not flip a unanimous belief", i+1)
		}
	}

	last := outs[14]
	if !last.Final || !last.EpochAdvanced || last.Requery() {
		t.Fatalf("15th response should finalize: %+v", last)
	}

	if !s.IsFinal || s.Epoch != uint32(p.M) || s.Status != Valid {
		t.Fatalf("unexpected final state: %+v", s)
	}
	// Four quorums in the first epoch, then one per epoch since the streak
	// carries over epoch boundaries.
	if s.ConfidenceValid != 7 || s.ConfidenceInvalid != 0 {
		t.Fatalf("confidence should be 7/0, got %d/%d", s.ConfidenceValid, s.ConfidenceInvalid)
	}
	if len(s.RoundResponses) != 0 {
		t.Fatalf("round responses should be cleared on the final epoch advance")
	}
}

func TestEpochAdvanceClearsResponses(t *testing.T) {
	p := DefaultParams()
	s := NewState(NewTransaction(1, 3), Valid)

	outs := feed(s, p, Valid, 6)

	for i, out := range outs[:2] {
		if out.Quorum {
			t.Fatalf("response %d should be below quorum", i+1)
		}
	}
	for i, out := range outs[2:5] {
		if !out.Quorum || out.EpochAdvanced {
			t.Fatalf("response %d should be a quorum without epoch advance: %+v", i+3, out)
		}
	}
	if !outs[5].EpochAdvanced {
		t.Fatalf("6th response should advance the epoch")
	}
	if s.Epoch != 1 || len(s.RoundResponses) != 0 || s.StreakCount != 4 {
		t.Fatalf("unexpected state after first epoch: %+v", s)
	}
}

func TestFlipOnQuorum(t *testing.T) {
	p := DefaultParams()
	s := NewState(NewTransaction(1, 3), Valid)

	outs := feed(s, p, Invalid, 3)

	if outs[0].Quorum || outs[1].Quorum {
		t.Fatalf("first two responses should be below quorum")
	}
	if !outs[2].Quorum || !outs[2].Flipped {
		t.Fatalf("third response should flip: %+v", outs[2])
	}
	if s.Status != Invalid {
		t.Fatalf("status should be Invalid")
	}
	if s.StreakBelief != Invalid || s.StreakCount != 0 {
		t.Fatalf("streak should reset on a new belief: %s/%d", s.StreakBelief, s.StreakCount)
	}
}

func TestQuorumGate(t *testing.T) {
	p := DefaultParams()
	s := NewState(NewTransaction(1, 3), Valid)

	// Two quorums for Valid.
	feed(s, p, Valid, 4)
	if s.ConfidenceValid != 2 || s.StreakCount != 2 {
		t.Fatalf("expected 2 Valid quorums, got confidence %d streak %d", s.ConfidenceValid, s.StreakCount)
	}

	outs := feed(s, p, Invalid, 5)

	// Quorums for Invalid at the 3rd, 4th and 5th response.
	if !outs[2].Quorum || outs[2].Flipped {
		t.Fatalf("first Invalid quorum should not flip (1 vs 2): %+v", outs[2])
	}
	if s.StreakBelief != Invalid {
		t.Fatalf("streak should follow the latest quorum")
	}
	if !outs[3].Quorum || outs[3].Flipped {
		t.Fatalf("second Invalid quorum should not flip (2 vs 2): %+v", outs[3])
	}
	if !outs[4].Quorum || !outs[4].Flipped {
		t.Fatalf("third Invalid quorum should flip (3 vs 2): %+v", outs[4])
	}
	if s.Status != Invalid {
		t.Fatalf("status should be Invalid")
	}
	if s.Confidence(Invalid) <= s.Confidence(Valid) {
		t.Fatalf("a flip requires strictly more confidence")
	}
}

func TestStreakReset(t *testing.T) {
	p := Params{K: 4, Alpha: 0.5, Beta: 10, M: 4}
	s := NewState(NewTransaction(1, 3), Valid)

	feed(s, p, Valid, 4) // quorums at 2, 3, 4
	if s.StreakCount != 3 {
		t.Fatalf("streak should be 3, got %d", s.StreakCount)
	}

	feed(s, p, Invalid, 2) // quorum at 2
	if s.StreakBelief != Invalid || s.StreakCount != 0 {
		t.Fatalf("streak should reset to Invalid/0, got %s/%d", s.StreakBelief, s.StreakCount)
	}

	s.RecordResponse(Valid, p)
	if s.StreakBelief != Valid || s.StreakCount != 0 {
		t.Fatalf("streak should reset to Valid/0, got %s/%d", s.StreakBelief, s.StreakCount)
	}
}

func TestFreezeOnFinality(t *testing.T) {
	p := Params{K: 4, Alpha: 0.75, Beta: 0, M: 1}
	s := NewState(NewTransaction(1, 9), Invalid)

	outs := feed(s, p, Invalid, 3)
	if !outs[2].Final {
		t.Fatalf("third response should finalize with beta=0 and m=1: %+v", outs[2])
	}

	before := s.Snapshot()

	for _, status := range []Status{Valid, Valid, Valid, Valid, Invalid} {
		out := s.RecordResponse(status, p)
		if !out.Ignored || out.Requery() || out.Quorum || out.Final {
			t.Fatalf("responses after finality should be ignored: %+v", out)
		}
	}

	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("final state changed:\n%+v\n%+v", before, s.Snapshot())
	}
}

func TestMonotonicCounters(t *testing.T) {
	p := DefaultParams()
	rng := rand.New(rand.NewSource(3))

	for run := 0; run < 50; run++ {
		s := NewState(NewTransaction(uint64(run), 3), Status(rng.Intn(2)))
		finalCount := 0
		prev := s.Snapshot()

		for i := 0; i < 500; i++ {
			status := Valid
			// Biased towards Valid so that most runs terminate.
			if rng.Float64() < 0.2 {
				status = Invalid
			}

			out := s.RecordResponse(status, p)
			if out.Final {
				finalCount++
			}
			if out.Flipped && s.Confidence(s.Status) <= s.Confidence(s.Status.Flip()) {
				t.Fatalf("flip without strictly greater confidence: %+v", s)
			}
			if out.EpochAdvanced && len(s.RoundResponses) != 0 {
				t.Fatalf("epoch advanced without clearing responses")
			}

			cur := s.Snapshot()
			if cur.Epoch < prev.Epoch {
				t.Fatalf("epoch went from %d to %d", prev.Epoch, cur.Epoch)
			}
			if cur.ConfidenceValid < prev.ConfidenceValid || cur.ConfidenceInvalid < prev.ConfidenceInvalid {
				t.Fatalf("confidence decreased")
			}
			if prev.IsFinal && !cur.IsFinal {
				t.Fatalf("finality was reset")
			}
			if prev.IsFinal && !reflect.DeepEqual(prev, cur) {
				t.Fatalf("final state changed")
			}
			prev = cur
		}

		if finalCount > 1 {
			t.Fatalf("run %d reached finality %d times", run, finalCount)
		}
	}
}
