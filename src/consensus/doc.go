// Package consensus implements the per-transaction state machine of the
// Snowball protocol.
//
// Every node keeps one State per transaction it has heard of. The State
// records the node's current belief (Valid or Invalid), the responses
// collected during the current epoch, and two levels of counters:
//
// Confidence counters count, per belief, every quorum ever observed for that
// belief. They never reset and only decide when the node flips its belief: a
// flip happens when the counter of the newly confirmed belief strictly exceeds
// the counter of the current one.
//
// The streak counter counts consecutive quorums that agree with the previous
// quorum. Any quorum for another belief resets it. When it exceeds Beta the
// epoch advances, and after M epochs the State is final: its belief, epoch and
// counters are frozen for good and no further queries are issued for it.
//
// A quorum is reached when at least ceil(Alpha*K) of the responses collected
// in the current epoch agree with the response just received.
package consensus
