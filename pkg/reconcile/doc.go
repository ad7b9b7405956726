// Package reconcile implements the optimistic-update reconciler.
//
// The controller offers no push channel and no sequence numbers, so the
// displayed state is reconstructed from two independent event sources:
// periodic snapshots from the poller and write outcomes from the command
// dispatcher. The Reconciler merges them per field:
//
//   - While a write is InFlight or Confirmed and its grace window has not
//     elapsed, the write's target is the canonical value and conflicting
//     snapshot values are ignored.
//   - A snapshot that already reports the target clears the write at once
//     (early-confirm).
//   - A failed write is cleared in the same step and the field reverts to
//     the last snapshot value.
//   - Otherwise the latest snapshot value is canonical.
//
// Write state machine per field:
//
//	None --issue--> InFlight --ack--> Confirmed --(grace elapsed | early-confirm)--> None
//	                   |                  |
//	                   +------fail--------+--> Failed --immediate--> None (reverted)
//	InFlight --(grace elapsed | early-confirm)--> None
//	any --issue--> InFlight (previous write superseded, its timer cancelled)
//
// The grace window starts at issue and restarts at acknowledgment, so a write
// whose outcome never arrives still expires. An outcome arriving after that
// is stale.
//
// The grace window is a heuristic. A very slow stale poll can still race past
// it; there is no way to detect that without device-side sequencing.
//
// A Reconciler is not safe for concurrent Handle calls. The engine package
// serializes all events through a single goroutine.
package reconcile
