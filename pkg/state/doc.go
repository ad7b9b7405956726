// Package state holds the canonical field values shown to the operator.
//
// A Store is created together with its single Writer. The Writer belongs to
// the reconciler and is only used from the engine's event loop; everything
// else reads through the Store and learns about changes via Subscribe.
//
// Value notifications are emitted only when a field's canonical value
// actually changes, so listeners never do redundant work.
package state
