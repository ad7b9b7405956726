// Package engine wires the poller, dispatcher, reconciler and field state
// store into one running unit.
//
// All reconciler events, whether they come from the poller, the dispatcher,
// grace timers or IngestSnapshot, pass through a single event-loop goroutine
// and are processed to completion one at a time, in arrival order. The store
// is written only from that goroutine.
//
// Typical usage:
//
//	eng := engine.New(client, engine.Config{Logger: logger})
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop()
//
//	cancel := eng.Subscribe(func(n state.Notification) { ... })
//	defer cancel()
//
//	outcome, err := eng.IssueWrite(ctx, field.BulbOn, true)
package engine
