// Package persistence stores operator-edited settings that must survive
// restarts.
//
// Settings are kept in a small JSON key-value file. The only key in use is
// ConnectionKey, holding the controller host, port and request timeout; the
// reconciliation engine consumes these values but never writes them.
package persistence
