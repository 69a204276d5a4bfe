// Package session provides conversation persistence: ordered turns, network
// structure snapshots and free-form state, behind a store interface with an
// in-memory reference implementation.
//
// Add additional backends (Redis, Postgres, ...) in sub-packages without
// changing calling code; only the wiring layer decides which implementation
// to instantiate.
package session
