// Package simdb defines the core types, error codes, logging and configuration
// helpers shared across the simulator: the multiversion store, site manager,
// replication router, concurrency control and transaction manager all live in
// subpackages (store, site, router, concurrency, txn). The store package
// uses this package's Error type and txn uses its UUID type.
//
// This package is a foundation the subpackages build on; it is not meant to
// model any store semantics itself.
package simdb

// Clock model
//
// The simulator uses a single monotone logical clock, not wall time. begin,
// commit, fail and recover each draw a timestamp from the clock and then
// advance it; reads and writes do not advance it. Every version timestamp
// and uptime-interval endpoint is expressed on this clock, which keeps the
// whole run byte-for-byte reproducible across machines.
