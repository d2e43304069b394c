// Package kv defines the minimal ordered, transactional key-value engine
// contract the block repository is written against. Any embedded KV
// backend that can honour this contract (named tables, multi-table
// transactions, forward scans, point deletes) can back a Repository.
//
// This mirrors the abstraction line drawn in btcd's database package,
// generalized so the concrete backend is swappable: kvmdbx wraps MDBX
// through erigon-lib/kv for production use, kvmem is an in-memory
// implementation used by tests and as the "testable against a mock"
// backend called for in the design notes.
package kv

import "context"

// DB is a process-scoped handle on the underlying storage directory. It is
// exclusively owned by whatever Repository opens it.
type DB interface {
	// BeginRo opens a read-only transaction. Multiple read-only
	// transactions may be open concurrently with each other and with at
	// most one read-write transaction.
	BeginRo(ctx context.Context) (Tx, error)

	// BeginRw opens a read-write transaction. The backend serializes
	// concurrent write transactions (callers must not assume two BeginRw
	// calls can make progress at the same time).
	BeginRw(ctx context.Context) (RwTx, error)

	// Path returns the storage directory this DB was opened against.
	Path() string

	// Close releases the DB handle. No further BeginRo/BeginRw calls are
	// valid afterwards.
	Close() error
}

// Tx is a read-only view over one or more tables, valid until Rollback is
// called (committing a read-only transaction is a no-op error-free
// Rollback in every backend here, so Tx only exposes Rollback).
type Tx interface {
	// Select performs a point lookup. found is false when the key is
	// absent; that is not an error.
	Select(table string, key []byte) (value []byte, found bool, err error)

	// Count returns the number of rows in table.
	Count(table string) (uint64, error)

	// ForEach performs a forward scan over table in ascending key order,
	// invoking walker for every row. walker returns false to stop the
	// scan early without error.
	ForEach(table string, walker func(k, v []byte) (bool, error)) error

	// LazyValues toggles whether Select/ForEach fetch full values (false,
	// the default) or only report key existence with a nil value (true).
	// Lazy mode is a probe-only optimization; it never changes Select's
	// found result.
	LazyValues(lazy bool)

	// Rollback releases the transaction. It is always safe to call,
	// including after a read-only transaction was only ever read from.
	Rollback()
}

// RwTx is a Tx that may also mutate tables. All writes made through an
// RwTx become visible atomically at Commit, never before.
type RwTx interface {
	Tx

	// Synchronize declares which tables this transaction will mutate, so
	// the backend can take whatever locks its concurrency model needs at
	// transaction-begin time rather than at first write. Backends whose
	// engine already serializes all writers (e.g. MDBX, which allows only
	// one write transaction at a time) may treat this as a no-op; it
	// exists so backends with finer-grained locking have a declaration
	// point.
	Synchronize(tables ...string)

	// Insert writes key/value into table, overwriting any existing value.
	Insert(table string, key, value []byte) error

	// RemoveKey deletes key from table. Deleting an absent key is not an
	// error.
	RemoveKey(table string, key []byte) error

	// RemoveAll empties table. If recreate is true the table is left
	// usable for further writes in the same or later transactions;
	// backends that cannot drop-without-recreate may treat recreate as
	// always true.
	RemoveAll(table string, recreate bool) error

	// Commit makes all pending writes durable and visible. The
	// transaction is closed regardless of whether Commit succeeds.
	Commit() error
}
