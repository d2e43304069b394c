// Package kvmem is an in-memory implementation of kv.DB. It exists for
// unit tests and for the "testable against an in-memory mock" design note
// in the block repository's design notes — it holds no files on disk and
// is lost on process exit.
//
// Ordering and atomicity guarantees are real, not simulated: BeginRo takes
// a full snapshot of committed state, and BeginRw stages all writes in a
// private working copy that only becomes visible to future BeginRo/BeginRw
// callers when Commit swaps it in. A single mutex forces one write
// transaction at a time, matching the single-writer discipline spec.md §5
// requires of any backend.
package kvmem

import (
	"context"
	"sort"
	"sync"

	"github.com/chaincore/blockrepo/kv"
)

type table struct {
	keys []string // sorted ascending
	vals map[string][]byte
}

func newTable() *table {
	return &table{vals: make(map[string][]byte)}
}

func (t *table) clone() *table {
	nt := newTable()
	nt.keys = append([]string(nil), t.keys...)
	for k, v := range t.vals {
		nt.vals[k] = v
	}
	return nt
}

func (t *table) get(key string) ([]byte, bool) {
	v, ok := t.vals[key]
	return v, ok
}

func (t *table) put(key string, val []byte) {
	if _, exists := t.vals[key]; !exists {
		i := sort.SearchStrings(t.keys, key)
		t.keys = append(t.keys, "")
		copy(t.keys[i+1:], t.keys[i:])
		t.keys[i] = key
	}
	t.vals[key] = val
}

func (t *table) delete(key string) {
	if _, exists := t.vals[key]; !exists {
		return
	}
	delete(t.vals, key)
	i := sort.SearchStrings(t.keys, key)
	if i < len(t.keys) && t.keys[i] == key {
		t.keys = append(t.keys[:i], t.keys[i+1:]...)
	}
}

// DB is an in-memory kv.DB.
type DB struct {
	path string

	mu     sync.RWMutex // guards committed
	wmu    sync.Mutex   // single-writer gate
	tables map[string]*table
}

// New returns an empty in-memory DB. path is cosmetic only.
func New(path string) *DB {
	return &DB{path: path, tables: make(map[string]*table)}
}

var _ kv.DB = (*DB)(nil)

func (db *DB) Path() string { return db.path }

func (db *DB) Close() error { return nil }

func (db *DB) snapshot() map[string]*table {
	db.mu.RLock()
	defer db.mu.RUnlock()
	snap := make(map[string]*table, len(db.tables))
	for name, t := range db.tables {
		snap[name] = t.clone()
	}
	return snap
}

func (db *DB) BeginRo(ctx context.Context) (kv.Tx, error) {
	return &roTx{tables: db.snapshot()}, nil
}

func (db *DB) BeginRw(ctx context.Context) (kv.RwTx, error) {
	db.wmu.Lock()
	return &rwTx{db: db, tables: db.snapshot()}, nil
}

type roTx struct {
	tables map[string]*table
	lazy   bool
}

var _ kv.Tx = (*roTx)(nil)

func (tx *roTx) table(name string) *table {
	t, ok := tx.tables[name]
	if !ok {
		return newTable()
	}
	return t
}

func (tx *roTx) Select(tableName string, key []byte) ([]byte, bool, error) {
	v, ok := tx.table(tableName).get(string(key))
	if !ok {
		return nil, false, nil
	}
	if tx.lazy {
		return nil, true, nil
	}
	return v, true, nil
}

func (tx *roTx) Count(tableName string) (uint64, error) {
	return uint64(len(tx.table(tableName).keys)), nil
}

func (tx *roTx) ForEach(tableName string, walker func(k, v []byte) (bool, error)) error {
	t := tx.table(tableName)
	for _, k := range t.keys {
		v := t.vals[k]
		cont, err := walker([]byte(k), v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (tx *roTx) LazyValues(lazy bool) { tx.lazy = lazy }

func (tx *roTx) Rollback() {}

type rwTx struct {
	db     *DB
	tables map[string]*table
	lazy   bool
	closed bool
}

var _ kv.RwTx = (*rwTx)(nil)

func (tx *rwTx) table(name string) *table {
	t, ok := tx.tables[name]
	if !ok {
		t = newTable()
		tx.tables[name] = t
	}
	return t
}

func (tx *rwTx) Synchronize(tables ...string) {
	// MDBX-style backends serialize all writers already; declaring the
	// table set here has nothing further to acquire for the in-memory
	// backend, which is already exclusive via db.wmu.
}

func (tx *rwTx) Select(tableName string, key []byte) ([]byte, bool, error) {
	v, ok := tx.table(tableName).get(string(key))
	if !ok {
		return nil, false, nil
	}
	if tx.lazy {
		return nil, true, nil
	}
	return v, true, nil
}

func (tx *rwTx) Count(tableName string) (uint64, error) {
	return uint64(len(tx.table(tableName).keys)), nil
}

func (tx *rwTx) ForEach(tableName string, walker func(k, v []byte) (bool, error)) error {
	t := tx.table(tableName)
	for _, k := range t.keys {
		v := t.vals[k]
		cont, err := walker([]byte(k), v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (tx *rwTx) LazyValues(lazy bool) { tx.lazy = lazy }

func (tx *rwTx) Insert(tableName string, key, value []byte) error {
	cp := append([]byte(nil), value...)
	tx.table(tableName).put(string(key), cp)
	return nil
}

func (tx *rwTx) RemoveKey(tableName string, key []byte) error {
	tx.table(tableName).delete(string(key))
	return nil
}

func (tx *rwTx) RemoveAll(tableName string, recreate bool) error {
	tx.tables[tableName] = newTable()
	return nil
}

func (tx *rwTx) Commit() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	tx.db.mu.Lock()
	tx.db.tables = tx.tables
	tx.db.mu.Unlock()
	tx.db.wmu.Unlock()
	return nil
}

func (tx *rwTx) Rollback() {
	if tx.closed {
		return
	}
	tx.closed = true
	tx.db.wmu.Unlock()
}
