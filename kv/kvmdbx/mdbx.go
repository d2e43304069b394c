// Package kvmdbx adapts github.com/ledgerwatch/erigon-lib/kv's MDBX
// bindings to the kv.DB/Tx/RwTx contract the block repository is written
// against. This is the production backend; it is grounded on the same
// erigon-lib/kv transaction handling the teacher's database/ffldb package
// layers on top of for its own MDBX-backed index (see transaction.go's
// mdbRoTx/mdbRwTx fields and initMDBX_txs).
package kvmdbx

import (
	"context"

	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/ledgerwatch/erigon-lib/kv/mdbx"
	erigonlog "github.com/ledgerwatch/log/v3"

	repokv "github.com/chaincore/blockrepo/kv"
)

// Tables lists every table the block repository opens. Passed to
// WithTableCfg at construction time so MDBX creates the backing DBIs
// up front, the same way erigon-lib callers register ChaindataTables.
var Tables = []string{"Block", "Transaction", "Common"}

// DB wraps an erigon-lib/kv MDBX environment.
type DB struct {
	path string
	db   kv.RwDB
}

var _ repokv.DB = (*DB)(nil)

// Open creates or opens an MDBX environment rooted at path with the block
// repository's fixed table set.
func Open(path string) (*DB, error) {
	tableCfg := make(kv.TableCfg, len(Tables))
	for _, name := range Tables {
		tableCfg[name] = kv.TableCfgItem{}
	}

	db, err := mdbx.NewMDBX(erigonlog.New()).
		Path(path).
		WithTableCfg(func(kv.TableCfg) kv.TableCfg { return tableCfg }).
		Open()
	if err != nil {
		return nil, err
	}
	return &DB{path: path, db: db}, nil
}

func (d *DB) Path() string { return d.path }

func (d *DB) Close() error {
	d.db.Close()
	return nil
}

func (d *DB) BeginRo(ctx context.Context) (repokv.Tx, error) {
	tx, err := d.db.BeginRo(ctx)
	if err != nil {
		return nil, err
	}
	return &roTx{tx: tx}, nil
}

func (d *DB) BeginRw(ctx context.Context) (repokv.RwTx, error) {
	tx, err := d.db.BeginRw(ctx)
	if err != nil {
		return nil, err
	}
	return &rwTx{tx: tx}, nil
}

type stopScan struct{}

func (stopScan) Error() string { return "scan stopped" }

type roTx struct {
	tx   kv.Tx
	lazy bool
}

var _ repokv.Tx = (*roTx)(nil)

func (t *roTx) Select(table string, key []byte) ([]byte, bool, error) {
	if t.lazy {
		ok, err := t.tx.Has(table, key)
		return nil, ok, err
	}
	v, err := t.tx.GetOne(table, key)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (t *roTx) Count(table string) (uint64, error) {
	return t.tx.Count(table)
}

func (t *roTx) ForEach(table string, walker func(k, v []byte) (bool, error)) error {
	err := t.tx.ForEach(table, nil, func(k, v []byte) error {
		cont, werr := walker(k, v)
		if werr != nil {
			return werr
		}
		if !cont {
			return stopScan{}
		}
		return nil
	})
	if _, ok := err.(stopScan); ok {
		return nil
	}
	return err
}

func (t *roTx) LazyValues(lazy bool) { t.lazy = lazy }

func (t *roTx) Rollback() { t.tx.Rollback() }

type rwTx struct {
	tx   kv.RwTx
	lazy bool
}

var _ repokv.RwTx = (*rwTx)(nil)

func (t *rwTx) Select(table string, key []byte) ([]byte, bool, error) {
	if t.lazy {
		ok, err := t.tx.Has(table, key)
		return nil, ok, err
	}
	v, err := t.tx.GetOne(table, key)
	if err != nil {
		return nil, false, err
	}
	return v, v != nil, nil
}

func (t *rwTx) Count(table string) (uint64, error) {
	return t.tx.Count(table)
}

func (t *rwTx) ForEach(table string, walker func(k, v []byte) (bool, error)) error {
	err := t.tx.ForEach(table, nil, func(k, v []byte) error {
		cont, werr := walker(k, v)
		if werr != nil {
			return werr
		}
		if !cont {
			return stopScan{}
		}
		return nil
	})
	if _, ok := err.(stopScan); ok {
		return nil
	}
	return err
}

func (t *rwTx) LazyValues(lazy bool) { t.lazy = lazy }

// Synchronize is a no-op: MDBX permits a single write transaction at a
// time, so there is nothing finer-grained to lock per table.
func (t *rwTx) Synchronize(tables ...string) {}

func (t *rwTx) Insert(table string, key, value []byte) error {
	return t.tx.Put(table, key, value)
}

func (t *rwTx) RemoveKey(table string, key []byte) error {
	return t.tx.Delete(table, key)
}

func (t *rwTx) RemoveAll(table string, recreate bool) error {
	return t.tx.ClearBucket(table)
}

func (t *rwTx) Commit() error {
	return t.tx.Commit()
}

func (t *rwTx) Rollback() { t.tx.Rollback() }
