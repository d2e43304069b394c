// Package blockrepo implements the durable, transactional storage layer
// for a blockchain full node described by spec.md: it persists raw block
// payloads keyed by block hash, optionally maintains a transaction-hash →
// block-hash index, and tracks the repository's tip as an atomic unit of
// progress.
package blockrepo

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/chaincore/blockrepo/codec"
	"github.com/chaincore/blockrepo/kv"
)

// Repository is the public storage layer. Create one per process with
// New, call Initialize before any other method, and Dispose last.
//
// Repository is safe for concurrent use by many readers and one writer at
// a time, per spec.md §5; it does not itself serialize concurrent writers
// beyond what the backend's BeginRw already guarantees.
type Repository struct {
	backend kv.DB
	codec   codec.Codec
	net     *codec.Network
	hooks   Hooks

	genesisTxByHash map[codec.Hash]codec.Transaction

	mu       sync.RWMutex
	tip      codec.Tip
	txIndex  bool
	initDone bool
}

// New constructs a Repository over backend, using cdc to serialize blocks
// and tips and net to supply the genesis definition. hooks may be the zero
// value if no derived store needs to observe mutations. net must be
// non-nil: every lifecycle and lookup operation needs its genesis hash to
// decide what to bootstrap or special-case.
func New(backend kv.DB, cdc codec.Codec, net *codec.Network, hooks Hooks) (*Repository, error) {
	if net == nil {
		return nil, makeErr(ErrInvalidArgument, "net must not be nil", nil)
	}
	r := &Repository{
		backend: backend,
		codec:   cdc,
		net:     net,
		hooks:   hooks,
	}
	r.genesisTxByHash = make(map[codec.Hash]codec.Transaction)
	if net.GenesisBlock != nil {
		for _, tx := range net.GenesisBlock.Transactions() {
			r.genesisTxByHash[tx.Hash()] = tx
		}
	}
	return r, nil
}

// Initialize idempotently bootstraps the repository: if the tip key is
// absent it writes (genesis hash, 0); if the txindex flag is absent it
// writes false; if the schema-version marker is absent it writes this
// build's version. All writes (if any) happen in one transaction, which is
// committed only if at least one of them was needed. Must be called
// before any other Repository method.
func (r *Repository) Initialize(ctx context.Context) error {
	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin initialize transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	tx.Synchronize(tableMeta)
	tx.LazyValues(false)

	wrote := false

	existingTipRaw, found, err := tx.Select(tableMeta, metaKeyTip)
	if err != nil {
		return makeErr(ErrStorage, "read tip during initialize", err)
	}
	if !found {
		tip := codec.Tip{Hash: r.net.GenesisHash, Height: 0}
		raw, err := r.codec.SerializeTip(tip)
		if err != nil {
			return makeErr(ErrCorrupted, errors.Wrap(err, "serialize genesis tip bootstrap").Error(), err)
		}
		if err := tx.Insert(tableMeta, metaKeyTip, raw); err != nil {
			return makeErr(ErrStorage, "write genesis tip", err)
		}
		wrote = true
	} else if existingTip, err := r.codec.DeserializeTip(existingTipRaw); err == nil && existingTip.Height == 0 && existingTip.Hash != r.net.GenesisHash {
		return makeErr(ErrInvalidArgument, "stored genesis does not match configured network", errors.New("genesis mismatch"))
	}

	_, found, err = tx.Select(tableMeta, metaKeyTxIndex)
	if err != nil {
		return makeErr(ErrStorage, "read txindex flag during initialize", err)
	}
	if !found {
		if err := tx.Insert(tableMeta, metaKeyTxIndex, encodeTxIndexFlag(false)); err != nil {
			return makeErr(ErrStorage, "write default txindex flag", err)
		}
		wrote = true
	}

	versionRaw, found, err := tx.Select(tableMeta, metaKeySchema)
	if err != nil {
		return makeErr(ErrStorage, "read schema version during initialize", err)
	}
	if !found {
		if err := tx.Insert(tableMeta, metaKeySchema, encodeSchemaVersion(schemaVersion)); err != nil {
			return makeErr(ErrStorage, "write schema version", err)
		}
		wrote = true
	} else if decodeSchemaVersion(versionRaw) != schemaVersion {
		return makeErr(ErrSchemaMismatch, "stored schema version does not match this build", nil)
	}

	if wrote {
		if err := tx.Commit(); err != nil {
			return makeErr(ErrStorage, "commit initialize transaction", err)
		}
		committed = true
	} else {
		tx.Rollback()
		committed = true
	}

	if err := r.loadCachedState(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.initDone = true
	r.mu.Unlock()
	log.Debugf("repository initialized: tip=%s height=%d txindex=%v",
		r.tip.Hash, r.tip.Height, r.txIndex)
	return nil
}

// loadCachedState reads the tip and txindex flag into memory. Called once
// from Initialize; afterwards both are kept in lockstep with their
// persisted form by every mutating operation.
func (r *Repository) loadCachedState(ctx context.Context) error {
	tx, err := r.backend.BeginRo(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin read transaction", err)
	}
	defer tx.Rollback()

	tipRaw, found, err := tx.Select(tableMeta, metaKeyTip)
	if err != nil {
		return makeErr(ErrStorage, "read tip", err)
	}
	var tip codec.Tip
	if found {
		tip, err = r.codec.DeserializeTip(tipRaw)
		if err != nil {
			return makeErr(ErrCorrupted, "deserialize tip", err)
		}
	}

	flagRaw, found, err := tx.Select(tableMeta, metaKeyTxIndex)
	if err != nil {
		return makeErr(ErrStorage, "read txindex flag", err)
	}
	flag := found && decodeTxIndexFlag(flagRaw)

	r.mu.Lock()
	r.tip = tip
	r.txIndex = flag
	r.mu.Unlock()
	return nil
}

// Dispose releases the underlying KV handle. It must be the last call
// made on the Repository; invocations afterward are undefined, per
// spec.md §5.
func (r *Repository) Dispose() error {
	return r.backend.Close()
}

// TipHashAndHeight returns the cached, in-memory tip. It never touches the
// KV store.
func (r *Repository) TipHashAndHeight() codec.Tip {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tip
}

// TxIndex returns the cached, in-memory tx-indexing flag. It never
// touches the KV store.
func (r *Repository) TxIndex() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.txIndex
}

func (r *Repository) setCachedTip(tip codec.Tip) {
	r.mu.Lock()
	r.tip = tip
	r.mu.Unlock()
}

func (r *Repository) setCachedTxIndex(flag bool) {
	r.mu.Lock()
	r.txIndex = flag
	r.mu.Unlock()
}
