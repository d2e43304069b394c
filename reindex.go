package blockrepo

import (
	"context"
)

// ReIndexOption configures a ReIndex call. Without any option, progress
// is reported only through the package logger.
type ReIndexOption func(*reindexConfig)

type reindexConfig struct {
	progress func(done, total int)
}

// WithProgress registers a callback invoked periodically during the
// TxIndex==true branch of ReIndex, every 1,000 blocks scanned plus once at
// completion.
func WithProgress(fn func(done, total int)) ReIndexOption {
	return func(c *reindexConfig) {
		c.progress = fn
	}
}

// ReIndex rebuilds the transaction index from scratch to match the
// current TxIndex() setting. When indexing is enabled it forward-scans
// every stored block and rewrites the tx index table entirely, overwriting
// whatever was there; when disabled it truncates the tx index table. Either
// way the tx index table changes in a single write transaction: the rebuild
// holds it open for the whole scan and commits nothing until every block
// has been indexed.
func (r *Repository) ReIndex(ctx context.Context, opts ...ReIndexOption) error {
	cfg := reindexConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	if !r.TxIndex() {
		return r.truncateTxIndex(ctx)
	}
	return r.rebuildTxIndex(ctx, cfg)
}

func (r *Repository) truncateTxIndex(ctx context.Context) error {
	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin reindex truncate transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	tx.Synchronize(tableTx)
	if err := tx.RemoveAll(tableTx, true); err != nil {
		return makeErr(ErrStorage, "truncate tx index", err)
	}
	if err := tx.Commit(); err != nil {
		return makeErr(ErrStorage, "commit reindex truncate transaction", err)
	}
	committed = true
	return nil
}

const reindexBatchLogInterval = 1000

func (r *Repository) rebuildTxIndex(ctx context.Context, cfg reindexConfig) error {
	total, err := r.countBlocks(ctx)
	if err != nil {
		return err
	}

	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin reindex transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	tx.Synchronize(tableBlock, tableTx)
	tx.LazyValues(false)

	if err := tx.RemoveAll(tableTx, true); err != nil {
		return makeErr(ErrStorage, "clear tx index before rebuild", err)
	}

	done := 0
	walkErr := tx.ForEach(tableBlock, func(k, v []byte) (bool, error) {
		b, err := r.codec.DeserializeBlock(v)
		if err != nil {
			return false, makeErr(ErrCorrupted, "deserialize block during reindex", err)
		}
		bh := b.Hash()
		for _, t := range b.Transactions() {
			th := t.Hash()
			if err := tx.Insert(tableTx, th[:], bh[:]); err != nil {
				return false, makeErr(ErrStorage, "write tx index entry during reindex", err)
			}
		}

		done++
		if done%reindexBatchLogInterval == 0 {
			if cfg.progress != nil {
				cfg.progress(done, total)
			}
			log.Infof("reindex: processed %d/%d blocks", done, total)
		}
		return true, nil
	})
	if walkErr != nil {
		return walkErr
	}

	if err := tx.Commit(); err != nil {
		return makeErr(ErrStorage, "commit reindex transaction", err)
	}
	committed = true

	if cfg.progress != nil {
		cfg.progress(done, total)
	}
	return nil
}

func (r *Repository) countBlocks(ctx context.Context) (int, error) {
	tx, err := r.backend.BeginRo(ctx)
	if err != nil {
		return 0, makeErr(ErrStorage, "begin block count transaction", err)
	}
	defer tx.Rollback()
	n, err := tx.Count(tableBlock)
	if err != nil {
		return 0, makeErr(ErrStorage, "count blocks", err)
	}
	return int(n), nil
}
