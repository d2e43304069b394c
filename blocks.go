package blockrepo

import (
	"context"

	"github.com/chaincore/blockrepo/codec"
)

// PutBlocks atomically writes blocks and advances the tip to newTip,
// within a single KV transaction. The caller guarantees blocks is the
// batch whose application moves the repository to newTip; PutBlocks does
// not validate that the batch is contiguous or chain-valid (spec.md §1,
// out of scope).
//
// Duplicate hashes within blocks are de-duplicated (second occurrence
// ignored); blocks are sorted ascending by hash before being written, to
// minimize B-tree split costs on the backing store. A block whose row
// already exists is skipped, along with its transactions: per spec.md
// §4.1 step 4, only newly inserted blocks contribute tx-index rows.
func (r *Repository) PutBlocks(ctx context.Context, newTip codec.Tip, blocks []codec.Block) error {
	if len(blocks) == 0 {
		return r.advanceTipOnly(ctx, newTip)
	}

	deduped := dedupeBlocks(blocks)
	order := make([]int, len(deduped))
	for i := range order {
		order[i] = i
	}
	sortBlocksByHash(deduped, order)

	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin PutBlocks transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	txIndexEnabled := r.TxIndex()

	tables := []string{tableBlock, tableMeta}
	if txIndexEnabled {
		tables = append(tables, tableTx)
	}
	tx.Synchronize(tables...)
	tx.LazyValues(true)

	inserted := make([]codec.Block, 0, len(order))
	for _, i := range order {
		b := deduped[i]
		h := b.Hash()
		_, exists, err := tx.Select(tableBlock, h[:])
		if err != nil {
			return makeErr(ErrStorage, "probe existing block", err)
		}
		if exists {
			continue
		}
		raw, err := r.codec.SerializeBlock(b)
		if err != nil {
			return makeErr(ErrCorrupted, "serialize block", err)
		}
		if err := tx.Insert(tableBlock, h[:], raw); err != nil {
			return makeErr(ErrStorage, "insert block", err)
		}
		inserted = append(inserted, b)
	}

	if err := r.hooks.insertBlocks(tx, inserted); err != nil {
		return err
	}

	if txIndexEnabled && len(inserted) > 0 {
		pairs := collectTxPairs(inserted)
		sortTxPairs(pairs)
		for _, p := range pairs {
			if err := tx.Insert(tableTx, p.TxHash[:], p.BlockHash[:]); err != nil {
				return makeErr(ErrStorage, "insert tx index entry", err)
			}
		}
		if err := r.hooks.insertTransactions(tx, pairs); err != nil {
			return err
		}
	}

	if err := r.writeTip(tx, newTip); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return makeErr(ErrStorage, "commit PutBlocks transaction", err)
	}
	committed = true
	r.setCachedTip(newTip)
	return nil
}

// advanceTipOnly handles the degenerate PutBlocks(tip, nil) call: still a
// single transaction, still atomic, just with no block rows to write.
func (r *Repository) advanceTipOnly(ctx context.Context, newTip codec.Tip) error {
	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin PutBlocks transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	tx.Synchronize(tableMeta)
	if err := r.writeTip(tx, newTip); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return makeErr(ErrStorage, "commit PutBlocks transaction", err)
	}
	committed = true
	r.setCachedTip(newTip)
	return nil
}

func (r *Repository) writeTip(tx interface {
	Insert(table string, key, value []byte) error
}, tip codec.Tip) error {
	raw, err := r.codec.SerializeTip(tip)
	if err != nil {
		return makeErr(ErrCorrupted, "serialize tip", err)
	}
	if err := tx.Insert(tableMeta, metaKeyTip, raw); err != nil {
		return makeErr(ErrStorage, "write tip", err)
	}
	return nil
}

// GetBlock returns the block with the given hash, or found=false if no
// such block is stored. The network genesis hash is served from the
// in-memory genesis block without ever touching the KV store (invariant
// I4).
func (r *Repository) GetBlock(ctx context.Context, hash codec.Hash) (codec.Block, bool, error) {
	if hash == r.net.GenesisHash {
		return r.net.GenesisBlock, true, nil
	}

	tx, err := r.backend.BeginRo(ctx)
	if err != nil {
		return nil, false, makeErr(ErrStorage, "begin GetBlock transaction", err)
	}
	defer tx.Rollback()
	tx.LazyValues(false)

	raw, found, err := tx.Select(tableBlock, hash[:])
	if err != nil {
		return nil, false, makeErr(ErrStorage, "read block", err)
	}
	if !found {
		return nil, false, nil
	}
	b, err := r.codec.DeserializeBlock(raw)
	if err != nil {
		return nil, false, makeErr(ErrCorrupted, "deserialize block", err)
	}
	return b, true, nil
}

// GetBlocks returns the blocks for hashes, one slot per input hash in the
// same order as hashes (spec.md's batch-order-preservation property).
// Internally it sorts its KV accesses for locality, but that never leaks
// into the returned order. A missing hash produces a false in the
// returned bool slice, not an error.
func (r *Repository) GetBlocks(ctx context.Context, hashes []codec.Hash) ([]codec.Block, []bool, error) {
	blocks := make([]codec.Block, len(hashes))
	found := make([]bool, len(hashes))
	if len(hashes) == 0 {
		return blocks, found, nil
	}

	order := sortHashes(hashes)

	tx, err := r.backend.BeginRo(ctx)
	if err != nil {
		return nil, nil, makeErr(ErrStorage, "begin GetBlocks transaction", err)
	}
	defer tx.Rollback()
	tx.LazyValues(false)

	for _, i := range order {
		h := hashes[i]
		if h == r.net.GenesisHash {
			blocks[i] = r.net.GenesisBlock
			found[i] = true
			continue
		}
		raw, ok, err := tx.Select(tableBlock, h[:])
		if err != nil {
			return nil, nil, makeErr(ErrStorage, "read block", err)
		}
		if !ok {
			continue
		}
		b, err := r.codec.DeserializeBlock(raw)
		if err != nil {
			return nil, nil, makeErr(ErrCorrupted, "deserialize block", err)
		}
		blocks[i] = b
		found[i] = true
	}
	return blocks, found, nil
}

// Exist reports whether a block row is physically present in storage.
// Unlike GetBlock, it does not special-case the genesis hash: the source
// this repository is compatible with does not treat genesis specially in
// its existence check either, so Exist(genesisHash) is false unless a
// genesis row has actually been persisted. See spec.md §9's open question.
func (r *Repository) Exist(ctx context.Context, hash codec.Hash) (bool, error) {
	tx, err := r.backend.BeginRo(ctx)
	if err != nil {
		return false, makeErr(ErrStorage, "begin Exist transaction", err)
	}
	defer tx.Rollback()
	tx.LazyValues(true)

	_, found, err := tx.Select(tableBlock, hash[:])
	if err != nil {
		return false, makeErr(ErrStorage, "probe block", err)
	}
	return found, nil
}

// Delete removes the blocks identified by hashes and advances the tip to
// newTip, all within one transaction. DeleteBlocks does the same without
// touching the tip. Missing hashes are silently skipped; this is a
// logical delete only — the backing store's file size need not shrink.
func (r *Repository) Delete(ctx context.Context, newTip codec.Tip, hashes []codec.Hash) error {
	return r.deleteBlocks(ctx, hashes, &newTip)
}

// DeleteBlocks removes the blocks identified by hashes without touching
// the tip.
func (r *Repository) DeleteBlocks(ctx context.Context, hashes []codec.Hash) error {
	return r.deleteBlocks(ctx, hashes, nil)
}

func (r *Repository) deleteBlocks(ctx context.Context, hashes []codec.Hash, newTip *codec.Tip) error {
	if len(hashes) == 0 {
		if newTip != nil {
			return r.advanceTipOnly(ctx, *newTip)
		}
		return nil
	}

	tx, err := r.backend.BeginRw(ctx)
	if err != nil {
		return makeErr(ErrStorage, "begin delete transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	txIndexEnabled := r.TxIndex()
	tables := []string{tableBlock, tableMeta}
	if txIndexEnabled {
		tables = append(tables, tableTx)
	}
	tx.Synchronize(tables...)
	tx.LazyValues(false)

	removedBlocks := make([]codec.Hash, 0, len(hashes))
	removedTxHashes := make([]codec.Hash, 0)
	for _, h := range hashes {
		raw, found, err := tx.Select(tableBlock, h[:])
		if err != nil {
			return makeErr(ErrStorage, "read block for deletion", err)
		}
		if !found {
			continue
		}

		if txIndexEnabled {
			b, err := r.codec.DeserializeBlock(raw)
			if err != nil {
				return makeErr(ErrCorrupted, "deserialize block for deletion", err)
			}
			for _, t := range b.Transactions() {
				th := t.Hash()
				if err := tx.RemoveKey(tableTx, th[:]); err != nil {
					return makeErr(ErrStorage, "remove tx index entry", err)
				}
				removedTxHashes = append(removedTxHashes, th)
			}
		}

		if err := tx.RemoveKey(tableBlock, h[:]); err != nil {
			return makeErr(ErrStorage, "remove block", err)
		}
		removedBlocks = append(removedBlocks, h)
	}

	if err := r.hooks.deleteBlocks(tx, removedBlocks); err != nil {
		return err
	}
	if txIndexEnabled {
		if err := r.hooks.deleteTransactions(tx, removedTxHashes); err != nil {
			return err
		}
	}

	if newTip != nil {
		if err := r.writeTip(tx, *newTip); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return makeErr(ErrStorage, "commit delete transaction", err)
	}
	committed = true
	if newTip != nil {
		r.setCachedTip(*newTip)
	}
	return nil
}

func dedupeBlocks(blocks []codec.Block) []codec.Block {
	seen := make(map[codec.Hash]struct{}, len(blocks))
	out := make([]codec.Block, 0, len(blocks))
	for _, b := range blocks {
		h := b.Hash()
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, b)
	}
	return out
}

func sortBlocksByHash(blocks []codec.Block, order []int) {
	less := func(i, j int) bool {
		hi, hj := blocks[order[i]].Hash(), blocks[order[j]].Hash()
		return hashLess(hi, hj)
	}
	sortInts(order, less)
}

func collectTxPairs(blocks []codec.Block) []TxIndexPair {
	var pairs []TxIndexPair
	for _, b := range blocks {
		bh := b.Hash()
		for _, t := range b.Transactions() {
			pairs = append(pairs, TxIndexPair{TxHash: t.Hash(), BlockHash: bh})
		}
	}
	return pairs
}

func sortTxPairs(pairs []TxIndexPair) {
	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}
	sortInts(order, func(i, j int) bool {
		return hashLess(pairs[order[i]].TxHash, pairs[order[j]].TxHash)
	})
	reordered := make([]TxIndexPair, len(pairs))
	for newIdx, oldIdx := range order {
		reordered[newIdx] = pairs[oldIdx]
	}
	copy(pairs, reordered)
}
