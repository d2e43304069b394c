package blockrepo

import (
	"github.com/chaincore/blockrepo/codec"
	"github.com/chaincore/blockrepo/kv"
)

// Hooks lets a derived store (e.g. a coin-view augmentation) observe the
// repository's mutations inside the same KV transaction that performs
// them, without subclassing the Repository. This is the capability
// interface design note §9 calls for in place of the source's virtual
// OnInsertBlocks/OnInsertTransactions/OnDeleteBlocks/OnDeleteTransactions
// methods.
//
// Every hook runs after the repository has staged the writes the hook
// observes but before the tip is written and the transaction commits; a
// returned error aborts the whole transaction, including the repository's
// own writes. A nil field is a no-op.
type Hooks struct {
	// OnInsertBlocks is called once per PutBlocks call with the blocks
	// that were newly inserted (duplicates and already-present blocks are
	// excluded), in ascending key order.
	OnInsertBlocks func(tx kv.RwTx, blocks []codec.Block) error

	// OnInsertTransactions is called once per PutBlocks call with every
	// (txHash, blockHash) pair written to the tx index, in ascending
	// tx-hash order. Only invoked when tx-indexing is enabled.
	OnInsertTransactions func(tx kv.RwTx, pairs []TxIndexPair) error

	// OnDeleteBlocks is called once per Delete/DeleteBlocks call with the
	// block hashes actually removed (hashes that were already absent are
	// excluded).
	OnDeleteBlocks func(tx kv.RwTx, hashes []codec.Hash) error

	// OnDeleteTransactions is called once per Delete/DeleteBlocks call
	// with the transaction hashes removed from the tx index. Only invoked
	// when tx-indexing is enabled.
	OnDeleteTransactions func(tx kv.RwTx, txHashes []codec.Hash) error
}

// TxIndexPair is one (transaction hash, containing block hash) entry.
type TxIndexPair struct {
	TxHash    codec.Hash
	BlockHash codec.Hash
}

func (h Hooks) insertBlocks(tx kv.RwTx, blocks []codec.Block) error {
	if h.OnInsertBlocks == nil || len(blocks) == 0 {
		return nil
	}
	return h.OnInsertBlocks(tx, blocks)
}

func (h Hooks) insertTransactions(tx kv.RwTx, pairs []TxIndexPair) error {
	if h.OnInsertTransactions == nil || len(pairs) == 0 {
		return nil
	}
	return h.OnInsertTransactions(tx, pairs)
}

func (h Hooks) deleteBlocks(tx kv.RwTx, hashes []codec.Hash) error {
	if h.OnDeleteBlocks == nil || len(hashes) == 0 {
		return nil
	}
	return h.OnDeleteBlocks(tx, hashes)
}

func (h Hooks) deleteTransactions(tx kv.RwTx, txHashes []codec.Hash) error {
	if h.OnDeleteTransactions == nil || len(txHashes) == 0 {
		return nil
	}
	return h.OnDeleteTransactions(tx, txHashes)
}
