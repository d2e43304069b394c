// Package codec defines the boundary between the block repository and the
// rest of the node: domain objects (blocks, transactions), their canonical
// hashes, and the pure serialization used to store them. None of this
// package validates chain content — that is explicitly out of scope for
// the repository (see spec.md §1) and lives elsewhere in a full node.
package codec

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Hash is the repository's 32-byte canonical hash type, reused from
// btcsuite's chainhash rather than a hand-rolled array so block and
// transaction identity compares and formats the same way the rest of the
// btcd-family ecosystem expects.
type Hash = chainhash.Hash

// Tip identifies the repository's current head: the hash of the most
// recently applied block and its height.
type Tip struct {
	Hash   Hash
	Height uint64
}

// Transaction is the minimal shape the repository needs from a
// transaction: its own canonical hash.
type Transaction interface {
	Hash() Hash
}

// Block is the minimal shape the repository needs from a block: its own
// canonical hash and the transactions it carries, in on-chain order.
type Block interface {
	Hash() Hash
	Transactions() []Transaction
}

// Codec converts between domain objects and the opaque bytes the
// repository persists. It is supplied by the caller; the repository never
// inspects block or transaction content beyond what Block/Transaction
// expose.
type Codec interface {
	SerializeBlock(b Block) ([]byte, error)
	DeserializeBlock(raw []byte) (Block, error)

	SerializeTip(t Tip) ([]byte, error)
	DeserializeTip(raw []byte) (Tip, error)
}

// Network supplies the genesis definition. Genesis is never persisted
// (spec.md invariant I4): the repository builds an in-memory lookup from
// this at construction time and consults it before ever touching the KV
// store.
type Network struct {
	GenesisHash  Hash
	GenesisBlock Block
}
