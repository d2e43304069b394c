package blockrepo

import (
	"encoding/binary"
	"sort"

	"github.com/chaincore/blockrepo/codec"
)

// Table names are fixed so stores written by this implementation and the
// source implementation it is compatible with remain interchangeable (see
// spec.md §4.2). They are process-wide immutable constants, per design
// note §9 ("make them module-level immutable constants").
const (
	tableBlock = "Block"
	tableTx    = "Transaction"
	tableMeta  = "Common"
)

// Meta keys within the Common table.
var (
	metaKeyTip     = []byte{}
	metaKeyTxIndex = []byte{0x00}
	metaKeySchema  = []byte{0x01}
)

// schemaVersion is bumped whenever the on-disk meaning of a Common-table
// value changes in a way old readers cannot tolerate. It is ambient
// bookkeeping (SPEC_FULL.md §3) and plays no part in any operation's
// correctness.
const schemaVersion = 1

func encodeSchemaVersion(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeSchemaVersion(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func encodeTxIndexFlag(enabled bool) []byte {
	if enabled {
		return []byte{0x01}
	}
	return []byte{0x00}
}

func decodeTxIndexFlag(b []byte) bool {
	return len(b) > 0 && b[0] != 0x00
}

// sortHashes returns the indices of hashes ordered ascending by raw byte
// value (lexicographic), leaving hashes itself untouched. GetBlocks walks
// its KV lookups in this order and uses the indices to put each result
// back in the caller's requested slot (spec.md's "read results must be
// returned in the caller's requested order" rule).
func sortHashes(hashes []codec.Hash) []int {
	order := make([]int, len(hashes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return hashLess(hashes[order[i]], hashes[order[j]])
	})
	return order
}

func hashLess(a, b codec.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// sortInts sorts a slice of indices in place using less, the same
// stable-sort idiom sortHashes uses, shared here so blocks.go can order
// both block batches and tx-index pairs without duplicating sort.Slice
// boilerplate.
func sortInts(order []int, less func(i, j int) bool) {
	sort.SliceStable(order, less)
}
