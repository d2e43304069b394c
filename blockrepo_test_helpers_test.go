package blockrepo

import (
	"encoding/binary"
	"fmt"

	"github.com/chaincore/blockrepo/codec"
)

// fakeTx is the minimal codec.Transaction used across the test suite.
type fakeTx struct {
	hash codec.Hash
}

func (t fakeTx) Hash() codec.Hash { return t.hash }

// fakeBlock is the minimal codec.Block used across the test suite.
type fakeBlock struct {
	hash codec.Hash
	txs  []codec.Transaction
}

func (b fakeBlock) Hash() codec.Hash                  { return b.hash }
func (b fakeBlock) Transactions() []codec.Transaction { return b.txs }

// fakeCodec serializes fakeBlock/Tip with a trivial fixed layout: good
// enough to round-trip in tests without pulling in a real wire format.
type fakeCodec struct{}

func (fakeCodec) SerializeBlock(b codec.Block) ([]byte, error) {
	fb, ok := b.(fakeBlock)
	if !ok {
		return nil, fmt.Errorf("fakeCodec: unexpected block type %T", b)
	}
	out := make([]byte, 0, 32+4+32*len(fb.txs))
	out = append(out, fb.hash[:]...)
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(fb.txs)))
	out = append(out, count...)
	for _, t := range fb.txs {
		h := t.Hash()
		out = append(out, h[:]...)
	}
	return out, nil
}

func (fakeCodec) DeserializeBlock(raw []byte) (codec.Block, error) {
	if len(raw) < 36 {
		return nil, fmt.Errorf("fakeCodec: short block row (%d bytes)", len(raw))
	}
	var fb fakeBlock
	copy(fb.hash[:], raw[:32])
	count := binary.BigEndian.Uint32(raw[32:36])
	off := 36
	for i := uint32(0); i < count; i++ {
		if off+32 > len(raw) {
			return nil, fmt.Errorf("fakeCodec: truncated tx list")
		}
		var h codec.Hash
		copy(h[:], raw[off:off+32])
		fb.txs = append(fb.txs, fakeTx{hash: h})
		off += 32
	}
	return fb, nil
}

func (fakeCodec) SerializeTip(t codec.Tip) ([]byte, error) {
	out := make([]byte, 40)
	copy(out[:32], t.Hash[:])
	binary.BigEndian.PutUint64(out[32:], t.Height)
	return out, nil
}

func (fakeCodec) DeserializeTip(raw []byte) (codec.Tip, error) {
	if len(raw) != 40 {
		return codec.Tip{}, fmt.Errorf("fakeCodec: malformed tip row (%d bytes)", len(raw))
	}
	var t codec.Tip
	copy(t.Hash[:], raw[:32])
	t.Height = binary.BigEndian.Uint64(raw[32:])
	return t, nil
}

// hashFromByte builds a deterministic, distinct codec.Hash for test
// fixtures: every byte set to b except the last, which is bumped by
// salt so callers can build many distinct hashes from one seed byte.
func hashFromByte(b byte, salt byte) codec.Hash {
	var h codec.Hash
	for i := range h {
		h[i] = b
	}
	h[len(h)-1] += salt
	return h
}

func newTestNetwork() *codec.Network {
	genesisHash := hashFromByte(0x00, 0)
	genesisTx := fakeTx{hash: hashFromByte(0xAA, 0)}
	return &codec.Network{
		GenesisHash:  genesisHash,
		GenesisBlock: fakeBlock{hash: genesisHash, txs: []codec.Transaction{genesisTx}},
	}
}
