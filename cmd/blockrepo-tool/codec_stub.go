package main

import (
	"encoding/binary"
	"fmt"

	"github.com/chaincore/blockrepo/codec"
)

// rawTipCodec implements codec.Codec well enough to drive the maintenance
// operations this tool exposes (tip/flag inspection, tx-index flag writes,
// tx-index truncation). It deliberately does not know how to deserialize a
// chain's actual block payloads: a standalone ops tool has no way to link
// against whatever block format a given node build uses. DeserializeBlock
// therefore errors, which is safe because the only caller that needs it
// (rebuilding a populated tx index from scratch) is refused up front in
// main.go when the stored tx-index flag is on.
type rawTipCodec struct{}

func (rawTipCodec) SerializeBlock(codec.Block) ([]byte, error) {
	return nil, fmt.Errorf("blockrepo-tool does not embed a chain-specific block codec")
}

func (rawTipCodec) DeserializeBlock([]byte) (codec.Block, error) {
	return nil, fmt.Errorf("blockrepo-tool does not embed a chain-specific block codec; link this tool against the node binary to reindex")
}

func (rawTipCodec) SerializeTip(t codec.Tip) ([]byte, error) {
	b := make([]byte, 40)
	copy(b[:32], t.Hash[:])
	binary.BigEndian.PutUint64(b[32:], t.Height)
	return b, nil
}

func (rawTipCodec) DeserializeTip(raw []byte) (codec.Tip, error) {
	if len(raw) != 40 {
		return codec.Tip{}, fmt.Errorf("malformed tip row: want 40 bytes, got %d", len(raw))
	}
	var t codec.Tip
	copy(t.Hash[:], raw[:32])
	t.Height = binary.BigEndian.Uint64(raw[32:])
	return t, nil
}
