// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/dagnet/lightd/util/daghash"
)

// TestBlockHeader tests the BlockHeader API.
func TestBlockHeader(t *testing.T) {
	nonce := uint64(0xba4d87a69924a93d)

	prevBlock := daghash.Hash{
		0x4b, 0xb0, 0x75, 0x35, 0xdf, 0xd5, 0x8e, 0x0b,
		0x3c, 0xd6, 0x4f, 0xd7, 0x15, 0x52, 0x80, 0x87,
		0x2a, 0x04, 0x71, 0xbc, 0xf8, 0x30, 0x95, 0x52,
		0x6a, 0xce, 0x0e, 0x38, 0xc6, 0x00, 0x00, 0x00,
	}
	merkleRoot := daghash.Hash{
		0x66, 0x57, 0xa9, 0x25, 0x2a, 0xac, 0xd5, 0xc0,
		0xb2, 0x94, 0x09, 0x96, 0xec, 0xff, 0x95, 0x22,
		0x28, 0xc3, 0x06, 0x7c, 0xc3, 0x8d, 0x48, 0x85,
		0xef, 0xb5, 0xa4, 0xac, 0x42, 0x47, 0xe9, 0xf3,
	}

	bits := uint32(0x1d00ffff)
	bh := NewBlockHeader(1, &prevBlock, &merkleRoot, 7, bits, nonce)

	// Ensure we get the same data back out.
	if !bh.PrevBlock.IsEqual(&prevBlock) {
		t.Errorf("NewBlockHeader: wrong prev block - got %v, want %v",
			spew.Sprint(&bh.PrevBlock), spew.Sprint(&prevBlock))
	}
	if !bh.HashMerkleRoot.IsEqual(&merkleRoot) {
		t.Errorf("NewBlockHeader: wrong merkle root - got %v, want %v",
			spew.Sprint(&bh.HashMerkleRoot), spew.Sprint(&merkleRoot))
	}
	if bh.Height != 7 {
		t.Errorf("NewBlockHeader: wrong height - got %v, want 7", bh.Height)
	}
	if bh.Bits != bits {
		t.Errorf("NewBlockHeader: wrong difficulty bits - got %v, want %v",
			bh.Bits, bits)
	}
	if bh.Nonce != nonce {
		t.Errorf("NewBlockHeader: wrong nonce - got %v, want %v",
			bh.Nonce, nonce)
	}
	if bh.IsGenesis() {
		t.Error("NewBlockHeader: header with a prev block reports genesis")
	}
}

// TestBlockHeaderSerialize tests that serializing a header and deserializing
// it back yields the original, and that the encoding length matches
// SerializeSize.
func TestBlockHeaderSerialize(t *testing.T) {
	header := &BlockHeader{
		Version:        1,
		PrevBlock:      daghash.Hash{0x01, 0x02, 0x03},
		HashMerkleRoot: daghash.Hash{0x0a, 0x0b, 0x0c},
		Height:         42,
		Timestamp:      time.Unix(0x5fd23400, 741*1e6),
		Bits:           0x207fffff,
		Nonce:          0xdeadbeef,
	}
	header.PubKey[0] = 0x11
	header.Signature[0] = 0x22
	header.Signature[63] = 0x33

	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != header.SerializeSize() {
		t.Fatalf("Serialize: wrote %d bytes, SerializeSize says %d",
			buf.Len(), header.SerializeSize())
	}
	if buf.Len() != BlockHeaderPayload {
		t.Fatalf("Serialize: wrote %d bytes, want %d", buf.Len(),
			BlockHeaderPayload)
	}

	var decoded BlockHeader
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, header) {
		t.Errorf("Deserialize: headers differ - got %v, want %v",
			spew.Sdump(&decoded), spew.Sdump(header))
	}
}

// TestBlockHeaderHashExcludesSignature ensures mutating the signature does
// not change the block hash, while mutating any hashed field does.
func TestBlockHeaderHashExcludesSignature(t *testing.T) {
	header := &BlockHeader{
		Version:   1,
		Height:    1,
		Timestamp: time.Unix(0x5FD23400, 0),
		Bits:      0x207fffff,
	}
	baseHash := header.BlockHash()

	header.Signature[0] ^= 0xff
	if got := header.BlockHash(); got != baseHash {
		t.Errorf("BlockHash covers the signature: got %s, want %s",
			got, baseHash)
	}

	header.Nonce++
	if got := header.BlockHash(); got == baseHash {
		t.Error("BlockHash ignored a nonce change")
	}

	// The producer pubkey is part of the hashed payload, so it has to be
	// in place before a header is solved.
	baseHash = header.BlockHash()
	header.PubKey[0] ^= 0xff
	if got := header.BlockHash(); got == baseHash {
		t.Error("BlockHash ignored a pubkey change")
	}
}

// TestBlockHeaderDeserializeErrors ensures short reads surface errors rather
// than partially populated headers.
func TestBlockHeaderDeserializeErrors(t *testing.T) {
	header := &BlockHeader{Version: 1, Timestamp: time.Unix(0, 0)}
	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	serialized := buf.Bytes()
	for _, cut := range []int{0, 1, 4, BlockHeaderPayload - 1} {
		var decoded BlockHeader
		err := decoded.Deserialize(bytes.NewReader(serialized[:cut]))
		if err == nil {
			t.Errorf("Deserialize of %d bytes did not error", cut)
		}
	}
}
