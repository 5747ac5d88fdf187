// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"

	"github.com/dagnet/lightd/util/daghash"
)

const (
	// SchnorrPubKeySize is the size in bytes of the serialized x-only
	// Schnorr public key that identifies a header's validator.
	SchnorrPubKeySize = 32

	// SchnorrSignatureSize is the size in bytes of a serialized Schnorr
	// signature.
	SchnorrSignatureSize = 64
)

// BlockHeaderHashPayload is the number of bytes a block header serializes to
// for hashing purposes: Version 4 bytes + PrevBlock hash + MerkleRoot hash +
// Height 8 bytes + Timestamp 8 bytes + Bits 4 bytes + Nonce 8 bytes +
// validator public key. The signature is intentionally excluded - it signs
// the resulting hash, so including it would be circular.
const BlockHeaderHashPayload = 4 + daghash.HashSize + daghash.HashSize + 8 + 8 + 4 + 8 +
	SchnorrPubKeySize

// BlockHeaderPayload is the number of bytes a full block header serializes
// to, signature included.
const BlockHeaderPayload = BlockHeaderHashPayload + SchnorrSignatureSize

// BlockHeader defines information about a block in the header DAG. Headers
// are immutable once constructed; their identity is BlockHash.
type BlockHeader struct {
	// Version of the block. This is not the same as the protocol version.
	Version int32

	// Hash of the previous block header in the DAG. The genesis header,
	// and only the genesis header, carries the zero hash here.
	PrevBlock daghash.Hash

	// Merkle tree reference to hash of all transactions referenced by the
	// block.
	HashMerkleRoot daghash.Hash

	// Height is the distance of the block from genesis.
	Height uint64

	// Time the block was created.
	Timestamp time.Time

	// Difficulty target for the block, in compact form.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint64

	// PubKey is the serialized Schnorr public key of the validator that
	// produced the block.
	PubKey [SchnorrPubKeySize]byte

	// Signature is the validator's Schnorr signature over BlockHash.
	Signature [SchnorrSignatureSize]byte
}

// BlockHash computes the block identifier hash for the given block header.
// The hash covers the canonical serialization of every field except the
// signature, which signs this hash.
func (h *BlockHeader) BlockHash() daghash.Hash {
	// Encode the header and double sha256 everything. Ignore the error
	// returns since the hash writer cannot fail.
	writer := daghash.NewDoubleHashWriter()
	_ = writeBlockHeaderHashPayload(writer, h)
	return writer.Finalize()
}

// IsGenesis returns whether this header is a genesis header - i.e. carries
// no previous block hash.
func (h *BlockHeader) IsGenesis() bool {
	return h.PrevBlock == daghash.ZeroHash
}

// Deserialize decodes a block header from r into the receiver using the
// canonical encoding: fixed field order, little endian integers, no implicit
// padding.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	return readBlockHeader(r, h)
}

// Serialize encodes a block header from the receiver to w using the
// canonical encoding. The same byte layout is used on the wire and for
// long-term storage.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeBlockHeader(w, h)
}

// SerializeSize returns the number of bytes it would take to serialize the
// block header.
func (h *BlockHeader) SerializeSize() int {
	return BlockHeaderPayload
}

// NewBlockHeader returns a new BlockHeader using the provided version,
// previous block hash, merkle root hash, height, difficulty bits, and nonce.
// The timestamp is rounded to the nearest millisecond since that is the
// precision the encoding retains, and the signature is left zeroed for the
// producer to fill in.
func NewBlockHeader(version int32, prevBlock *daghash.Hash, hashMerkleRoot *daghash.Hash,
	height uint64, bits uint32, nonce uint64) *BlockHeader {

	return &BlockHeader{
		Version:        version,
		PrevBlock:      *prevBlock,
		HashMerkleRoot: *hashMerkleRoot,
		Height:         height,
		Timestamp:      time.Unix(0, time.Now().UnixNano()/int64(time.Millisecond)*int64(time.Millisecond)),
		Bits:           bits,
		Nonce:          nonce,
	}
}

// readBlockHeader reads a block header from r.
func readBlockHeader(r io.Reader, h *BlockHeader) error {
	return readElements(r, &h.Version, &h.PrevBlock, &h.HashMerkleRoot,
		&h.Height, (*int64Time)(&h.Timestamp), &h.Bits, &h.Nonce,
		&h.PubKey, &h.Signature)
}

// writeBlockHeader writes a block header to w.
func writeBlockHeader(w io.Writer, h *BlockHeader) error {
	err := writeBlockHeaderHashPayload(w, h)
	if err != nil {
		return err
	}
	return writeElement(w, &h.Signature)
}

// writeBlockHeaderHashPayload writes the hashed portion of a block header to
// w - every field but the signature, in canonical order.
func writeBlockHeaderHashPayload(w io.Writer, h *BlockHeader) error {
	return writeElements(w, h.Version, &h.PrevBlock, &h.HashMerkleRoot,
		h.Height, int64Time(h.Timestamp), h.Bits, h.Nonce, &h.PubKey)
}
