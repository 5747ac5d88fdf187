// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"fmt"
	"math/big"
	"time"

	"github.com/dagnet/lightd/util"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// headerNode represents a header within the DAG. Nodes hold the verification
// metadata the client needs for fork choice; the full header it was built
// from lives in the header cache and the database.
type headerNode struct {
	// hash is the hash of the header this node represents.
	hash *daghash.Hash

	// parent is the parent node of this node. It is nil for the genesis
	// node only.
	parent *headerNode

	// children are all the nodes that refer to this node as their parent.
	children headerSet

	// height is the number of edges from genesis to this node.
	height uint64

	// workSum is the total amount of work in the DAG up to and including
	// this node.
	workSum *big.Int

	// Some fields from the header to reconstruct verification context
	// without touching the cache.
	version    int32
	bits       uint32
	nonce      uint64
	timestamp  int64
	merkleRoot daghash.Hash
	pubKey     [wire.SchnorrPubKeySize]byte
}

// newHeaderNode returns a new header node for the given header. The work sum
// is calculated based on the parent. This function is NOT safe for concurrent
// access.
func newHeaderNode(header *wire.BlockHeader, parent *headerNode) *headerNode {
	hash := header.BlockHash()
	node := &headerNode{
		hash:       &hash,
		parent:     parent,
		children:   newSet(),
		height:     header.Height,
		workSum:    util.CalcWork(header.Bits),
		version:    header.Version,
		bits:       header.Bits,
		nonce:      header.Nonce,
		timestamp:  header.Timestamp.UnixNano() / int64(time.Millisecond),
		merkleRoot: header.HashMerkleRoot,
		pubKey:     header.PubKey,
	}
	if parent != nil {
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
		parent.children.add(node)
	}
	return node
}

// Header constructs a header from the node, minus the producer signature,
// which nodes do not retain. Callers that need the signature fetch the full
// header from the cache.
func (node *headerNode) Header() *wire.BlockHeader {
	prevBlock := daghash.ZeroHash
	if node.parent != nil {
		prevBlock = *node.parent.hash
	}
	return &wire.BlockHeader{
		Version:        node.version,
		PrevBlock:      prevBlock,
		HashMerkleRoot: node.merkleRoot,
		Height:         node.height,
		Timestamp:      time.Unix(0, node.timestamp*int64(time.Millisecond)),
		Bits:           node.bits,
		Nonce:          node.nonce,
		PubKey:         node.pubKey,
	}
}

// SelectedAncestor returns the ancestor at the provided height by walking
// parent pointers. It returns nil when the requested height is above the
// node's own height.
func (node *headerNode) SelectedAncestor(height uint64) *headerNode {
	if height > node.height {
		return nil
	}
	n := node
	for n != nil && n.height != height {
		n = n.parent
	}
	return n
}

// IsAncestorOf returns whether node is an ancestor of other, walking no more
// than maxGenerations parent links up from other.
func (node *headerNode) IsAncestorOf(other *headerNode, maxGenerations uint64) bool {
	n := other
	for generations := uint64(0); n != nil && generations <= maxGenerations; generations++ {
		if n == node {
			return true
		}
		n = n.parent
	}
	return false
}

func (node *headerNode) String() string {
	return fmt.Sprintf("%s (height %d)", node.hash, node.height)
}
