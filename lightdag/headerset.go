package lightdag

import (
	"strings"

	"github.com/dagnet/lightd/util/daghash"
)

// headerSet implements a basic unsorted set of header nodes.
type headerSet map[daghash.Hash]*headerNode

// newSet creates a new, empty headerSet
func newSet() headerSet {
	return map[daghash.Hash]*headerNode{}
}

// setFromSlice converts a slice of header nodes into an unordered set
// represented as map
func setFromSlice(nodes ...*headerNode) headerSet {
	set := newSet()
	for _, node := range nodes {
		set.add(node)
	}
	return set
}

// add adds a header node to this headerSet
func (hs headerSet) add(node *headerNode) {
	hs[*node.hash] = node
}

// remove removes a header node from this headerSet, if exists
// Does nothing if this set does not contain the node
func (hs headerSet) remove(node *headerNode) {
	delete(hs, *node.hash)
}

// clone clones this header set
func (hs headerSet) clone() headerSet {
	clone := newSet()
	for _, node := range hs {
		clone.add(node)
	}
	return clone
}

// toSlice converts the set into a slice
func (hs headerSet) toSlice() []*headerNode {
	slice := make([]*headerNode, 0, len(hs))
	for _, node := range hs {
		slice = append(slice, node)
	}
	return slice
}

// hashes returns the hashes of the nodes in this set, sorted for determinism
func (hs headerSet) hashes() []*daghash.Hash {
	hashes := make([]*daghash.Hash, 0, len(hs))
	for _, node := range hs {
		hashes = append(hashes, node.hash)
	}
	daghash.Sort(hashes)
	return hashes
}

// contains returns true iff this set contains the given hash
func (hs headerSet) contains(hash *daghash.Hash) bool {
	_, ok := hs[*hash]
	return ok
}

func (hs headerSet) String() string {
	nodeStrs := make([]string, 0, len(hs))
	for _, hash := range hs.hashes() {
		nodeStrs = append(nodeStrs, hash.String())
	}
	return strings.Join(nodeStrs, ",")
}
