package lightdag

import (
	"github.com/dagnet/lightd/util/daghash"
)

// applyAccepted folds a freshly accepted node into the tip set. The node's
// parent stops being a tip the moment it gains a child, the node itself
// becomes one, and tips that have fallen out of the lookback window are
// discarded since nothing can extend them anymore.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) applyAccepted(node *headerNode) {
	if node.parent != nil {
		dag.tips.remove(node.parent)
	}
	dag.tips.add(node)

	dag.pruneStaleTips()
	dag.selectedTip = dag.chooseCanonicalTip()
}

// pruneStaleTips removes tips that are deeper behind the highest tip than
// the lookback window allows. Any header extending such a tip would fail the
// stale parent check, so they can never regain the canonical position.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) pruneStaleTips() {
	for _, tip := range dag.tips {
		if tip != dag.genesis && !dag.isWithinLookback(tip) {
			log.Debugf("Pruning stale tip %s", tip)
			dag.tips.remove(tip)
		}
	}
}

// chooseCanonicalTip selects the tip with the most cumulative work. Ties are
// broken deterministically in favor of the numerically lowest hash, so every
// client looking at the same tip set selects the same canonical tip.
//
// This function MUST be called with the DAG state lock held (for reads).
func (dag *LightDAG) chooseCanonicalTip() *headerNode {
	var selected *headerNode
	for _, tip := range dag.tips {
		if selected == nil {
			selected = tip
			continue
		}
		switch tip.workSum.Cmp(selected.workSum) {
		case 1:
			selected = tip
		case 0:
			if daghash.Less(tip.hash, selected.hash) {
				selected = tip
			}
		}
	}
	return selected
}

// TipHashes returns the hashes of the current tips, sorted for determinism.
//
// This function is safe for concurrent access.
func (dag *LightDAG) TipHashes() []*daghash.Hash {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return dag.tips.hashes()
}

// SelectedTipHash returns the hash of the canonical tip.
//
// This function is safe for concurrent access.
func (dag *LightDAG) SelectedTipHash() *daghash.Hash {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return dag.selectedTip.hash
}

// SelectedTipHeight returns the height of the canonical tip.
//
// This function is safe for concurrent access.
func (dag *LightDAG) SelectedTipHeight() uint64 {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return dag.selectedTip.height
}
