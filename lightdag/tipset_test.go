package lightdag

import (
	"testing"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

func processAll(t *testing.T, dag *LightDAG, headers []*wire.BlockHeader) {
	t.Helper()
	for _, header := range headers {
		isOrphan, err := dag.ProcessHeader(header, BFNone)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
		if isOrphan {
			t.Fatalf("ProcessHeader(%s): unexpected orphan", header.BlockHash())
		}
	}
}

func TestTipSetTracksForks(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	// Two chains off genesis: a longer one and a shorter one.
	longFirst := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 1)
	longChain := append([]*wire.BlockHeader{longFirst},
		producer.buildChain(t, longFirst, 2)...)
	shortFirst := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 2)
	shortChain := append([]*wire.BlockHeader{shortFirst},
		producer.buildChain(t, shortFirst, 1)...)

	processAll(t, dag, longChain)
	processAll(t, dag, shortChain)

	// Both fork tips are tips; no interior header is.
	tipHashes := dag.TipHashes()
	if len(tipHashes) != 2 {
		t.Fatalf("tip count: got %d, want 2", len(tipHashes))
	}
	wantTips := map[daghash.Hash]bool{
		longChain[len(longChain)-1].BlockHash():   true,
		shortChain[len(shortChain)-1].BlockHash(): true,
	}
	for _, hash := range tipHashes {
		if !wantTips[*hash] {
			t.Errorf("unexpected tip %s", hash)
		}
	}

	// All headers carry equal bits, so the longer chain has more
	// cumulative work and must be canonical.
	wantSelected := longChain[len(longChain)-1].BlockHash()
	if !dag.SelectedTipHash().IsEqual(&wantSelected) {
		t.Errorf("selected tip: got %s, want %s", dag.SelectedTipHash(), wantSelected)
	}

	// Extending the short chain past the long one flips the canonical
	// tip.
	extension := producer.buildChain(t, shortChain[len(shortChain)-1], 2)
	processAll(t, dag, extension)
	wantSelected = extension[len(extension)-1].BlockHash()
	if !dag.SelectedTipHash().IsEqual(&wantSelected) {
		t.Errorf("selected tip after reorg: got %s, want %s",
			dag.SelectedTipHash(), wantSelected)
	}
}

func TestChooseCanonicalTipTieBreak(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	// Two siblings at the same height with identical bits have exactly
	// equal cumulative work. The numerically lowest hash must win,
	// regardless of arrival order.
	first := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 1)
	second := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 2)

	firstHash := first.BlockHash()
	secondHash := second.BlockHash()
	want := firstHash
	if daghash.Less(&secondHash, &firstHash) {
		want = secondHash
	}

	processAll(t, dag, []*wire.BlockHeader{first, second})
	if !dag.SelectedTipHash().IsEqual(&want) {
		t.Errorf("selected tip: got %s, want %s", dag.SelectedTipHash(), want)
	}

	// Same tip set delivered in the opposite order selects the same tip.
	reversed := newTestDAG(t, &dagconfig.SimnetParams)
	processAll(t, reversed, []*wire.BlockHeader{second, first})
	if !reversed.SelectedTipHash().IsEqual(&want) {
		t.Errorf("selected tip after reordering: got %s, want %s",
			reversed.SelectedTipHash(), want)
	}
}

func TestTipSetPrunesStaleTips(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	// A short fork left behind by more than the lookback window can never
	// be extended again, so it must drop out of the tip set.
	forkTip := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 1)
	processAll(t, dag, []*wire.BlockHeader{forkTip})

	mainFirst := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 2)
	mainChain := append([]*wire.BlockHeader{mainFirst},
		producer.buildChain(t, mainFirst, 19)...)
	processAll(t, dag, mainChain)

	tipHashes := dag.TipHashes()
	if len(tipHashes) != 1 {
		t.Fatalf("tip count: got %d, want 1", len(tipHashes))
	}
	wantTip := mainChain[len(mainChain)-1].BlockHash()
	if !tipHashes[0].IsEqual(&wantTip) {
		t.Errorf("remaining tip: got %s, want %s", tipHashes[0], wantTip)
	}
}
