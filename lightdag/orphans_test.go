package lightdag

import (
	"testing"

	"github.com/dagnet/lightd/dagconfig"
)

func TestOrphanPoolLimit(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	// Simnet caps the orphan pool at 16 headers. Build a chain, withhold
	// its first header, and feed the rest so every one of them orphans.
	limit := dag.Params.MaxOrphanHeaders
	chain := producer.buildChain(t, dag.Params.GenesisHeader, limit+2)
	withheld, orphans := chain[0], chain[1:]

	for _, header := range orphans {
		isOrphan, err := dag.ProcessHeader(header, BFIsSync)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
		if !isOrphan {
			t.Fatalf("ProcessHeader(%s): expected orphan", header.BlockHash())
		}
	}

	// The pool holds at most the limit. The newest orphan is the one
	// kept out, since evicting old orphans would break more chains.
	if len(dag.orphans) > limit {
		t.Fatalf("orphan pool size: got %d, want at most %d",
			len(dag.orphans), limit)
	}
	newestHash := orphans[len(orphans)-1].BlockHash()
	if dag.IsKnownOrphan(&newestHash) {
		t.Error("newest orphan unexpectedly kept when the pool was full")
	}

	// Delivering the withheld parent unorphans everything still pooled.
	_, err := dag.ProcessHeader(withheld, BFIsSync)
	if err != nil {
		t.Fatalf("ProcessHeader(withheld): %s", err)
	}
	for _, header := range orphans[:limit] {
		hash := header.BlockHash()
		if !dag.IsInDAG(&hash) {
			t.Errorf("header %s missing from the DAG after unorphaning", hash)
		}
	}
	if len(dag.orphans) != 0 {
		t.Errorf("orphan pool not drained: %d left", len(dag.orphans))
	}
}

func TestOrphanRootWalksKnownOrphans(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	chain := producer.buildChain(t, dag.Params.GenesisHeader, 4)
	for _, header := range chain[1:] {
		_, err := dag.ProcessHeader(header, BFIsSync)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
	}

	deepest := chain[len(chain)-1].BlockHash()
	want := chain[0].BlockHash()
	if root := dag.OrphanRoot(&deepest); !root.IsEqual(&want) {
		t.Errorf("OrphanRoot: got %s, want %s", root, want)
	}

	// A hash that is not an orphan is its own root.
	unknown := chain[0].BlockHash()
	if root := dag.OrphanRoot(&unknown); !root.IsEqual(&unknown) {
		t.Errorf("OrphanRoot of non-orphan: got %s, want %s", root, unknown)
	}
}
