package lightdag

import (
	"path/filepath"
	"testing"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/dbaccess"
)

func TestDAGPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lightdag")
	databaseContext, err := dbaccess.New(dbPath)
	if err != nil {
		t.Fatalf("dbaccess.New: %s", err)
	}

	producer := newTestProducer(t)

	dag, err := New(&Config{
		DAGParams:       &dagconfig.SimnetParams,
		DatabaseContext: databaseContext,
		TimeSource:      NewTimeSource(),
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}

	chain := producer.buildChain(t, dag.Params.GenesisHeader, 5)
	processAll(t, dag, chain)
	wantState := dag.State()

	err = databaseContext.Close()
	if err != nil {
		t.Fatalf("Close: %s", err)
	}

	// Reopen the database and restore into a fresh instance.
	databaseContext, err = dbaccess.New(dbPath)
	if err != nil {
		t.Fatalf("dbaccess.New (reopen): %s", err)
	}
	defer databaseContext.Close()

	restored, err := New(&Config{
		DAGParams:       &dagconfig.SimnetParams,
		DatabaseContext: databaseContext,
		TimeSource:      NewTimeSource(),
	})
	if err != nil {
		t.Fatalf("New (restore): %s", err)
	}

	gotState := restored.State()
	if gotState.HeaderCount != wantState.HeaderCount {
		t.Errorf("header count: got %d, want %d",
			gotState.HeaderCount, wantState.HeaderCount)
	}
	if !gotState.SelectedTipHash.IsEqual(wantState.SelectedTipHash) {
		t.Errorf("selected tip: got %s, want %s",
			gotState.SelectedTipHash, wantState.SelectedTipHash)
	}
	if gotState.SelectedHeight != wantState.SelectedHeight {
		t.Errorf("selected height: got %d, want %d",
			gotState.SelectedHeight, wantState.SelectedHeight)
	}

	// Restored headers keep their producer signatures on disk.
	for _, header := range chain {
		hash := header.BlockHash()
		restoredHeader, err := restored.HeaderByHash(&hash)
		if err != nil {
			t.Fatalf("HeaderByHash(%s): %s", hash, err)
		}
		if restoredHeader.Signature != header.Signature {
			t.Errorf("header %s lost its signature across restarts", hash)
		}
	}
}
