// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"testing"
	"time"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/util"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// unsolveHeader increments the nonce until the header hash does NOT satisfy
// its target, producing a deterministic proof of work failure.
func unsolveHeader(t *testing.T, header *wire.BlockHeader) {
	target := util.CompactToBig(header.Bits)
	for i := uint64(0); i < 1<<32; i++ {
		header.Nonce = i
		hash := header.BlockHash()
		if daghash.HashToBig(&hash).Cmp(target) > 0 {
			return
		}
	}
	t.Fatal("unsolveHeader: no failing nonce found")
}

func TestProcessHeaderChain(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	chain := producer.buildChain(t, dag.Params.GenesisHeader, 5)
	for _, header := range chain {
		isOrphan, err := dag.ProcessHeader(header, BFNone)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
		if isOrphan {
			t.Fatalf("ProcessHeader(%s): unexpected orphan", header.BlockHash())
		}
	}

	if dag.SelectedTipHeight() != 5 {
		t.Errorf("selected tip height: got %d, want 5", dag.SelectedTipHeight())
	}
	wantTip := chain[len(chain)-1].BlockHash()
	if !dag.SelectedTipHash().IsEqual(&wantTip) {
		t.Errorf("selected tip: got %s, want %s", dag.SelectedTipHash(), wantTip)
	}
	if dag.HeaderCount() != 6 {
		t.Errorf("header count: got %d, want 6", dag.HeaderCount())
	}
}

func TestProcessHeaderDuplicate(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	_, err := dag.ProcessHeader(header, BFNone)
	if err != nil {
		t.Fatalf("ProcessHeader: %s", err)
	}

	stateBefore := dag.State()

	_, err = dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrDuplicateHeader, "")); err != nil {
		t.Fatal(err)
	}

	// A rejected duplicate must leave the DAG state untouched.
	stateAfter := dag.State()
	if stateAfter.HeaderCount != stateBefore.HeaderCount ||
		!stateAfter.SelectedTipHash.IsEqual(stateBefore.SelectedTipHash) {
		t.Error("duplicate processing changed the DAG state")
	}
}

func TestProcessHeaderOrphan(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	chain := producer.buildChain(t, dag.Params.GenesisHeader, 3)
	parent, middle, child := chain[0], chain[1], chain[2]

	// Deliver out of order: the two descendants must enter the orphan
	// pool.
	for _, header := range []*wire.BlockHeader{child, middle} {
		isOrphan, err := dag.ProcessHeader(header, BFNone)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
		if !isOrphan {
			t.Fatalf("ProcessHeader(%s): expected orphan", header.BlockHash())
		}
	}

	middleHash := middle.BlockHash()
	childHash := child.BlockHash()
	if !dag.IsKnownOrphan(&middleHash) || !dag.IsKnownOrphan(&childHash) {
		t.Fatal("headers missing from the orphan pool")
	}

	// The orphan root is the hash the syncer should request next.
	parentHash := parent.BlockHash()
	if root := dag.OrphanRoot(&childHash); !root.IsEqual(&parentHash) {
		t.Errorf("OrphanRoot: got %s, want %s", root, parentHash)
	}

	// Delivering the missing parent must pull the whole orphan chain in.
	isOrphan, err := dag.ProcessHeader(parent, BFNone)
	if err != nil {
		t.Fatalf("ProcessHeader(%s): %s", parentHash, err)
	}
	if isOrphan {
		t.Fatal("parent unexpectedly an orphan")
	}

	for _, header := range chain {
		hash := header.BlockHash()
		if !dag.IsInDAG(&hash) {
			t.Errorf("header %s missing from the DAG after unorphaning", hash)
		}
	}
	if dag.IsKnownOrphan(&middleHash) || dag.IsKnownOrphan(&childHash) {
		t.Error("orphan pool still holds accepted headers")
	}
	if dag.SelectedTipHeight() != 3 {
		t.Errorf("selected tip height: got %d, want 3", dag.SelectedTipHeight())
	}
}

func TestProcessHeaderDisallowOrphans(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	chain := producer.buildChain(t, dag.Params.GenesisHeader, 2)
	_, err := dag.ProcessHeader(chain[1], BFDisallowOrphans)
	if err := checkRuleError(err, ruleError(ErrOrphanNotAllowed, "")); err != nil {
		t.Fatal(err)
	}
}

func TestProcessHeaderInvalidPoW(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	unsolveHeader(t, header)
	producer.signHeader(t, header)

	_, err := dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrHighHash, "")); err != nil {
		t.Fatal(err)
	}

	// The same header passes when the proof of work check is disabled.
	isOrphan, err := dag.ProcessHeader(header, BFNoPoWCheck)
	if err != nil {
		t.Fatalf("ProcessHeader with BFNoPoWCheck: %s", err)
	}
	if isOrphan {
		t.Fatal("unexpected orphan")
	}
}

func TestProcessHeaderInvalidSignature(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	header.Signature[0] ^= 0xff

	_, err := dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrInvalidSignature, "")); err != nil {
		t.Fatal(err)
	}
}

func TestProcessHeaderInvalidHeight(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	header.Height += 1
	solveHeader(t, header)
	producer.signHeader(t, header)

	_, err := dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrInvalidHeight, "")); err != nil {
		t.Fatal(err)
	}
}

func TestProcessHeaderTimeTooOld(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	header.Timestamp = dag.Params.GenesisHeader.Timestamp
	solveHeader(t, header)
	producer.signHeader(t, header)

	_, err := dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrTimeTooOld, "")); err != nil {
		t.Fatal(err)
	}
}

func TestProcessHeaderTimeTooNew(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	header := producer.buildChild(t, dag.Params.GenesisHeader)
	header.Timestamp = time.Now().Add(dag.Params.TimestampDeviationTolerance * 2)
	solveHeader(t, header)
	producer.signHeader(t, header)

	_, err := dag.ProcessHeader(header, BFNone)
	if err := checkRuleError(err, ruleError(ErrTimeTooNew, "")); err != nil {
		t.Fatal(err)
	}
}

func TestProcessHeaderStaleParent(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)

	// Simnet's lookback window is 16 generations. Grow the chain past it,
	// then try to extend genesis.
	chain := producer.buildChain(t, dag.Params.GenesisHeader, 20)
	for _, header := range chain {
		_, err := dag.ProcessHeader(header, BFNone)
		if err != nil {
			t.Fatalf("ProcessHeader(%s): %s", header.BlockHash(), err)
		}
	}

	stale := producer.buildChildWithSalt(t, dag.Params.GenesisHeader, 1)
	_, err := dag.ProcessHeader(stale, BFNone)
	if err := checkRuleError(err, ruleError(ErrStaleParent, "")); err != nil {
		t.Fatal(err)
	}
}

// TestCheckHeader exercises the read-only verification path: valid headers
// pass, unlinkable headers classify as orphans, rule violations surface, and
// the DAG never changes.
func TestCheckHeader(t *testing.T) {
	dag := newTestDAG(t, &dagconfig.SimnetParams)
	producer := newTestProducer(t)
	chain := producer.buildChain(t, dag.Params.GenesisHeader, 3)

	isOrphan, err := dag.CheckHeader(chain[0])
	if err != nil {
		t.Fatalf("CheckHeader rejected a valid header: %s", err)
	}
	if isOrphan {
		t.Fatal("linkable header classified as orphan")
	}

	isOrphan, err = dag.CheckHeader(chain[2])
	if err != nil {
		t.Fatalf("CheckHeader rejected an unlinkable header: %s", err)
	}
	if !isOrphan {
		t.Fatal("unlinkable header not classified as orphan")
	}

	// Neither check may have touched the DAG.
	headerHash := chain[0].BlockHash()
	orphanHash := chain[2].BlockHash()
	if dag.IsInDAG(&headerHash) {
		t.Fatal("CheckHeader inserted a header")
	}
	if dag.IsKnownOrphan(&orphanHash) {
		t.Fatal("CheckHeader added a header to the orphan pool")
	}
	if dag.SelectedTipHeight() != 0 {
		t.Fatalf("CheckHeader moved the selected tip to height %d",
			dag.SelectedTipHeight())
	}

	// A header the DAG already accepted still checks out.
	_, err = dag.ProcessHeader(chain[0], BFNone)
	if err != nil {
		t.Fatalf("ProcessHeader: %s", err)
	}
	isOrphan, err = dag.CheckHeader(chain[0])
	if err != nil {
		t.Fatalf("CheckHeader rejected an accepted header: %s", err)
	}
	if isOrphan {
		t.Fatal("accepted header classified as orphan")
	}

	// Rule violations surface as usual.
	invalid := producer.buildChildWithSalt(t, chain[0], 1)
	invalid.Signature[0] ^= 0xff
	_, err = dag.CheckHeader(invalid)
	if err := checkRuleError(err, ruleError(ErrInvalidSignature, "")); err != nil {
		t.Fatal(err)
	}
}
