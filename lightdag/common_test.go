// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"testing"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/util"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// testProducer signs the headers a test builds. One key pair per test is
// enough; the verifier only checks that a header verifies against its own
// embedded key.
type testProducer struct {
	keyPair          *secp256k1.SchnorrKeyPair
	serializedPubKey [wire.SchnorrPubKeySize]byte
}

func newTestProducer(t *testing.T) *testProducer {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		t.Fatalf("GenerateSchnorrKeyPair: %s", err)
	}
	pubKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("SchnorrPublicKey: %s", err)
	}
	serialized, err := pubKey.Serialize()
	if err != nil {
		t.Fatalf("Serialize pubkey: %s", err)
	}
	return &testProducer{
		keyPair:          keyPair,
		serializedPubKey: *serialized,
	}
}

// solveHeader increments the nonce until the header hash satisfies its own
// target. Simnet's trivial proof of work limit keeps this to a handful of
// iterations.
func solveHeader(t *testing.T, header *wire.BlockHeader) {
	target := util.CompactToBig(header.Bits)
	for i := uint64(0); i < 1<<32; i++ {
		header.Nonce = i
		hash := header.BlockHash()
		if daghash.HashToBig(&hash).Cmp(target) <= 0 {
			return
		}
	}
	t.Fatal("solveHeader: no solution found")
}

// signHeader signs the solved header's hash with the producer key. The
// header's pubkey must already carry the producer key: the pubkey is part
// of the hashed payload, while the signature is not, so signing cannot
// invalidate the proof of work.
func (p *testProducer) signHeader(t *testing.T, header *wire.BlockHeader) {
	if header.PubKey != p.serializedPubKey {
		t.Fatal("signHeader: header pubkey not set before solving")
	}
	hash := header.BlockHash()
	secpHash := secp256k1.Hash(hash)
	signature, err := p.keyPair.SchnorrSign(&secpHash)
	if err != nil {
		t.Fatalf("SchnorrSign: %s", err)
	}
	header.Signature = *signature.Serialize()
}

// buildChild returns a solved and signed header extending parent.
func (p *testProducer) buildChild(t *testing.T, parent *wire.BlockHeader) *wire.BlockHeader {
	return p.buildChildWithSalt(t, parent, 0)
}

// buildChildWithSalt is like buildChild with the salt folded into the merkle
// root, so siblings of the same parent get distinct hashes.
func (p *testProducer) buildChildWithSalt(t *testing.T, parent *wire.BlockHeader, salt byte) *wire.BlockHeader {
	header := &wire.BlockHeader{
		Version:        1,
		PrevBlock:      parent.BlockHash(),
		HashMerkleRoot: daghash.DoubleHashH(append(parent.HashMerkleRoot[:], salt)),
		Height:         parent.Height + 1,
		Timestamp:      parent.Timestamp.Add(time.Second),
		Bits:           parent.Bits,
		PubKey:         p.serializedPubKey,
	}
	solveHeader(t, header)
	p.signHeader(t, header)
	return header
}

// buildChain returns length solved and signed headers, each extending the
// previous, the first extending parent.
func (p *testProducer) buildChain(t *testing.T, parent *wire.BlockHeader, length int) []*wire.BlockHeader {
	chain := make([]*wire.BlockHeader, 0, length)
	for i := 0; i < length; i++ {
		header := p.buildChild(t, parent)
		chain = append(chain, header)
		parent = header
	}
	return chain
}

// newTestDAG returns a DAG that is usable for testing. It runs without a
// database and with the standard wall clock.
func newTestDAG(t *testing.T, params *dagconfig.Params) *LightDAG {
	dag, err := New(&Config{
		DAGParams:  params,
		TimeSource: NewTimeSource(),
	})
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	return dag
}

// checkRuleError ensures the two passed errors are both rule errors carrying
// the same error code, or both nil.
func checkRuleError(gotErr, wantErr error) error {
	if wantErr == nil && gotErr == nil {
		return nil
	}

	var gotRuleErr RuleError
	if !errors.As(gotErr, &gotRuleErr) {
		return errors.Errorf("unexpected error type %T: %v", gotErr, gotErr)
	}

	var wantRuleErr RuleError
	if !errors.As(wantErr, &wantRuleErr) {
		return errors.Errorf("want error is not a RuleError: %v", wantErr)
	}

	if gotRuleErr.ErrorCode != wantRuleErr.ErrorCode {
		return errors.Errorf("mismatched error code: got %s, want %s",
			gotRuleErr.ErrorCode, wantRuleErr.ErrorCode)
	}
	return nil
}
