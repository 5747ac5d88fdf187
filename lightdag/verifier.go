// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"fmt"
	"math/big"
	"time"

	"github.com/kaspanet/go-secp256k1"

	"github.com/dagnet/lightd/util"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// checkProofOfWork ensures the header bits which indicate the target
// difficulty are in min/max range and that the header hash is less than the
// target difficulty as claimed.
//
// The flags modify the behavior of this function as follows:
//   - BFNoPoWCheck: The check to ensure the header hash is less than the
//     target difficulty is not performed.
func checkProofOfWork(header *wire.BlockHeader, powMax *big.Int, flags BehaviorFlags) error {
	// The target difficulty must be larger than zero.
	target := util.CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("target difficulty of %064x is too low", target)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed.
	if target.Cmp(powMax) > 0 {
		str := fmt.Sprintf("target difficulty of %064x is higher than max of %064x",
			target, powMax)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	// The header hash must be less than the claimed target unless the flag
	// to avoid proof of work checks is set.
	if flags&BFNoPoWCheck != BFNoPoWCheck {
		// The header hash must be less than the claimed target.
		hash := header.BlockHash()
		hashNum := daghash.HashToBig(&hash)
		if hashNum.Cmp(target) > 0 {
			str := fmt.Sprintf("header hash of %064x is higher than expected max of %064x",
				hashNum, target)
			return ruleError(ErrHighHash, str)
		}
	}

	return nil
}

// checkHeaderSignature ensures the producer signature carried by the header
// verifies against its embedded public key. The signature covers the header
// hash, which itself covers every field except the signature.
func checkHeaderSignature(header *wire.BlockHeader) error {
	pubKey, err := secp256k1.DeserializeSchnorrPubKey(header.PubKey[:])
	if err != nil {
		str := fmt.Sprintf("could not parse producer public key: %s", err)
		return ruleError(ErrInvalidSignature, str)
	}

	signature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(header.Signature[:])
	if err != nil {
		str := fmt.Sprintf("could not parse producer signature: %s", err)
		return ruleError(ErrInvalidSignature, str)
	}

	hash := header.BlockHash()
	secpHash := secp256k1.Hash(hash)
	if !pubKey.SchnorrVerify(&secpHash, signature) {
		str := fmt.Sprintf("producer signature does not verify for header %s", &hash)
		return ruleError(ErrInvalidSignature, str)
	}

	return nil
}

// checkHeaderSanity performs the context free checks on a header: proof of
// work and the producer signature. Sanity failures are permanent; a header
// that fails here can never become valid.
func (dag *LightDAG) checkHeaderSanity(header *wire.BlockHeader, flags BehaviorFlags) error {
	err := checkProofOfWork(header, dag.Params.PowMax, flags)
	if err != nil {
		return err
	}

	return checkHeaderSignature(header)
}

// checkHeaderContext performs the contextual checks on a header that require
// its parent node: height continuity, timestamp monotonicity, the future
// bound on the timestamp, and the tip lookback window.
//
// This function MUST be called with the DAG state lock held (for reads).
func (dag *LightDAG) checkHeaderContext(header *wire.BlockHeader, parent *headerNode) error {
	hash := header.BlockHash()

	// The height must be exactly one more than the parent's.
	if header.Height != parent.height+1 {
		str := fmt.Sprintf("header %s at height %d but parent %s is at height %d",
			&hash, header.Height, parent.hash, parent.height)
		return ruleError(ErrInvalidHeight, str)
	}

	// The timestamp must be strictly after the parent's.
	timestamp := header.Timestamp.UnixNano() / int64(time.Millisecond)
	if timestamp <= parent.timestamp {
		str := fmt.Sprintf("header %s timestamp %d is not after parent timestamp %d",
			&hash, timestamp, parent.timestamp)
		return ruleError(ErrTimeTooOld, str)
	}

	// The timestamp must not be too far into the future relative to our
	// own clock.
	maxTimestamp := dag.timeSource.Now().Add(dag.Params.TimestampDeviationTolerance)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("header %s timestamp of %s is too far in the future",
			&hash, header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	// The parent must be within the lookback window of the current tips.
	// A parent deeper than that is stale: accepting it would let peers
	// feed us arbitrarily old forks.
	if !dag.isWithinLookback(parent) {
		str := fmt.Sprintf("header %s links to parent %s at height %d, "+
			"deeper than %d generations behind the current tips",
			&hash, parent.hash, parent.height, dag.Params.TipLookbackWindow)
		return ruleError(ErrStaleParent, str)
	}

	return nil
}

// isWithinLookback reports whether the given node may still gain children,
// that is whether its height is no more than TipLookbackWindow generations
// behind the highest current tip.
//
// This function MUST be called with the DAG state lock held (for reads).
func (dag *LightDAG) isWithinLookback(node *headerNode) bool {
	var maxTipHeight uint64
	for _, tip := range dag.tips {
		if tip.height > maxTipHeight {
			maxTipHeight = tip.height
		}
	}
	if maxTipHeight <= dag.Params.TipLookbackWindow {
		return true
	}
	return node.height >= maxTipHeight-dag.Params.TipLookbackWindow
}
