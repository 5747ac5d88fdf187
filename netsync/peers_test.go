package netsync

import (
	"testing"

	"github.com/dagnet/lightd/netadapter"
)

func testPeers(ids ...string) []*netadapter.Peer {
	peers := make([]*netadapter.Peer, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, &netadapter.Peer{ID: id, Address: "127.0.0.1:0"})
	}
	return peers
}

func TestPeerSetDemotionAndRecovery(t *testing.T) {
	ps := newPeerSet()
	ps.update(testPeers("a", "b"))

	if ps.count() != 2 {
		t.Fatalf("expected 2 usable peers, got %d", ps.count())
	}

	for score := ps.demote("a", invalidHeaderPenalty); score > banScore; {
		score = ps.demote("a", invalidHeaderPenalty)
	}
	if ps.count() != 1 {
		t.Fatalf("expected banned peer to be unusable, count %d", ps.count())
	}

	// Re-discovering a banned peer must not reset its score.
	ps.update(testPeers("a"))
	if ps.count() != 1 {
		t.Fatal("rediscovery reset a banned peer's score")
	}

	// Rewards are capped at the initial score.
	ps.reward("b", 10*initialPeerScore)
	ps.mtx.RLock()
	score := ps.peers["b"].score
	ps.mtx.RUnlock()
	if score != initialPeerScore {
		t.Fatalf("expected capped score %d, got %d", initialPeerScore, score)
	}
}

func TestPeerSetBestSyncCandidate(t *testing.T) {
	ps := newPeerSet()
	if ps.bestSyncCandidate() != nil {
		t.Fatal("empty set returned a candidate")
	}

	ps.update(testPeers("low", "high", "banned"))
	ps.setBestTipHeight("low", 10)
	ps.setBestTipHeight("high", 25)
	ps.setBestTipHeight("banned", 100)
	for ps.demote("banned", invalidHeaderPenalty) > banScore {
	}

	candidate := ps.bestSyncCandidate()
	if candidate == nil || candidate.peer.ID != "high" {
		t.Fatalf("expected peer high, got %v", candidate)
	}

	// Equal heights break the tie by score.
	ps.setBestTipHeight("low", 25)
	ps.demote("low", networkFailurePenalty)
	candidate = ps.bestSyncCandidate()
	if candidate == nil || candidate.peer.ID != "high" {
		t.Fatalf("expected tie to favor the higher score, got %v", candidate)
	}
}
