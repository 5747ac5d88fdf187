package netsync

import (
	"sync"

	"github.com/dagnet/lightd/netadapter"
)

const (
	// initialPeerScore is the score a peer starts with.
	initialPeerScore = 100

	// invalidHeaderPenalty is subtracted from a peer's score every time
	// it serves a header that fails verification.
	invalidHeaderPenalty = 40

	// networkFailurePenalty is subtracted from a peer's score on
	// transport failures. Milder than serving bad data.
	networkFailurePenalty = 10

	// goodBatchReward is added to a peer's score, up to the initial
	// score, when a batch it served is fully accepted.
	goodBatchReward = 5

	// banScore is the score at or below which a peer stops being used.
	banScore = 0
)

// syncPeer couples an adapter peer with the quality state the sync manager
// tracks for it.
type syncPeer struct {
	peer *netadapter.Peer

	// score reflects how trustworthy the peer has been. It only moves on
	// observed behavior, never on time.
	score int

	// bestTipHeight is the peer's selected tip height from the most
	// recent poll.
	bestTipHeight uint64
}

// peerSet tracks the peers the sync manager works with. It is safe for
// concurrent access.
type peerSet struct {
	mtx   sync.RWMutex
	peers map[string]*syncPeer
}

func newPeerSet() *peerSet {
	return &peerSet{peers: make(map[string]*syncPeer)}
}

// update folds freshly discovered peers into the set. Known peers keep their
// score; new ones start fresh.
func (ps *peerSet) update(peers []*netadapter.Peer) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	for _, peer := range peers {
		if _, ok := ps.peers[peer.ID]; !ok {
			ps.peers[peer.ID] = &syncPeer{peer: peer, score: initialPeerScore}
		}
	}
}

// usable returns the peers whose score is above the ban threshold.
func (ps *peerSet) usable() []*syncPeer {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	usable := make([]*syncPeer, 0, len(ps.peers))
	for _, sp := range ps.peers {
		if sp.score > banScore {
			usable = append(usable, sp)
		}
	}
	return usable
}

// setBestTipHeight records the peer's polled tip height.
func (ps *peerSet) setBestTipHeight(id string, height uint64) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	if sp, ok := ps.peers[id]; ok {
		sp.bestTipHeight = height
	}
}

// demote lowers the peer's score by penalty. It returns the new score.
func (ps *peerSet) demote(id string, penalty int) int {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	sp, ok := ps.peers[id]
	if !ok {
		return banScore
	}
	sp.score -= penalty
	if sp.score <= banScore {
		log.Infof("Peer %s demoted below the ban threshold", id)
	}
	return sp.score
}

// reward raises the peer's score by reward, capped at the initial score.
func (ps *peerSet) reward(id string, reward int) {
	ps.mtx.Lock()
	defer ps.mtx.Unlock()
	sp, ok := ps.peers[id]
	if !ok {
		return
	}
	sp.score += reward
	if sp.score > initialPeerScore {
		sp.score = initialPeerScore
	}
}

// bestSyncCandidate returns the usable peer with the highest claimed tip,
// breaking ties by score. Returns nil when no peer is usable.
func (ps *peerSet) bestSyncCandidate() *syncPeer {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	var best *syncPeer
	for _, sp := range ps.peers {
		if sp.score <= banScore {
			continue
		}
		if best == nil ||
			sp.bestTipHeight > best.bestTipHeight ||
			(sp.bestTipHeight == best.bestTipHeight && sp.score > best.score) {
			best = sp
		}
	}
	return best
}

// count returns how many usable peers the set holds.
func (ps *peerSet) count() int {
	ps.mtx.RLock()
	defer ps.mtx.RUnlock()
	count := 0
	for _, sp := range ps.peers {
		if sp.score > banScore {
			count++
		}
	}
	return count
}
