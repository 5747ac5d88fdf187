package netsync

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/lightdag"
	"github.com/dagnet/lightd/netadapter"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/util/panics"
	"github.com/dagnet/lightd/wire"
)

const (
	// defaultBatchSize is how many headers a single range request asks for.
	defaultBatchSize = 500

	// defaultQuorum of zero means a majority of usable peers.
	defaultQuorum = 0

	// minSyncPeers is how many usable peers the manager wants before it
	// skips peer discovery in a sync round.
	minSyncPeers = 3

	// backoffBase is the first retry delay after a failed sync round.
	backoffBase = time.Second

	// backoffMax caps the retry delay.
	backoffMax = time.Minute

	// pollInterval is how often a synced manager re-polls peer tips to
	// detect that the network has moved past it.
	pollInterval = 30 * time.Second
)

// SyncState identifies the phase of the synchronization state machine.
type SyncState int

const (
	// StateNotSynced is the state before the first sync round completes.
	StateNotSynced SyncState = iota

	// StateSyncing means header batches are being fetched and verified.
	StateSyncing

	// StateSynced means the local selected tip matches the best tip
	// reported by a quorum of peers.
	StateSynced

	// StateError means an internal invariant was violated and the
	// manager stopped. It requires an external restart.
	StateError
)

var syncStateStrings = map[SyncState]string{
	StateNotSynced: "NotSynced",
	StateSyncing:   "Syncing",
	StateSynced:    "Synced",
	StateError:     "Error",
}

func (s SyncState) String() string {
	if str, ok := syncStateStrings[s]; ok {
		return str
	}
	return "Unknown"
}

// Status is a snapshot of the manager's progress. Progress is only
// meaningful while Syncing, Err only while in the error state.
type Status struct {
	State        SyncState
	LocalHeight  uint64
	TargetHeight uint64
	Progress     float64
	Err          error
}

// Config holds the configuration of a SyncManager.
type Config struct {
	DAG     *lightdag.LightDAG
	Adapter netadapter.NetworkAdapter

	// BatchSize is the number of headers requested per range request.
	// Zero selects the default.
	BatchSize uint64

	// Quorum is the number of peers that must agree with the local tip
	// height before the manager reports Synced. Zero selects a majority
	// of usable peers.
	Quorum int
}

// SyncManager drives header synchronization against full node peers. All
// header verification funnels through a single run loop, so the DAG only
// ever has one writer. Status queries and tip queries are safe to call from
// any goroutine.
type SyncManager struct {
	cfg   Config
	peers *peerSet

	statusLock sync.RWMutex
	status     Status

	// wakeChan nudges the run loop out of its synced idle wait when a
	// header announcement arrives.
	wakeChan chan struct{}

	// announcedHeaders queues headers pushed by the transport layer for
	// the run loop to process.
	announcedLock    sync.Mutex
	announcedHeaders []*wire.BlockHeader

	wg   sync.WaitGroup
	quit chan struct{}

	spawn func(func())
}

// New creates a SyncManager in the NotSynced state. Start must be called to
// begin syncing.
func New(cfg *Config) (*SyncManager, error) {
	if cfg.DAG == nil {
		return nil, errors.New("netsync.New: DAG is required")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("netsync.New: network adapter is required")
	}
	config := *cfg
	if config.BatchSize == 0 {
		config.BatchSize = defaultBatchSize
	}
	return &SyncManager{
		cfg:      config,
		peers:    newPeerSet(),
		status:   Status{State: StateNotSynced},
		wakeChan: make(chan struct{}, 1),
		quit:     make(chan struct{}),
		spawn:    panics.GoroutineWrapperFunc(log),
	}, nil
}

// Start launches the run loop. It returns immediately.
func (sm *SyncManager) Start(ctx context.Context) {
	sm.wg.Add(1)
	sm.spawn(func() {
		defer sm.wg.Done()
		sm.run(ctx)
	})
}

// Stop shuts the run loop down and waits for it to exit.
func (sm *SyncManager) Stop() {
	close(sm.quit)
	sm.wg.Wait()
}

// Status returns a snapshot of the manager's current state.
func (sm *SyncManager) Status() Status {
	sm.statusLock.RLock()
	defer sm.statusLock.RUnlock()
	return sm.status
}

// IsSynced reports whether the manager currently considers itself caught up
// with the network.
func (sm *SyncManager) IsSynced() bool {
	return sm.Status().State == StateSynced
}

// Tips returns the current DAG tip hashes.
func (sm *SyncManager) Tips() []*daghash.Hash {
	return sm.cfg.DAG.TipHashes()
}

// SubmitHeader queues a header announced by the transport layer. The run
// loop picks it up, so announcements never race the sync pipeline.
func (sm *SyncManager) SubmitHeader(header *wire.BlockHeader) {
	sm.announcedLock.Lock()
	sm.announcedHeaders = append(sm.announcedHeaders, header)
	sm.announcedLock.Unlock()

	select {
	case sm.wakeChan <- struct{}{}:
	default:
	}
}

// VerifyHeader runs a header through the verification pipeline without
// inserting it into the DAG. It is meant for external spot checks, so it
// leaves the tip set and the orphan pool exactly as it found them.
func (sm *SyncManager) VerifyHeader(header *wire.BlockHeader) (isOrphan bool, err error) {
	return sm.cfg.DAG.CheckHeader(header)
}

// SubmitTransaction broadcasts a transaction to every usable peer
// concurrently. It succeeds if at least one peer accepted the transaction.
func (sm *SyncManager) SubmitTransaction(ctx context.Context, tx *wire.MsgTx) error {
	peers := sm.peers.usable()
	if len(peers) == 0 {
		return netadapter.NewNetworkError(netadapter.ErrConnectionFailed,
			"no usable peers to broadcast to")
	}

	errChan := make(chan error, len(peers))
	var wg sync.WaitGroup
	for _, sp := range peers {
		wg.Add(1)
		peer := sp.peer
		sm.spawn(func() {
			defer wg.Done()
			errChan <- sm.cfg.Adapter.SendTransaction(ctx, peer, tx)
		})
	}
	wg.Wait()
	close(errChan)

	var lastErr error
	for err := range errChan {
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "transaction %s rejected by all %d peers",
		tx.TxID(), len(peers))
}

// run is the synchronization state machine. A single goroutine owns it.
func (sm *SyncManager) run(ctx context.Context) {
	log.Infof("Sync manager started")
	defer log.Infof("Sync manager stopped")

	backoff := backoffBase
	for {
		select {
		case <-sm.quit:
			return
		case <-ctx.Done():
			return
		default:
		}

		sm.drainAnnouncedHeaders()

		synced, err := sm.syncRound(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			var stateErr *stateError
			if errors.As(err, &stateErr) {
				log.Criticalf("Sync manager halting: %s", err)
				sm.setStatus(Status{State: StateError, Err: err})
				return
			}

			log.Warnf("Sync round failed: %s. Retrying in %s", err, backoff)
			if !sm.wait(ctx, jitter(backoff)) {
				return
			}
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
			continue
		}
		backoff = backoffBase

		if synced {
			if !sm.wait(ctx, pollInterval) {
				return
			}
		}
	}
}

// stateError marks an internal invariant violation. It is fatal for the run
// loop.
type stateError struct {
	inner error
}

func (e *stateError) Error() string { return e.inner.Error() }
func (e *stateError) Unwrap() error { return e.inner }

// syncRound performs one iteration of the state machine: discover peers if
// needed, poll tips, and either declare the DAG synced or fetch and verify
// the next header batch from the best candidate.
func (sm *SyncManager) syncRound(ctx context.Context) (synced bool, err error) {
	if sm.peers.count() < minSyncPeers {
		if err := sm.discoverPeers(ctx); err != nil {
			return false, err
		}
	}

	targetHeight, agreeing, err := sm.pollPeerTips(ctx)
	if err != nil {
		return false, err
	}

	localHeight := sm.cfg.DAG.SelectedTipHeight()
	if localHeight >= targetHeight && agreeing >= sm.quorumSize() {
		sm.setStatus(Status{
			State:        StateSynced,
			LocalHeight:  localHeight,
			TargetHeight: targetHeight,
			Progress:     1,
		})
		return true, nil
	}

	sm.setStatus(Status{
		State:        StateSyncing,
		LocalHeight:  localHeight,
		TargetHeight: targetHeight,
		Progress:     progress(localHeight, targetHeight),
	})

	candidate := sm.peers.bestSyncCandidate()
	if candidate == nil {
		return false, netadapter.NewNetworkError(netadapter.ErrPeerNotFound,
			"no usable sync peer")
	}
	if err := sm.syncBatchFromPeer(ctx, candidate); err != nil {
		return false, err
	}

	localHeight = sm.cfg.DAG.SelectedTipHeight()
	sm.setStatus(Status{
		State:        StateSyncing,
		LocalHeight:  localHeight,
		TargetHeight: targetHeight,
		Progress:     progress(localHeight, targetHeight),
	})
	return false, nil
}

func (sm *SyncManager) discoverPeers(ctx context.Context) error {
	peers, err := sm.cfg.Adapter.DiscoverPeers(ctx)
	if err != nil {
		return errors.Wrap(err, "peer discovery failed")
	}
	sm.peers.update(peers)
	log.Debugf("Peer discovery yielded %d peers, %d usable",
		len(peers), sm.peers.count())
	return nil
}

// pollPeerTips asks every usable peer for its selected tip height. It
// returns the highest reported height and how many peers report a height no
// greater than the local one.
func (sm *SyncManager) pollPeerTips(ctx context.Context) (targetHeight uint64, agreeing int, err error) {
	localHeight := sm.cfg.DAG.SelectedTipHeight()
	targetHeight = localHeight

	peers := sm.peers.usable()
	if len(peers) == 0 {
		return 0, 0, netadapter.NewNetworkError(netadapter.ErrPeerNotFound,
			"no usable peers to poll")
	}

	responded := 0
	for _, sp := range peers {
		height, err := sm.cfg.Adapter.GetBestTipHeight(ctx, sp.peer)
		if err != nil {
			if ctx.Err() != nil {
				return 0, 0, ctx.Err()
			}
			log.Debugf("Peer %s tip poll failed: %s", sp.peer, err)
			sm.peers.demote(sp.peer.ID, networkFailurePenalty)
			continue
		}
		responded++
		sm.peers.setBestTipHeight(sp.peer.ID, height)
		if height > targetHeight {
			targetHeight = height
		}
		if height <= localHeight {
			agreeing++
		}
	}
	if responded == 0 {
		return 0, 0, netadapter.NewNetworkError(netadapter.ErrConnectionFailed,
			"no peer answered a tip poll")
	}
	return targetHeight, agreeing, nil
}

// quorumSize returns the configured quorum, or a majority of usable peers
// when no explicit quorum is set.
func (sm *SyncManager) quorumSize() int {
	if sm.cfg.Quorum > 0 {
		return sm.cfg.Quorum
	}
	return sm.peers.count()/2 + 1
}

// syncBatchFromPeer fetches one header batch from the peer and feeds it
// through verification in ascending height order.
func (sm *SyncManager) syncBatchFromPeer(ctx context.Context, sp *syncPeer) error {
	fromHeight := sm.cfg.DAG.SelectedTipHeight() + 1
	headers, err := sm.cfg.Adapter.GetHeaders(ctx, sp.peer, fromHeight, sm.cfg.BatchSize)
	if err != nil {
		sm.peers.demote(sp.peer.ID, fetchFailurePenalty(err))
		return errors.Wrapf(err, "header batch [%d, %d) from peer %s failed",
			fromHeight, fromHeight+sm.cfg.BatchSize, sp.peer)
	}
	if len(headers) == 0 {
		return netadapter.NewNetworkError(netadapter.ErrInvalidResponse,
			"peer returned an empty header batch while behind its claimed tip")
	}

	accepted, err := sm.processHeaders(ctx, sp, headers)
	if err != nil {
		return err
	}
	if accepted > 0 {
		sm.peers.reward(sp.peer.ID, goodBatchReward)
	}
	log.Debugf("Accepted %d/%d headers from peer %s starting at height %d",
		accepted, len(headers), sp.peer, fromHeight)
	return nil
}

// processHeaders feeds a batch through the DAG. An orphan triggers an
// ancestor range fetch before retrying the header. A rule violation demotes
// the peer and discards the rest of the batch.
func (sm *SyncManager) processHeaders(ctx context.Context, sp *syncPeer,
	headers []*wire.BlockHeader) (accepted int, err error) {

	for _, header := range headers {
		isOrphan, err := sm.cfg.DAG.ProcessHeader(header, lightdag.BFIsSync)
		if err != nil {
			var ruleErr lightdag.RuleError
			if !errors.As(err, &ruleErr) {
				return accepted, &stateError{inner: err}
			}
			if ruleErr.ErrorCode == lightdag.ErrDuplicateHeader {
				continue
			}
			sm.peers.demote(sp.peer.ID, invalidHeaderPenalty)
			log.Warnf("Peer %s served invalid header %s: %s. Discarding batch",
				sp.peer, header.BlockHash(), err)
			return accepted, nil
		}
		if isOrphan {
			if err := sm.fetchOrphanAncestors(ctx, sp, header); err != nil {
				return accepted, err
			}
			continue
		}
		accepted++
	}
	return accepted, nil
}

// fetchOrphanAncestors requests the range between the local tip and the
// deepest missing ancestor of an orphan header. Filling it lets the orphan
// pool connect the branch.
func (sm *SyncManager) fetchOrphanAncestors(ctx context.Context, sp *syncPeer,
	orphan *wire.BlockHeader) error {

	orphanHash := orphan.BlockHash()
	root := sm.cfg.DAG.OrphanRoot(&orphanHash)
	fromHeight := sm.cfg.DAG.SelectedTipHeight() + 1
	log.Debugf("Header %s is an orphan rooted at %s. Requesting ancestors from height %d",
		orphanHash, root, fromHeight)

	headers, err := sm.cfg.Adapter.GetHeaders(ctx, sp.peer, fromHeight, sm.cfg.BatchSize)
	if err != nil {
		sm.peers.demote(sp.peer.ID, fetchFailurePenalty(err))
		return errors.Wrapf(err, "ancestor fetch for orphan %s failed", orphanHash)
	}
	for _, header := range headers {
		_, err := sm.cfg.DAG.ProcessHeader(header, lightdag.BFIsSync)
		if err != nil {
			var ruleErr lightdag.RuleError
			if !errors.As(err, &ruleErr) {
				return &stateError{inner: err}
			}
			if ruleErr.ErrorCode == lightdag.ErrDuplicateHeader {
				continue
			}
			sm.peers.demote(sp.peer.ID, invalidHeaderPenalty)
			log.Warnf("Peer %s served invalid ancestor %s: %s",
				sp.peer, header.BlockHash(), err)
			return nil
		}
	}
	return nil
}

// drainAnnouncedHeaders processes headers pushed through SubmitHeader.
func (sm *SyncManager) drainAnnouncedHeaders() {
	sm.announcedLock.Lock()
	headers := sm.announcedHeaders
	sm.announcedHeaders = nil
	sm.announcedLock.Unlock()

	for _, header := range headers {
		isOrphan, err := sm.cfg.DAG.ProcessHeader(header, lightdag.BFNone)
		if err != nil {
			log.Debugf("Announced header %s rejected: %s", header.BlockHash(), err)
			continue
		}
		if isOrphan {
			log.Debugf("Announced header %s is an orphan. Next sync round will backfill",
				header.BlockHash())
		}
	}
}

func (sm *SyncManager) setStatus(status Status) {
	sm.statusLock.Lock()
	sm.status = status
	sm.statusLock.Unlock()
}

// wait sleeps for d unless the manager is stopped, the context is canceled,
// or an announcement wakes it early. It returns false when the run loop
// should exit.
func (sm *SyncManager) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-sm.wakeChan:
		return true
	case <-sm.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// fetchFailurePenalty decides how hard to punish a failed fetch. Transient
// transport errors are mild; a malformed response means the peer is serving
// garbage and is penalized like an invalid header.
func fetchFailurePenalty(err error) int {
	if netadapter.IsRetryable(err) {
		return networkFailurePenalty
	}
	if netadapter.IsNetworkError(err, netadapter.ErrInvalidResponse) {
		return invalidHeaderPenalty
	}
	return networkFailurePenalty
}

func progress(local, target uint64) float64 {
	if target == 0 {
		return 0
	}
	p := float64(local) / float64(target)
	if p > 1 {
		p = 1
	}
	return p
}

func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
