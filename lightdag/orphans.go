package lightdag

import (
	"time"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// orphanHeader represents a header that we don't yet have the parent for. It
// is a normal header plus an expiration time to prevent caching the orphan
// forever.
type orphanHeader struct {
	header     *wire.BlockHeader
	expiration time.Time
}

// IsKnownOrphan returns whether the passed hash is currently a known orphan.
// Keep in mind that only a limited number of orphans are held onto for a
// limited amount of time, so this function must not be used as an absolute
// way to test if a header is an orphan. A full header (as opposed to just its
// hash) must be passed to ProcessHeader for that purpose. However, calling
// ProcessHeader with an orphan that already exists results in an error, so
// this function provides a mechanism for a caller to intelligently detect
// *recent* duplicate orphans and react accordingly.
//
// This function is safe for concurrent access.
func (dag *LightDAG) IsKnownOrphan(hash *daghash.Hash) bool {
	// Protect concurrent access. Using a read lock only so multiple
	// readers can query without blocking each other.
	dag.orphanLock.RLock()
	defer dag.orphanLock.RUnlock()
	_, exists := dag.orphans[*hash]

	return exists
}

// OrphanRoot returns the deepest missing ancestor hash of the provided
// orphan: the hash a syncer should request from its peers to make progress
// on connecting the orphan's chain.
//
// This function is safe for concurrent access.
func (dag *LightDAG) OrphanRoot(orphanHash *daghash.Hash) *daghash.Hash {
	// Protect concurrent access. Using a read lock only so multiple
	// readers can query without blocking each other.
	dag.orphanLock.RLock()
	defer dag.orphanLock.RUnlock()

	// Walk the chain of orphans backwards until the missing parent is no
	// longer a known orphan.
	missing := orphanHash
	for {
		orphan, exists := dag.orphans[*missing]
		if !exists {
			break
		}
		missing = &orphan.header.PrevBlock
	}
	return missing
}

// removeOrphanHeader removes the passed orphan header from the orphan pool
// and previous orphan index.
func (dag *LightDAG) removeOrphanHeader(orphan *orphanHeader) {
	// Protect concurrent access.
	dag.orphanLock.Lock()
	defer dag.orphanLock.Unlock()

	// Remove the orphan header from the orphan pool.
	orphanHash := orphan.header.BlockHash()
	delete(dag.orphans, orphanHash)

	// Remove the reference from the previous orphan index too. An
	// indexing for loop is intentionally used over a range here as range
	// does not reevaluate the slice on each iteration nor does it adjust
	// the index for the modified slice.
	prevHash := orphan.header.PrevBlock
	orphans := dag.prevOrphans[prevHash]
	for i := 0; i < len(orphans); i++ {
		hash := orphans[i].header.BlockHash()
		if hash.IsEqual(&orphanHash) {
			orphans = append(orphans[:i], orphans[i+1:]...)
			i--
		}
	}

	// Remove the map entry altogether if there are no longer any orphans
	// which depend on the parent hash.
	if len(orphans) == 0 {
		delete(dag.prevOrphans, prevHash)
		return
	}

	dag.prevOrphans[prevHash] = orphans
}

// addOrphanHeader adds the passed header (which is already determined to be
// an orphan prior to calling this function) to the orphan pool. It lazily
// cleans up any expired headers so a separate cleanup poller doesn't need to
// be run. It also imposes a maximum limit on the number of outstanding
// orphan headers and evicts the newest received orphan if the limit is
// exceeded.
func (dag *LightDAG) addOrphanHeader(header *wire.BlockHeader) {
	// Remove expired orphan headers.
	for _, oHeader := range dag.orphans {
		if time.Now().After(oHeader.expiration) {
			dag.removeOrphanHeader(oHeader)
			continue
		}

		// Update the newest orphan pointer so it can be discarded in
		// case the orphan pool fills up.
		if dag.newestOrphan == nil ||
			oHeader.header.Timestamp.After(dag.newestOrphan.header.Timestamp) {
			dag.newestOrphan = oHeader
		}
	}

	// Limit orphan headers to prevent memory exhaustion.
	if len(dag.orphans)+1 > dag.Params.MaxOrphanHeaders {
		// If the new orphan is newer than the newest orphan in the
		// pool, don't add it.
		if header.Timestamp.After(dag.newestOrphan.header.Timestamp) {
			return
		}
		// Remove the newest orphan to make room for the added one.
		dag.removeOrphanHeader(dag.newestOrphan)
		dag.newestOrphan = nil
	}

	// Protect concurrent access. This is intentionally done here instead
	// of near the top since removeOrphanHeader does its own locking and
	// the range iterator is not invalidated by removing map entries.
	dag.orphanLock.Lock()
	defer dag.orphanLock.Unlock()

	// Insert the header into the orphan map with an expiration time.
	oHeader := &orphanHeader{
		header:     header,
		expiration: time.Now().Add(dag.Params.OrphanExpiration),
	}
	dag.orphans[header.BlockHash()] = oHeader

	// Add to parent hash lookup index for faster dependency lookups.
	dag.prevOrphans[header.PrevBlock] = append(dag.prevOrphans[header.PrevBlock], oHeader)
}

// processOrphans determines if there are any orphans which depend on the
// passed header hash (they are no longer orphans if true) and potentially
// accepts them. It repeats the process for the newly accepted headers (to
// detect further orphans which may no longer be orphans) until there are no
// more.
//
// The flags do not modify the behavior of this function directly, however
// they are needed to pass along to maybeAcceptHeader.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) processOrphans(hash *daghash.Hash, flags BehaviorFlags) error {
	// Start with processing at least the passed hash. Leave a little room
	// for additional orphan headers that need to be processed without
	// needing to grow the array in the common case.
	processHashes := make([]*daghash.Hash, 0, 10)
	processHashes = append(processHashes, hash)
	for len(processHashes) > 0 {
		// Pop the first hash to process from the slice.
		processHash := processHashes[0]
		processHashes[0] = nil // Prevent GC leak.
		processHashes = processHashes[1:]

		// Look up all orphans that are parented by the header we just
		// accepted. An indexing for loop is intentionally used over a
		// range here as range does not reevaluate the slice on each
		// iteration nor does it adjust the index for the modified
		// slice.
		for i := 0; i < len(dag.prevOrphans[*processHash]); i++ {
			orphan := dag.prevOrphans[*processHash][i]
			if orphan == nil {
				log.Warnf("Found a nil entry at index %d in the "+
					"orphan dependency list for header %s", i,
					processHash)
				continue
			}

			// Remove the orphan from the orphan pool.
			orphanHash := orphan.header.BlockHash()
			dag.removeOrphanHeader(orphan)
			i--

			// Potentially accept the header into the DAG.
			err := dag.maybeAcceptHeader(orphan.header, flags|BFWasUnorphaned)
			if err != nil {
				// The original header stays accepted even when
				// an unorphaned child turns out to be bad, so
				// only propagate non-rule errors.
				if !errors.As(err, &RuleError{}) {
					return err
				}
				log.Warnf("Verification failed for orphan header %s: %s",
					orphanHash, err)
				continue
			}

			// Add this header to the list of headers to process so
			// any orphan headers that depend on this header are
			// handled too.
			processHashes = append(processHashes, &orphanHash)
		}
	}
	return nil
}
