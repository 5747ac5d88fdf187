package lightdag

import (
	"fmt"

	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing DAG processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a header hashes to a value less than the required target
	// will not be performed.
	BFNoPoWCheck BehaviorFlags = 1 << iota

	// BFWasUnorphaned may be set to indicate that a header was just now
	// unorphaned.
	BFWasUnorphaned

	// BFDisallowOrphans may be set to indicate that headers with missing
	// parents should be rejected outright instead of entering the orphan
	// pool.
	BFDisallowOrphans

	// BFIsSync may be set to indicate that the header was sent as part of
	// the netsync process.
	BFIsSync

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// ProcessHeader is the main workhorse for handling insertion of new headers
// into the DAG. It includes functionality such as rejecting duplicate
// headers, ensuring headers follow all rules, orphan handling, and insertion
// into the DAG.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the header is an orphan.
//
// This function is safe for concurrent access.
func (dag *LightDAG) ProcessHeader(header *wire.BlockHeader, flags BehaviorFlags) (isOrphan bool, err error) {
	dag.dagLock.Lock()
	defer dag.dagLock.Unlock()
	return dag.processHeaderNoLock(header, flags)
}

func (dag *LightDAG) processHeaderNoLock(header *wire.BlockHeader, flags BehaviorFlags) (isOrphan bool, err error) {
	headerHash := header.BlockHash()
	log.Tracef("Processing header %s", headerHash)

	// The header must not already exist in the DAG.
	if dag.isInDAGNoLock(&headerHash) {
		str := fmt.Sprintf("already have header %s", headerHash)
		return false, ruleError(ErrDuplicateHeader, str)
	}

	// The header must not already exist as an orphan.
	if dag.IsKnownOrphan(&headerHash) {
		str := fmt.Sprintf("already have header (orphan) %s", headerHash)
		return false, ruleError(ErrDuplicateHeader, str)
	}

	// Perform preliminary sanity checks on the header. These are context
	// free, so a failure here is permanent and the header can be
	// discarded.
	err = dag.checkHeaderSanity(header, flags)
	if err != nil {
		return false, err
	}

	// Handle orphan headers.
	if !dag.isInDAGNoLock(&header.PrevBlock) {
		if flags&BFDisallowOrphans == BFDisallowOrphans {
			str := fmt.Sprintf("cannot process orphan header %s while the "+
				"BFDisallowOrphans flag is raised", headerHash)
			return false, ruleError(ErrOrphanNotAllowed, str)
		}

		// Orphans are a normal part of netsync, since the sync peer's
		// announcements can land before the batches that connect them.
		if flags&BFIsSync == BFIsSync {
			log.Debugf("Adding orphan header %s. This is a normal part of the "+
				"netsync process", headerHash)
		} else {
			log.Infof("Adding orphan header %s", headerHash)
		}
		dag.addOrphanHeader(header)

		return true, nil
	}

	// The header has passed all context independent checks and appears
	// sane enough to potentially accept it into the DAG.
	err = dag.maybeAcceptHeader(header, flags)
	if err != nil {
		return false, err
	}

	// Accept any orphan headers that depend on this header (they are no
	// longer orphans) and repeat for those accepted headers until there
	// are no more.
	err = dag.processOrphans(&headerHash, flags)
	if err != nil {
		return false, err
	}

	log.Debugf("Accepted header %s", headerHash)
	return false, nil
}

// maybeAcceptHeader potentially accepts a header into the DAG. It performs
// the contextual checks against the header's parent, and if they pass, links
// the new node into the DAG, updates the tip set and the selected tip, and
// persists the header.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) maybeAcceptHeader(header *wire.BlockHeader, flags BehaviorFlags) error {
	parent, ok := dag.index[header.PrevBlock]
	if !ok {
		str := fmt.Sprintf("parent header %s is unknown", header.PrevBlock)
		return ruleError(ErrParentUnknown, str)
	}

	err := dag.checkHeaderContext(header, parent)
	if err != nil {
		return err
	}

	node := newHeaderNode(header, parent)
	dag.index[*node.hash] = node
	dag.applyAccepted(node)
	dag.headerCache.Add(header)
	dag.headerCache.PinTips(dag.tips.hashes())

	if dag.databaseContext != nil {
		err := dag.storeHeader(header)
		if err != nil {
			return err
		}
		err = dag.saveState()
		if err != nil {
			return err
		}
	}

	if flags&BFWasUnorphaned == BFWasUnorphaned {
		log.Debugf("Unorphaned header %s at height %d", node.hash, node.height)
	}
	return nil
}

// CheckHeader runs a header through the full set of verification rules
// without inserting it. The DAG is left untouched: nothing is added to the
// index, the tip set, the orphan pool, or the database. Headers that are
// already in the DAG or the orphan pool verify successfully, since they
// have passed these checks before.
//
// When no errors occurred during checking, the first return value indicates
// whether or not the header would be an orphan.
//
// This function is safe for concurrent access.
func (dag *LightDAG) CheckHeader(header *wire.BlockHeader) (isOrphan bool, err error) {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()

	headerHash := header.BlockHash()
	log.Tracef("Checking header %s", headerHash)

	if dag.isInDAGNoLock(&headerHash) {
		return false, nil
	}
	if dag.IsKnownOrphan(&headerHash) {
		return true, nil
	}

	err = dag.checkHeaderSanity(header, BFNone)
	if err != nil {
		return false, err
	}

	// A sane header with an unknown parent would enter the orphan pool.
	parent, ok := dag.index[header.PrevBlock]
	if !ok {
		return true, nil
	}

	return false, dag.checkHeaderContext(header, parent)
}

// isInDAGNoLock is the no-lock version of IsInDAG.
func (dag *LightDAG) isInDAGNoLock(hash *daghash.Hash) bool {
	_, ok := dag.index[*hash]
	return ok
}
