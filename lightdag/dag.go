// Copyright (c) 2013-2018 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/dagconfig"
	"github.com/dagnet/lightd/dbaccess"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// LightDAG provides functions for working with the header DAG a light
// client tracks. It verifies incoming headers, maintains the tip set and the
// canonical tip, holds orphans until their parents arrive, and keeps
// recently used headers in a bounded cache.
type LightDAG struct {
	// Params identifies the network the DAG belongs to.
	Params *dagconfig.Params

	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	databaseContext *dbaccess.DatabaseContext
	timeSource      TimeSource

	// dagLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	dagLock sync.RWMutex

	// index houses every accepted header node keyed by hash.
	index map[daghash.Hash]*headerNode

	// genesis is the node the whole DAG hangs off.
	genesis *headerNode

	// tips are the nodes without accepted children.
	tips headerSet

	// selectedTip is the canonical tip per the fork choice rule.
	selectedTip *headerNode

	// These fields are related to handling of orphan headers. They are
	// protected by a combination of the DAG lock and the orphan lock.
	orphanLock   sync.RWMutex
	orphans      map[daghash.Hash]*orphanHeader
	prevOrphans  map[daghash.Hash][]*orphanHeader
	newestOrphan *orphanHeader

	// headerCache holds recently touched headers.
	headerCache *headerCache
}

// Config is a descriptor which specifies the LightDAG instance configuration.
type Config struct {
	// DAGParams identifies which network parameters the DAG is associated
	// with.
	//
	// This field is required.
	DAGParams *dagconfig.Params

	// DatabaseContext is the context in which all database queries related
	// to this DAG are going to run. When nil, the DAG holds its state in
	// memory only.
	DatabaseContext *dbaccess.DatabaseContext

	// TimeSource defines the time source to use for things such as
	// verifying header timestamps against the future bound.
	//
	// This field is required.
	TimeSource TimeSource

	// CacheBudgetBytes bounds the in-memory header cache. Zero selects
	// the default budget.
	CacheBudgetBytes int
}

// New returns a LightDAG instance using the provided configuration details.
// The genesis header is inserted axiomatically, and any previously persisted
// headers are restored from the database.
func New(config *Config) (*LightDAG, error) {
	// Enforce required config fields.
	if config.DAGParams == nil {
		return nil, errors.New("LightDAG.New DAG parameters nil")
	}
	if config.TimeSource == nil {
		return nil, errors.New("LightDAG.New timesource is nil")
	}

	params := config.DAGParams

	headerCache, err := newHeaderCache(config.CacheBudgetBytes)
	if err != nil {
		return nil, err
	}

	dag := &LightDAG{
		Params:          params,
		databaseContext: config.DatabaseContext,
		timeSource:      config.TimeSource,
		index:           make(map[daghash.Hash]*headerNode),
		tips:            newSet(),
		orphans:         make(map[daghash.Hash]*orphanHeader),
		prevOrphans:     make(map[daghash.Hash][]*orphanHeader),
		headerCache:     headerCache,
	}

	// Genesis is trusted by construction, never verified.
	genesis := newHeaderNode(params.GenesisHeader, nil)
	dag.genesis = genesis
	dag.index[*genesis.hash] = genesis
	dag.tips.add(genesis)
	dag.selectedTip = genesis
	dag.headerCache.Add(params.GenesisHeader)
	dag.headerCache.PinTips(dag.tips.hashes())

	if dag.databaseContext != nil {
		err := dag.restoreDAG()
		if err != nil {
			return nil, err
		}
	}

	log.Infof("DAG state (height %d, selected tip %s, %d tips)",
		dag.selectedTip.height, dag.selectedTip.hash, len(dag.tips))

	return dag, nil
}

// IsInDAG determines whether a header with the given hash exists in the DAG.
//
// This function is safe for concurrent access.
func (dag *LightDAG) IsInDAG(hash *daghash.Hash) bool {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return dag.isInDAGNoLock(hash)
}

// HeaderByHash returns the header with the given hash. The header cache is
// consulted first, then the database.
//
// This function is safe for concurrent access.
func (dag *LightDAG) HeaderByHash(hash *daghash.Hash) (*wire.BlockHeader, error) {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()

	node, ok := dag.index[*hash]
	if !ok {
		return nil, errors.Errorf("header %s is not in the DAG", hash)
	}

	if header, ok := dag.headerCache.Get(hash); ok {
		return header, nil
	}

	if dag.databaseContext != nil {
		header, err := dag.fetchHeader(hash)
		if err != nil {
			return nil, err
		}
		dag.headerCache.Add(header)
		return header, nil
	}

	// Reconstructed headers lack the producer signature, which nodes do
	// not retain. This only happens when running without a database and
	// the header has aged out of the cache.
	return node.Header(), nil
}

// HeaderHeight returns the height of the header with the given hash.
//
// This function is safe for concurrent access.
func (dag *LightDAG) HeaderHeight(hash *daghash.Hash) (uint64, error) {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()

	node, ok := dag.index[*hash]
	if !ok {
		return 0, errors.Errorf("header %s is not in the DAG", hash)
	}
	return node.height, nil
}

// HeaderCount returns the number of accepted headers, genesis included.
//
// This function is safe for concurrent access.
func (dag *LightDAG) HeaderCount() int {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return len(dag.index)
}

// State returns a consistent snapshot of the DAG synchronization state.
//
// This function is safe for concurrent access.
func (dag *LightDAG) State() *State {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()

	return &State{
		TipHashes:       dag.tips.hashes(),
		SelectedTipHash: dag.selectedTip.hash,
		SelectedHeight:  dag.selectedTip.height,
		HeaderCount:     len(dag.index),
		CumulativeWork:  new(big.Int).Set(dag.selectedTip.workSum),
		LastHeaderTime:  time.Unix(0, dag.selectedTip.timestamp*int64(time.Millisecond)),
	}
}

// State is a point-in-time snapshot of the DAG that callers outside the
// package can hold without locks.
type State struct {
	TipHashes       []*daghash.Hash
	SelectedTipHash *daghash.Hash
	SelectedHeight  uint64
	HeaderCount     int

	// CumulativeWork is the total proof of work accumulated along the
	// selected chain, a proxy for the network difficulty.
	CumulativeWork *big.Int

	// LastHeaderTime is the timestamp of the selected tip.
	LastHeaderTime time.Time
}
