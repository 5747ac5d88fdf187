package lightdag

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/dagnet/lightd/database"
	"github.com/dagnet/lightd/dbaccess"
	"github.com/dagnet/lightd/util/daghash"
	"github.com/dagnet/lightd/wire"
)

// storeHeader persists a newly accepted header.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) storeHeader(header *wire.BlockHeader) error {
	buffer := &bytes.Buffer{}
	err := header.Serialize(buffer)
	if err != nil {
		return err
	}

	hash := header.BlockHash()
	return dbaccess.StoreHeader(dag.databaseContext.NoTx(), &hash, buffer.Bytes())
}

// fetchHeader loads a single header from the database.
func (dag *LightDAG) fetchHeader(hash *daghash.Hash) (*wire.BlockHeader, error) {
	headerBytes, err := dbaccess.FetchHeader(dag.databaseContext.NoTx(), hash)
	if err != nil {
		return nil, err
	}

	header := &wire.BlockHeader{}
	err = header.Deserialize(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, err
	}
	return header, nil
}

// serializeDAGState serializes the tip hashes and the selected tip hash.
func serializeDAGState(tipHashes []*daghash.Hash, selectedTip *daghash.Hash) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := wire.WriteElement(buffer, selectedTip)
	if err != nil {
		return nil, err
	}
	err = wire.WriteVarInt(buffer, uint64(len(tipHashes)))
	if err != nil {
		return nil, err
	}
	for _, hash := range tipHashes {
		err = wire.WriteElement(buffer, hash)
		if err != nil {
			return nil, err
		}
	}
	return buffer.Bytes(), nil
}

// deserializeDAGState is the inverse of serializeDAGState.
func deserializeDAGState(stateBytes []byte) (tipHashes []*daghash.Hash, selectedTip *daghash.Hash, err error) {
	reader := bytes.NewReader(stateBytes)
	selectedTip = &daghash.Hash{}
	err = wire.ReadElement(reader, selectedTip)
	if err != nil {
		return nil, nil, err
	}
	count, err := wire.ReadVarInt(reader)
	if err != nil {
		return nil, nil, err
	}
	tipHashes = make([]*daghash.Hash, 0, count)
	for i := uint64(0); i < count; i++ {
		hash := &daghash.Hash{}
		err = wire.ReadElement(reader, hash)
		if err != nil {
			return nil, nil, err
		}
		tipHashes = append(tipHashes, hash)
	}
	return tipHashes, selectedTip, nil
}

// saveState persists the current tip set and selected tip.
//
// This function MUST be called with the DAG state lock held (for writes).
func (dag *LightDAG) saveState() error {
	stateBytes, err := serializeDAGState(dag.tips.hashes(), dag.selectedTip.hash)
	if err != nil {
		return err
	}
	return dbaccess.StoreDAGState(dag.databaseContext.NoTx(), stateBytes)
}

// restoreDAG replays previously persisted headers into the in-memory DAG.
// Headers are reinserted in height order so every parent is processed before
// its children. Each header passes the full verification pipeline again,
// which keeps a tampered database from resurrecting invalid state.
func (dag *LightDAG) restoreDAG() error {
	cursor, err := dbaccess.HeadersCursor(dag.databaseContext.NoTx())
	if err != nil {
		return err
	}
	defer cursor.Close()

	var headers []*wire.BlockHeader
	for ok := cursor.First(); ok; ok = cursor.Next() {
		headerBytes, err := cursor.Value()
		if err != nil {
			return err
		}
		header := &wire.BlockHeader{}
		err = header.Deserialize(bytes.NewReader(headerBytes))
		if err != nil {
			return err
		}
		headers = append(headers, header)
	}

	sort.Slice(headers, func(i, j int) bool {
		return headers[i].Height < headers[j].Height
	})

	for _, header := range headers {
		isOrphan, err := dag.processHeaderNoLock(header, BFIsSync)
		if err != nil {
			var ruleErr RuleError
			if errors.As(err, &ruleErr) {
				// Stale forks and duplicates in the stored set
				// are dropped rather than failing the restore.
				log.Warnf("Skipping stored header %s during restore: %s",
					header.BlockHash(), err)
				continue
			}
			return err
		}
		if isOrphan {
			log.Warnf("Stored header %s is an orphan after restore",
				header.BlockHash())
		}
	}

	// Cross-check the replayed state against the persisted one. A
	// mismatch means the header store and the state record went out of
	// sync, which replaying has just repaired.
	stateBytes, err := dbaccess.FetchDAGState(dag.databaseContext.NoTx())
	if database.IsNotFoundError(err) {
		log.Debugf("Restored %d headers from the database", len(headers))
		return nil
	}
	if err != nil {
		return err
	}
	_, storedSelectedTip, err := deserializeDAGState(stateBytes)
	if err != nil {
		return err
	}
	if !storedSelectedTip.IsEqual(dag.selectedTip.hash) {
		log.Warnf("Stored selected tip %s does not match replayed selected "+
			"tip %s. Resaving state", storedSelectedTip, dag.selectedTip.hash)
		err := dag.saveState()
		if err != nil {
			return err
		}
	}

	log.Debugf("Restored %d headers from the database", len(headers))
	return nil
}
