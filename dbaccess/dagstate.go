package dbaccess

import (
	"github.com/dagnet/lightd/database"
)

var dagStateKey = database.MakeBucket().Key([]byte("dag-state"))

// StoreDAGState stores the serialized DAG state (the tip set and the
// selected tip) in the database.
func StoreDAGState(context Context, dagState []byte) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	return accessor.Put(dagStateKey, dagState)
}

// FetchDAGState retrieves the serialized DAG state from the database.
// Returns ErrNotFound if the state is missing from the database.
func FetchDAGState(context Context) ([]byte, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	return accessor.Get(dagStateKey)
}
