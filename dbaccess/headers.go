package dbaccess

import (
	"github.com/dagnet/lightd/database"
	"github.com/dagnet/lightd/util/daghash"
)

var headersBucket = database.MakeBucket([]byte("headers"))

// StoreHeader stores the serialized header under its hash. Storing a header
// the database already has is a no-op, so replays during recovery are safe.
func StoreHeader(context Context, hash *daghash.Hash, headerBytes []byte) error {
	accessor, err := context.accessor()
	if err != nil {
		return err
	}

	key := headersBucket.Key(hash[:])
	return accessor.Put(key, headerBytes)
}

// FetchHeader returns the serialized header stored under the given hash.
// Returns ErrNotFound if the hash is missing from the database.
func FetchHeader(context Context, hash *daghash.Hash) ([]byte, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	key := headersBucket.Key(hash[:])
	return accessor.Get(key)
}

// HasHeader returns whether the header of the given hash has been previously
// stored in the database.
func HasHeader(context Context, hash *daghash.Hash) (bool, error) {
	accessor, err := context.accessor()
	if err != nil {
		return false, err
	}

	key := headersBucket.Key(hash[:])
	return accessor.Has(key)
}

// HeadersCursor opens a cursor over all the headers that have been
// previously stored in the database.
func HeadersCursor(context Context) (database.Cursor, error) {
	accessor, err := context.accessor()
	if err != nil {
		return nil, err
	}

	return accessor.Cursor(headersBucket)
}
