package database

// Database defines the interface of a database that can begin
// transactions and close itself.
//
// Important: this is not part of the DataAccessor interface because the
// Transaction interface includes it. Were we to add Begin() to the
// DataAccessor interface, it would be possible to call Begin() from a
// transaction, which is not a valid operation.
type Database interface {
	DataAccessor

	// Begin begins a new database transaction.
	Begin() (Transaction, error)

	// Close closes the database.
	Close() error
}
