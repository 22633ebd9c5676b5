package storage

// Tx is the transaction handle the service drives. The conflict check and
// the writes it guards must happen on the same transaction.
type Tx interface {
	Commit() error
	Rollback() error
}
