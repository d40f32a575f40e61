package common

import "fmt"

// StoreErrType enumerates the failure modes of the storage layers.
type StoreErrType uint32

const (
	// KeyNotFound is returned when a lookup misses.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when a write-once key is written twice.
	KeyAlreadyExists
	// Empty is returned when a collection has nothing to return.
	Empty
)

// StoreErr is the error type shared by the mempool and the decision journal.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr creates a StoreErr for the given data type and key.
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface.
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
