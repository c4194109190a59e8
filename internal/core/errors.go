package core

import "errors"

var (
	// ErrKeyNotFound reports a GET or DELETE against an absent key. Local
	// to the transaction; never fatal.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSystem reports a WAL append or flush failure, or use of an
	// uninitialized engine.
	ErrSystem = errors.New("system error")

	// ErrInvalidTransaction reports an operation on a transaction that has
	// already committed or rolled back.
	ErrInvalidTransaction = errors.New("transaction is no longer active")
)
