package core

import (
	"fmt"
	"sync"
	"sync/atomic"

	"durakv/internal/common"
	"durakv/internal/logger"
	"durakv/internal/metrics"
)

// TransactionState tracks the transaction lifecycle. Committed and
// RolledBack are absorbing; a terminated handle refuses every operation.
type TransactionState int32

const (
	TransactionStateActive TransactionState = iota
	TransactionStateCommitted
	TransactionStateRolledBack
)

func (s TransactionState) String() string {
	switch s {
	case TransactionStateActive:
		return "active"
	case TransactionStateCommitted:
		return "committed"
	case TransactionStateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// DefaultScanResultLimit caps scan results when the caller passes no limit.
const DefaultScanResultLimit = 1000

// Transaction mutates the shared store through the write-ahead log. It
// holds non-owning references to the engine's map, the reader/writer mutex
// guarding it, and the WAL. Writes are logged and durably flushed before
// the in-memory mutation becomes visible.
type Transaction struct {
	id    uint64
	store common.KeyValueStore
	mutex *sync.RWMutex
	wal   common.WriteAheadLog
	state atomic.Int32
}

func newTransaction(id uint64, store common.KeyValueStore, mutex *sync.RWMutex, wal common.WriteAheadLog) *Transaction {
	return &Transaction{
		id:    id,
		store: store,
		mutex: mutex,
		wal:   wal,
	}
}

func (t *Transaction) ID() uint64 {
	return t.id
}

func (t *Transaction) State() TransactionState {
	return TransactionState(t.state.Load())
}

func (t *Transaction) ensureActive() error {
	if TransactionState(t.state.Load()) != TransactionStateActive {
		return ErrInvalidTransaction
	}
	return nil
}

// Get returns the stored value. Reads take the shared lock and are never
// logged.
func (t *Transaction) Get(key string) ([]byte, error) {
	if err := t.ensureActive(); err != nil {
		return nil, err
	}

	t.mutex.RLock()
	defer t.mutex.RUnlock()

	value, ok := t.store.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Put logs a PUT record and, only if the append was durably flushed,
// applies the mutation to the store.
func (t *Transaction) Put(key string, value []byte) error {
	if err := t.ensureActive(); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	record := &common.Record{
		Type:          common.RecordTypePut,
		TransactionID: t.id,
		Key:           []byte(key),
		Value:         value,
	}
	if err := t.wal.Append(record); err != nil {
		return fmt.Errorf("%w: wal append failed: %v", ErrSystem, err)
	}

	t.store.Put(key, value)
	metrics.KeysStored.Set(float64(t.store.Count()))
	return nil
}

// Delete removes the key. An absent key returns ErrKeyNotFound without
// touching the log.
func (t *Transaction) Delete(key string) error {
	if err := t.ensureActive(); err != nil {
		return err
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, exists := t.store.Get(key); !exists {
		return ErrKeyNotFound
	}

	record := &common.Record{
		Type:          common.RecordTypeDelete,
		TransactionID: t.id,
		Key:           []byte(key),
	}
	if err := t.wal.Append(record); err != nil {
		return fmt.Errorf("%w: wal append failed: %v", ErrSystem, err)
	}

	t.store.Delete(key)
	metrics.KeysStored.Set(float64(t.store.Count()))
	return nil
}

// Scan returns pairs with startKey <= key < endKey under the shared lock.
// A non-positive limit falls back to DefaultScanResultLimit. The store is
// unordered and so are the results.
func (t *Transaction) Scan(startKey, endKey string, limit int) ([]common.KeyValuePair, error) {
	if err := t.ensureActive(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultScanResultLimit
	}

	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.store.Scan(startKey, endKey, limit), nil
}

// Commit logs a COMMIT record and moves the transaction to Committed. On a
// WAL failure the state stays Active so the caller may retry or roll back.
func (t *Transaction) Commit() error {
	if err := t.ensureActive(); err != nil {
		return err
	}

	record := &common.Record{
		Type:          common.RecordTypeCommit,
		TransactionID: t.id,
	}
	if err := t.wal.Append(record); err != nil {
		return fmt.Errorf("%w: wal append failed: %v", ErrSystem, err)
	}

	t.state.CompareAndSwap(int32(TransactionStateActive), int32(TransactionStateCommitted))
	return nil
}

// Rollback moves the transaction to RolledBack. Mutations were applied in
// place after their log records, so earlier writes stay visible; the
// transition is observable through State only.
func (t *Transaction) Rollback() error {
	if err := t.ensureActive(); err != nil {
		return err
	}

	t.state.CompareAndSwap(int32(TransactionStateActive), int32(TransactionStateRolledBack))
	logger.LogDebugEvent("Transaction %d rolled back", t.id)
	return nil
}
