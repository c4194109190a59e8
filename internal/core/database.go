package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"durakv/internal/common"
	"durakv/internal/logger"
	"durakv/internal/metrics"
	"durakv/internal/storage"
)

// DatabaseEngine owns the in-memory store, the reader/writer mutex guarding
// it, and the write-ahead log. It is the transaction factory: every request
// path mutation goes through a transaction handle bound to these three.
type DatabaseEngine struct {
	mutex             sync.RWMutex
	store             common.KeyValueStore
	wal               common.WriteAheadLog
	dataDirectoryPath string
	initialized       atomic.Bool
	nextTransactionID atomic.Uint64
}

func NewDatabaseEngine() *DatabaseEngine {
	return &DatabaseEngine{}
}

// Initialize creates the data and WAL directories, opens the log and
// rebuilds the in-memory store by replaying every surviving record in
// append order. The engine accepts transactions only after this returns.
func (engine *DatabaseEngine) Initialize(dataDirectoryPath string) error {
	if err := os.MkdirAll(dataDirectoryPath, 0755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %v", ErrSystem, err)
	}

	wal, err := storage.NewDiskWAL(filepath.Join(dataDirectoryPath, "wal"))
	if err != nil {
		return fmt.Errorf("%w: failed to open wal: %v", ErrSystem, err)
	}

	engine.dataDirectoryPath = dataDirectoryPath
	engine.wal = wal
	engine.store = storage.NewMemoryTable(1024)

	if err := engine.recoverFromWalInternal(); err != nil {
		return fmt.Errorf("%w: recovery failed: %v", ErrSystem, err)
	}

	engine.initialized.Store(true)
	logger.LogInfoEvent("Database initialized with data directory: %s", dataDirectoryPath)
	return nil
}

func (engine *DatabaseEngine) recoverFromWalInternal() error {
	records, err := engine.wal.ReadAll()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		logger.LogInfoEvent("No WAL records found, starting fresh")
		return nil
	}

	logger.LogInfoEvent("Recovering %d records from WAL...", len(records))
	for i := range records {
		record := &records[i]
		switch record.Type {
		case common.RecordTypePut:
			engine.store.Put(string(record.Key), record.Value)
		case common.RecordTypeDelete:
			engine.store.Delete(string(record.Key))
		case common.RecordTypeCommit, common.RecordTypeCheckpoint:
			// No state to rebuild.
		}
	}

	metrics.KeysStored.Set(float64(engine.store.Count()))
	logger.LogInfoEvent("Recovery completed. Loaded %d key-value pairs", engine.store.Count())
	return nil
}

// Shutdown writes a checkpoint record labelled with the checkpoint marker
// path, flushes and closes the log. The engine refuses transactions
// afterwards.
func (engine *DatabaseEngine) Shutdown() {
	if !engine.initialized.CompareAndSwap(true, false) {
		return
	}

	checkpointLabel := filepath.Join(engine.dataDirectoryPath, "checkpoint.db")
	if err := engine.wal.CreateCheckpoint(checkpointLabel); err != nil {
		logger.LogErrorEvent("Shutdown checkpoint failed: %v", err)
	}
	if err := engine.wal.Flush(); err != nil {
		logger.LogErrorEvent("Shutdown flush failed: %v", err)
	}
	if err := engine.wal.Close(); err != nil {
		logger.LogErrorEvent("Shutdown close failed: %v", err)
	}
	logger.LogInfoEvent("Database shut down")
}

// BeginTransaction returns a new transaction bound to the store, its lock
// and the WAL, or nil when the engine is not initialized. Transaction ids
// are strictly increasing; zero is reserved.
func (engine *DatabaseEngine) BeginTransaction() *Transaction {
	if !engine.initialized.Load() {
		return nil
	}

	id := engine.nextTransactionID.Add(1)
	return newTransaction(id, engine.store, &engine.mutex, engine.wal)
}

// Stats returns diagnostic strings: key count, data directory, initialized
// flag, next transaction id and the WAL statistics under a wal_ prefix.
func (engine *DatabaseEngine) Stats() map[string]string {
	engine.mutex.RLock()
	totalKeys := int64(0)
	if engine.store != nil {
		totalKeys = engine.store.Count()
	}
	engine.mutex.RUnlock()

	stats := map[string]string{
		"total_keys":          fmt.Sprint(totalKeys),
		"data_directory":      engine.dataDirectoryPath,
		"initialized":         fmt.Sprint(engine.initialized.Load()),
		"next_transaction_id": fmt.Sprint(engine.nextTransactionID.Load() + 1),
	}

	if engine.wal != nil {
		for key, value := range engine.wal.Stats() {
			stats["wal_"+key] = value
		}
	}
	return stats
}

// Compact rotates the WAL to a fresh file. In-memory data is untouched;
// earlier log files stay on disk.
func (engine *DatabaseEngine) Compact() error {
	if !engine.initialized.Load() {
		return ErrSystem
	}
	return engine.wal.Truncate()
}

// Backup appends a checkpoint record labelled with the backup path.
func (engine *DatabaseEngine) Backup(backupPath string) error {
	if !engine.initialized.Load() {
		return ErrSystem
	}
	return engine.wal.CreateCheckpoint(backupPath)
}

// Restore resolves the record stream rooted at the named checkpoint. The
// in-memory store is left untouched; the operation reports what a recovery
// rooted there would replay.
func (engine *DatabaseEngine) Restore(backupPath string) error {
	if !engine.initialized.Load() {
		return ErrSystem
	}

	records, err := engine.wal.RecoverFromCheckpoint(backupPath)
	if err != nil {
		return err
	}
	logger.LogInfoEvent("Restore point %s roots %d replayable records", backupPath, len(records))
	return nil
}
