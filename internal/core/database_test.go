package core

import (
	"errors"
	"path/filepath"
	"testing"

	"durakv/internal/common"
	"durakv/internal/storage"
)

func TestBeginTransactionBeforeInitialize(t *testing.T) {
	engine := NewDatabaseEngine()
	if engine.BeginTransaction() != nil {
		t.Error("Expected nil transaction from uninitialized engine")
	}
}

func TestRecoveryReplaysLogOrder(t *testing.T) {
	dir := t.TempDir()

	engine := NewDatabaseEngine()
	if err := engine.Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	txn := engine.BeginTransaction()
	txn.Put("a", []byte("1"))
	txn.Put("b", []byte("2"))
	txn.Put("a", []byte("3"))
	txn.Delete("b")
	txn.Commit()
	engine.Shutdown()

	recovered := NewDatabaseEngine()
	if err := recovered.Initialize(dir); err != nil {
		t.Fatalf("Recovery initialize failed: %v", err)
	}
	defer recovered.Shutdown()

	reader := recovered.BeginTransaction()
	value, err := reader.Get("a")
	if err != nil || string(value) != "3" {
		t.Errorf(`Expected "3" for key a, got %q, %v`, value, err)
	}
	if _, err := reader.Get("b"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Expected key b gone after recovery, got %v", err)
	}
}

func TestRecoveryAfterAbruptStop(t *testing.T) {
	dir := t.TempDir()

	engine := NewDatabaseEngine()
	engine.Initialize(dir)
	txn := engine.BeginTransaction()
	txn.Put("k", []byte("v"))
	// No commit, no shutdown: the process just dies.

	recovered := NewDatabaseEngine()
	if err := recovered.Initialize(dir); err != nil {
		t.Fatalf("Recovery initialize failed: %v", err)
	}
	defer recovered.Shutdown()

	reader := recovered.BeginTransaction()
	value, err := reader.Get("k")
	if err != nil || string(value) != "v" {
		t.Errorf("Durably flushed write lost: %q, %v", value, err)
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	engine := NewDatabaseEngine()
	engine.Initialize(dir)
	defer engine.Shutdown()

	txn := engine.BeginTransaction()
	txn.Put("a", []byte("1"))
	txn.Put("b", []byte("2"))

	stats := engine.Stats()
	if stats["total_keys"] != "2" {
		t.Errorf("total_keys = %q", stats["total_keys"])
	}
	if stats["data_directory"] != dir {
		t.Errorf("data_directory = %q", stats["data_directory"])
	}
	if stats["initialized"] != "true" {
		t.Errorf("initialized = %q", stats["initialized"])
	}
	if stats["next_transaction_id"] != "2" {
		t.Errorf("next_transaction_id = %q", stats["next_transaction_id"])
	}
	if stats["wal_log_directory"] == "" || stats["wal_total_records"] == "" {
		t.Errorf("WAL stats missing: %v", stats)
	}
}

func TestCompactRotatesWal(t *testing.T) {
	engine := NewDatabaseEngine()
	engine.Initialize(t.TempDir())
	defer engine.Shutdown()

	txn := engine.BeginTransaction()
	txn.Put("k", []byte("v"))

	before := engine.Stats()["wal_current_log_file"]
	if err := engine.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	after := engine.Stats()["wal_current_log_file"]

	if before == after {
		t.Error("Compact did not rotate the WAL")
	}
	if engine.Stats()["wal_total_records"] != "0" {
		t.Error("Compact did not reset WAL counters")
	}

	// In-memory data is untouched by compaction.
	reader := engine.BeginTransaction()
	if _, err := reader.Get("k"); err != nil {
		t.Errorf("Key lost after compact: %v", err)
	}
}

func TestShutdownWritesCheckpointMarker(t *testing.T) {
	dir := t.TempDir()
	engine := NewDatabaseEngine()
	engine.Initialize(dir)
	engine.Shutdown()

	wal, err := storage.NewDiskWAL(filepath.Join(dir, "wal"))
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer wal.Close()

	records, _ := wal.ReadAll()
	found := false
	for _, record := range records {
		if record.Type == common.RecordTypeCheckpoint && string(record.Key) == filepath.Join(dir, "checkpoint.db") {
			found = true
		}
	}
	if !found {
		t.Error("Shutdown checkpoint record not found")
	}
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	engine := NewDatabaseEngine()
	engine.Initialize(dir)
	defer engine.Shutdown()

	txn := engine.BeginTransaction()
	txn.Put("k", []byte("v"))

	backupPath := filepath.Join(dir, "backup-1")
	if err := engine.Backup(backupPath); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if err := engine.Restore(backupPath); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
}

func TestOperationsAfterShutdownFail(t *testing.T) {
	engine := NewDatabaseEngine()
	engine.Initialize(t.TempDir())
	engine.Shutdown()

	if engine.BeginTransaction() != nil {
		t.Error("BeginTransaction succeeded after shutdown")
	}
	if err := engine.Compact(); !errors.Is(err, ErrSystem) {
		t.Errorf("Compact after shutdown returned %v", err)
	}
}
