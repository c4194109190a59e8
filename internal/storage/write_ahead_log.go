package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"durakv/internal/common"
	"durakv/internal/logger"
	"durakv/internal/metrics"
)

// maximumRecordSizeInBytes bounds a declared record length during replay.
// Sized to the largest record Append can legally produce so that a
// max-size value written before a crash is still recoverable.
const maximumRecordSizeInBytes = RecordHeaderSizeInBytes + common.MaximumKeySizeInBytes + common.MaximumValueSizeInBytes

// DiskWAL is an append-only record log over a directory of timestamp-named
// files. All methods are serialized by the internal mutex; the order of
// records on disk equals the order of successful Append returns.
type DiskWAL struct {
	mutex             sync.Mutex
	directoryPath     string
	currentFile       *os.File
	currentFilePath   string
	lastFileTimestamp int64
	totalRecordCount  int64
	totalByteCount    int64
}

// NewDiskWAL creates the log directory if needed and opens a fresh
// timestamp-named log file for appends. Files from earlier runs are left
// in place and picked up by ReadAll.
func NewDiskWAL(directoryPath string) (*DiskWAL, error) {
	if err := os.MkdirAll(directoryPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create wal directory: %w", err)
	}

	wal := &DiskWAL{directoryPath: directoryPath}
	if err := wal.openNewLogFileInternal(); err != nil {
		return nil, err
	}

	logger.LogInfoEvent("WAL initialized in directory: %s", directoryPath)
	return wal, nil
}

// Append serializes the record, assigns a timestamp when zero, writes the
// length-prefixed bytes and syncs so the record is durable before return.
func (w *DiskWAL) Append(record *common.Record) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if record.TimestampMilliseconds == 0 {
		record.TimestampMilliseconds = uint64(time.Now().UnixMilli())
	}

	encoded := EncodeRecord(record)
	if err := w.writeFrameInternal(encoded); err != nil {
		return err
	}

	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync wal: %w", err)
	}

	w.totalRecordCount++
	w.totalByteCount += int64(len(encoded))
	metrics.RecordWalAppend(len(encoded) + 4)
	return nil
}

func (w *DiskWAL) writeFrameInternal(encoded []byte) error {
	var lengthPrefix [4]byte
	binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(len(encoded)))

	if _, err := w.currentFile.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("failed to write wal record length: %w", err)
	}
	if _, err := w.currentFile.Write(encoded); err != nil {
		return fmt.Errorf("failed to write wal record: %w", err)
	}
	return nil
}

// ReadAll returns every record in append order across all log files in the
// directory, oldest file first. The scan stops without error at the first
// short or malformed record so a crash-torn tail is tolerated.
func (w *DiskWAL) ReadAll() ([]common.Record, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	filePaths, err := w.sortedLogFilePathsInternal()
	if err != nil {
		return nil, err
	}

	records := make([]common.Record, 0)
	for _, filePath := range filePaths {
		fileRecords, clean := readRecordsFromFile(filePath)
		records = append(records, fileRecords...)
		if !clean {
			// A torn or corrupt record ends the logical stream.
			break
		}
	}
	return records, nil
}

func (w *DiskWAL) sortedLogFilePathsInternal() ([]string, error) {
	entries, err := os.ReadDir(w.directoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list wal directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "wal_") && strings.HasSuffix(name, ".log") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(w.directoryPath, name)
	}
	return paths, nil
}

// readRecordsFromFile reads length-prefixed records until EOF or the first
// record that is short, oversized or undecodable. The second return value
// reports whether the file ended cleanly.
func readRecordsFromFile(filePath string) ([]common.Record, bool) {
	file, err := os.Open(filePath)
	if err != nil {
		logger.LogErrorEvent("Failed to open WAL file for reading: %s (%v)", filePath, err)
		return nil, false
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	records := make([]common.Record, 0)
	var lengthPrefix [4]byte

	for {
		if _, err := io.ReadFull(reader, lengthPrefix[:]); err != nil {
			return records, err == io.EOF
		}

		recordLength := binary.LittleEndian.Uint32(lengthPrefix[:])
		if recordLength > maximumRecordSizeInBytes {
			logger.LogErrorEvent("WAL record too large: %d bytes in %s", recordLength, filePath)
			return records, false
		}

		encoded := make([]byte, recordLength)
		if _, err := io.ReadFull(reader, encoded); err != nil {
			logger.LogDebugEvent("Torn WAL record tail in %s, stopping replay", filePath)
			return records, false
		}

		record, err := DecodeRecord(encoded)
		if err != nil {
			logger.LogErrorEvent("Failed to decode WAL record in %s: %v", filePath, err)
			return records, false
		}
		records = append(records, *record)
	}
}

// CreateCheckpoint appends a CHECKPOINT record carrying the label in its
// key field and syncs.
func (w *DiskWAL) CreateCheckpoint(label string) error {
	err := w.Append(&common.Record{
		Type: common.RecordTypeCheckpoint,
		Key:  []byte(label),
	})
	if err != nil {
		return err
	}
	logger.LogInfoEvent("Checkpoint created: %s", label)
	return nil
}

// RecoverFromCheckpoint returns the replayable records logically rooted at
// the last CHECKPOINT matching label, or the full stream when no such
// checkpoint exists. CHECKPOINT records themselves are never returned.
func (w *DiskWAL) RecoverFromCheckpoint(label string) ([]common.Record, error) {
	records, err := w.ReadAll()
	if err != nil {
		return nil, err
	}

	start := 0
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Type == common.RecordTypeCheckpoint && string(records[i].Key) == label {
			logger.LogInfoEvent("Recovering from checkpoint: %s", label)
			start = i + 1
			break
		}
	}

	replayable := make([]common.Record, 0, len(records)-start)
	for _, record := range records[start:] {
		if record.Type == common.RecordTypeCheckpoint {
			continue
		}
		replayable = append(replayable, record)
	}
	return replayable, nil
}

// Truncate closes the current log file and starts a new timestamp-named
// one, resetting the record and byte counters. Earlier files stay on disk.
func (w *DiskWAL) Truncate() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.currentFile.Close(); err != nil {
		return fmt.Errorf("failed to close wal file: %w", err)
	}
	if err := w.openNewLogFileInternal(); err != nil {
		return err
	}

	w.totalRecordCount = 0
	w.totalByteCount = 0
	logger.LogInfoEvent("WAL truncated, now writing %s", w.currentFilePath)
	return nil
}

// Flush forces OS durability of everything appended so far.
func (w *DiskWAL) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.currentFile == nil {
		return nil
	}
	return w.currentFile.Sync()
}

func (w *DiskWAL) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.currentFile == nil {
		return nil
	}
	err := w.currentFile.Close()
	w.currentFile = nil
	return err
}

// Stats reports the log location and append counters since the last truncate.
func (w *DiskWAL) Stats() map[string]string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return map[string]string{
		"log_directory":    w.directoryPath,
		"current_log_file": w.currentFilePath,
		"total_records":    fmt.Sprint(w.totalRecordCount),
		"total_bytes":      fmt.Sprint(w.totalByteCount),
	}
}

func (w *DiskWAL) openNewLogFileInternal() error {
	timestamp := time.Now().UnixMilli()
	if timestamp <= w.lastFileTimestamp {
		timestamp = w.lastFileTimestamp + 1
	}
	w.lastFileTimestamp = timestamp

	filePath := filepath.Join(w.directoryPath, fmt.Sprintf("wal_%d.log", timestamp))
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open wal file %s: %w", filePath, err)
	}

	w.currentFile = file
	w.currentFilePath = filePath
	return nil
}
