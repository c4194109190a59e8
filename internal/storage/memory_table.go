package storage

import (
	"durakv/internal/common"
)

// MemoryTable is the in-memory key-value mapping behind the engine. It
// carries no lock of its own: the engine's reader/writer mutex guards every
// call, so transactions can pair a WAL append with the mutation that
// follows it under one critical section.
type MemoryTable struct {
	data           map[string][]byte
	totalByteCount int64
}

// NewMemoryTable creates a MemoryTable with the given capacity hint.
func NewMemoryTable(capacityHint int) *MemoryTable {
	return &MemoryTable{
		data: make(map[string][]byte, capacityHint),
	}
}

func (mt *MemoryTable) Get(key string) ([]byte, bool) {
	value, ok := mt.data[key]
	return value, ok
}

func (mt *MemoryTable) Put(key string, value []byte) {
	if old, exists := mt.data[key]; exists {
		mt.totalByteCount -= int64(len(key) + len(old))
	}
	mt.data[key] = value
	mt.totalByteCount += int64(len(key) + len(value))
}

// Delete removes the key and reports whether it was present.
func (mt *MemoryTable) Delete(key string) bool {
	old, exists := mt.data[key]
	if !exists {
		return false
	}
	delete(mt.data, key)
	mt.totalByteCount -= int64(len(key) + len(old))
	return true
}

// Scan returns pairs with startKey <= key < endKey, capped at limit. The
// map is unordered, so results come back in no particular order.
func (mt *MemoryTable) Scan(startKey, endKey string, limit int) []common.KeyValuePair {
	results := make([]common.KeyValuePair, 0)
	for key, value := range mt.data {
		if key >= startKey && key < endKey {
			results = append(results, common.KeyValuePair{Key: key, Value: string(value)})
			if len(results) >= limit {
				break
			}
		}
	}
	return results
}

func (mt *MemoryTable) Count() int64 {
	return int64(len(mt.data))
}

// ApproximateBytes returns the summed key and value sizes.
func (mt *MemoryTable) ApproximateBytes() int64 {
	return mt.totalByteCount
}
