package storage

import (
	"encoding/binary"
	"fmt"

	"durakv/internal/common"
)

// RecordHeaderSizeInBytes is the fixed portion of a serialized record:
// type(1) + timestamp(8) + transaction_id(8) + key_length(4) + value_length(4).
const RecordHeaderSizeInBytes = 25

// EncodeRecord serializes a record. Lengths are always taken from the
// payload slices, all integers little-endian.
func EncodeRecord(record *common.Record) []byte {
	buffer := make([]byte, RecordHeaderSizeInBytes+len(record.Key)+len(record.Value))
	offset := 0

	buffer[offset] = byte(record.Type)
	offset++

	binary.LittleEndian.PutUint64(buffer[offset:], record.TimestampMilliseconds)
	offset += 8

	binary.LittleEndian.PutUint64(buffer[offset:], record.TransactionID)
	offset += 8

	binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(record.Key)))
	offset += 4

	binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(record.Value)))
	offset += 4

	copy(buffer[offset:], record.Key)
	offset += len(record.Key)

	copy(buffer[offset:], record.Value)

	return buffer
}

// DecodeRecord parses a serialized record, timestamp preserved byte-exact.
func DecodeRecord(data []byte) (*common.Record, error) {
	if len(data) < RecordHeaderSizeInBytes {
		return nil, fmt.Errorf("wal record of %d bytes is shorter than the %d byte header", len(data), RecordHeaderSizeInBytes)
	}

	record := &common.Record{}
	offset := 0

	record.Type = common.RecordType(data[offset])
	offset++

	record.TimestampMilliseconds = binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	record.TransactionID = binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	keyLength := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	valueLength := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if uint64(len(data)) < uint64(offset)+uint64(keyLength)+uint64(valueLength) {
		return nil, fmt.Errorf("wal record payload truncated: header declares %d key and %d value bytes", keyLength, valueLength)
	}

	record.Key = make([]byte, keyLength)
	copy(record.Key, data[offset:offset+int(keyLength)])
	offset += int(keyLength)

	record.Value = make([]byte, valueLength)
	copy(record.Value, data[offset:offset+int(valueLength)])

	return record, nil
}
