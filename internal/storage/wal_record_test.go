package storage

import (
	"bytes"
	"testing"

	"durakv/internal/common"
)

func TestRecordRoundTrip(t *testing.T) {
	original := &common.Record{
		Type:                  common.RecordTypePut,
		TimestampMilliseconds: 1700000000123,
		TransactionID:         42,
		Key:                   []byte("user:1"),
		Value:                 []byte("Alice"),
	}

	decoded, err := DecodeRecord(EncodeRecord(original))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Type != original.Type {
		t.Error("Type mismatch")
	}
	if decoded.TimestampMilliseconds != original.TimestampMilliseconds {
		t.Error("Timestamp not preserved byte-exact")
	}
	if decoded.TransactionID != original.TransactionID {
		t.Error("Transaction id mismatch")
	}
	if !bytes.Equal(decoded.Key, original.Key) || !bytes.Equal(decoded.Value, original.Value) {
		t.Error("Payload mismatch")
	}
}

func TestRecordRoundTripEmptyPayloads(t *testing.T) {
	original := &common.Record{Type: common.RecordTypeCommit, TransactionID: 7}

	decoded, err := DecodeRecord(EncodeRecord(original))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.Key) != 0 || len(decoded.Value) != 0 {
		t.Error("Expected empty payloads")
	}
}

func TestDecodeRecordShortBuffer(t *testing.T) {
	if _, err := DecodeRecord(make([]byte, RecordHeaderSizeInBytes-1)); err == nil {
		t.Error("Expected error for short buffer")
	}
}

func TestDecodeRecordTruncatedPayload(t *testing.T) {
	encoded := EncodeRecord(&common.Record{
		Type:  common.RecordTypePut,
		Key:   []byte("key"),
		Value: []byte("value"),
	})

	if _, err := DecodeRecord(encoded[:len(encoded)-2]); err == nil {
		t.Error("Expected error for truncated payload")
	}
}
