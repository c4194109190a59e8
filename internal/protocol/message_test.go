package protocol

import (
	"encoding/binary"
	"testing"

	"durakv/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	original := &Message{
		Type:  MessageTypePut,
		ID:    42,
		Key:   []byte("user:1"),
		Value: []byte("Alice"),
	}

	decoded, err := DecodeMessage(EncodeMessage(original))
	require.NoError(t, err)
	assert.Equal(t, original.Type, decoded.Type)
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.Key, decoded.Key)
	assert.Equal(t, original.Value, decoded.Value)
}

func TestMessageRoundTripEmptyPayloads(t *testing.T) {
	original := &Message{Type: MessageTypePing, ID: 1}

	decoded, err := DecodeMessage(EncodeMessage(original))
	require.NoError(t, err)
	assert.Equal(t, MessageTypePing, decoded.Type)
	assert.Empty(t, decoded.Key)
	assert.Empty(t, decoded.Value)
}

func TestDecodeShortBufferFails(t *testing.T) {
	_, err := DecodeMessage(make([]byte, MessageHeaderSizeInBytes-1))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeDeclaredPayloadBeyondBufferFails(t *testing.T) {
	encoded := EncodeMessage(&Message{Type: MessageTypeGet, ID: 7, Key: []byte("k")})
	// Claim a longer key than the buffer carries.
	binary.LittleEndian.PutUint32(encoded[5:], 100)

	_, err := DecodeMessage(encoded)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeOversizedKeyFails(t *testing.T) {
	encoded := EncodeMessage(&Message{Type: MessageTypeGet, ID: 7})
	binary.LittleEndian.PutUint32(encoded[5:], common.MaximumKeySizeInBytes+1)

	_, err := DecodeMessage(encoded)
	assert.ErrorIs(t, err, ErrOversizedField)
}

func TestDecodeOversizedValueFails(t *testing.T) {
	encoded := EncodeMessage(&Message{Type: MessageTypePut, ID: 7})
	binary.LittleEndian.PutUint32(encoded[9:], common.MaximumValueSizeInBytes+1)

	_, err := DecodeMessage(encoded)
	assert.ErrorIs(t, err, ErrOversizedField)
}

func TestDecodeUnknownTypePasses(t *testing.T) {
	// Unknown message types decode as-is; dispatch rejects them later.
	encoded := EncodeMessage(&Message{Type: MessageType(99), ID: 3})

	decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	assert.Equal(t, MessageType(99), decoded.Type)
}

func TestEncodingIsLittleEndian(t *testing.T) {
	encoded := EncodeMessage(&Message{Type: MessageTypeGet, ID: 0x01020304, Key: []byte("k")})

	assert.Equal(t, byte(MessageTypeGet), encoded[0])
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, encoded[1:5])
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, encoded[5:9])
}

func TestAppendEncodedMessageMatchesEncode(t *testing.T) {
	message := &Message{Type: MessageTypeSuccess, ID: 9, Key: []byte("a"), Value: []byte("b")}

	appended := AppendEncodedMessage(nil, message)
	assert.Equal(t, EncodeMessage(message), appended)
}
