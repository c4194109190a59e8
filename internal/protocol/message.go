package protocol

import (
	"encoding/binary"

	"durakv/internal/common"

	"github.com/pkg/errors"
)

// MessageType identifies a request or response frame.
type MessageType byte

const (
	MessageTypeGet     MessageType = 1
	MessageTypePut     MessageType = 2
	MessageTypeDelete  MessageType = 3
	MessageTypeScan    MessageType = 4
	MessageTypePing    MessageType = 5
	MessageTypePong    MessageType = 6
	MessageTypeError   MessageType = 7
	MessageTypeSuccess MessageType = 8
)

// MessageHeaderSizeInBytes is the fixed portion of a frame body:
// type(1) + id(4) + key_length(4) + value_length(4).
const MessageHeaderSizeInBytes = 13

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrOversizedField = errors.New("oversized field")
)

// Message is one protocol frame. On the wire it is preceded by a 4-byte
// little-endian length of the encoded body. Responses reuse the request ID.
type Message struct {
	Type  MessageType
	ID    uint32
	Key   []byte
	Value []byte
}

// EncodedSize returns the body length the frame will occupy once encoded.
func (m *Message) EncodedSize() int {
	return MessageHeaderSizeInBytes + len(m.Key) + len(m.Value)
}

// EncodeMessage serializes the message body. Key and value lengths are
// always taken from the payload slices.
func EncodeMessage(message *Message) []byte {
	buffer := make([]byte, message.EncodedSize())
	offset := 0

	buffer[offset] = byte(message.Type)
	offset++

	binary.LittleEndian.PutUint32(buffer[offset:], message.ID)
	offset += 4

	binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(message.Key)))
	offset += 4

	binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(message.Value)))
	offset += 4

	copy(buffer[offset:], message.Key)
	offset += len(message.Key)

	copy(buffer[offset:], message.Value)

	return buffer
}

// AppendEncodedMessage appends the encoded body to dst and returns the
// extended slice. Used by the server write path to reuse pooled buffers.
func AppendEncodedMessage(dst []byte, message *Message) []byte {
	var header [MessageHeaderSizeInBytes]byte
	header[0] = byte(message.Type)
	binary.LittleEndian.PutUint32(header[1:], message.ID)
	binary.LittleEndian.PutUint32(header[5:], uint32(len(message.Key)))
	binary.LittleEndian.PutUint32(header[9:], uint32(len(message.Value)))

	dst = append(dst, header[:]...)
	dst = append(dst, message.Key...)
	dst = append(dst, message.Value...)
	return dst
}

// DecodeMessage parses a frame body. Type values outside the enumerated set
// are returned as-is; dispatch rejects them.
func DecodeMessage(data []byte) (*Message, error) {
	if len(data) < MessageHeaderSizeInBytes {
		return nil, errors.Wrapf(ErrMalformedFrame, "body of %d bytes is shorter than the %d byte header", len(data), MessageHeaderSizeInBytes)
	}

	message := &Message{}
	offset := 0

	message.Type = MessageType(data[offset])
	offset++

	message.ID = binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	keyLength := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	valueLength := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	if keyLength > common.MaximumKeySizeInBytes {
		return nil, errors.Wrapf(ErrOversizedField, "key length %d exceeds %d", keyLength, common.MaximumKeySizeInBytes)
	}
	if valueLength > common.MaximumValueSizeInBytes {
		return nil, errors.Wrapf(ErrOversizedField, "value length %d exceeds %d", valueLength, common.MaximumValueSizeInBytes)
	}

	if uint64(len(data)) < uint64(offset)+uint64(keyLength)+uint64(valueLength) {
		return nil, errors.Wrapf(ErrMalformedFrame, "declared payload exceeds body of %d bytes", len(data))
	}

	message.Key = make([]byte, keyLength)
	copy(message.Key, data[offset:offset+int(keyLength)])
	offset += int(keyLength)

	message.Value = make([]byte, valueLength)
	copy(message.Value, data[offset:offset+int(valueLength)])

	return message, nil
}
