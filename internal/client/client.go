package client

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"durakv/internal/common"
	"durakv/internal/protocol"

	"github.com/pkg/errors"
)

// ErrServerReportedFailure wraps the reason carried in an ERROR response.
var ErrServerReportedFailure = errors.New("server reported failure")

// DatabaseClient speaks the length-prefixed binary protocol over one TCP
// connection. Requests on a single client are serialized, matching the
// server's one-request-at-a-time handling per connection.
type DatabaseClient struct {
	conn          net.Conn
	mutex         sync.Mutex
	nextRequestID atomic.Uint32
}

// Connect dials the server and returns a ready client.
func Connect(address string, timeout time.Duration) (*DatabaseClient, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", address)
	}
	return &DatabaseClient{conn: conn}, nil
}

func (c *DatabaseClient) Close() error {
	return c.conn.Close()
}

// Get returns the value stored under key.
func (c *DatabaseClient) Get(key string) ([]byte, error) {
	response, err := c.roundTrip(&protocol.Message{
		Type: protocol.MessageTypeGet,
		Key:  []byte(key),
	})
	if err != nil {
		return nil, err
	}
	if response.Type != protocol.MessageTypeSuccess {
		return nil, errors.Wrap(ErrServerReportedFailure, string(response.Value))
	}
	return response.Value, nil
}

// Put stores value under key.
func (c *DatabaseClient) Put(key string, value []byte) error {
	response, err := c.roundTrip(&protocol.Message{
		Type:  protocol.MessageTypePut,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return err
	}
	if response.Type != protocol.MessageTypeSuccess {
		return errors.Wrap(ErrServerReportedFailure, string(response.Value))
	}
	return nil
}

// Delete removes key.
func (c *DatabaseClient) Delete(key string) error {
	response, err := c.roundTrip(&protocol.Message{
		Type: protocol.MessageTypeDelete,
		Key:  []byte(key),
	})
	if err != nil {
		return err
	}
	if response.Type != protocol.MessageTypeSuccess {
		return errors.Wrap(ErrServerReportedFailure, string(response.Value))
	}
	return nil
}

// Scan returns pairs with startKey <= key < endKey. Order is unspecified.
func (c *DatabaseClient) Scan(startKey, endKey string) ([]common.KeyValuePair, error) {
	response, err := c.roundTrip(&protocol.Message{
		Type:  protocol.MessageTypeScan,
		Key:   []byte(startKey),
		Value: []byte(endKey),
	})
	if err != nil {
		return nil, err
	}
	if response.Type != protocol.MessageTypeSuccess {
		return nil, errors.Wrap(ErrServerReportedFailure, string(response.Value))
	}

	var pairs []common.KeyValuePair
	if err := json.Unmarshal(response.Value, &pairs); err != nil {
		return nil, errors.Wrap(err, "failed to decode scan results")
	}
	return pairs, nil
}

// Ping round-trips a health check and returns the latency.
func (c *DatabaseClient) Ping() (time.Duration, error) {
	startedAt := time.Now()
	response, err := c.roundTrip(&protocol.Message{Type: protocol.MessageTypePing})
	if err != nil {
		return 0, err
	}
	if response.Type != protocol.MessageTypePong {
		return 0, errors.Wrap(ErrServerReportedFailure, string(response.Value))
	}
	return time.Since(startedAt), nil
}

func (c *DatabaseClient) roundTrip(request *protocol.Message) (*protocol.Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	request.ID = c.nextRequestID.Add(1)

	encoded := protocol.EncodeMessage(request)
	var lengthPrefix [4]byte
	binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(len(encoded)))

	if _, err := c.conn.Write(lengthPrefix[:]); err != nil {
		return nil, errors.Wrap(err, "failed to write request length")
	}
	if _, err := c.conn.Write(encoded); err != nil {
		return nil, errors.Wrap(err, "failed to write request")
	}

	if _, err := io.ReadFull(c.conn, lengthPrefix[:]); err != nil {
		return nil, errors.Wrap(err, "failed to read response length")
	}
	bodyLength := binary.LittleEndian.Uint32(lengthPrefix[:])
	if bodyLength > common.MaximumFrameSizeInBytes {
		return nil, errors.Errorf("response frame of %d bytes exceeds limit", bodyLength)
	}

	body := make([]byte, bodyLength)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	response, err := protocol.DecodeMessage(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	if response.ID != request.ID {
		return nil, errors.Errorf("response id %d does not match request id %d", response.ID, request.ID)
	}
	return response, nil
}
