package server

import (
	"encoding/json"
	"errors"

	"durakv/internal/core"
	"durakv/internal/logger"
	"durakv/internal/metrics"
	"durakv/internal/protocol"
)

// processRequest maps one request to engine operations. Every request is
// serviced as an independent auto-commit transaction; the response reuses
// the request id.
func (s *DatabaseServer) processRequest(request *protocol.Message) *protocol.Message {
	response := &protocol.Message{ID: request.ID}

	switch request.Type {
	case protocol.MessageTypeGet:
		metrics.IncrementRequestCount("get")
		metrics.IncrementGetOperationCount()
		s.handleGet(request, response)

	case protocol.MessageTypePut:
		metrics.IncrementRequestCount("put")
		metrics.IncrementPutOperationCount()
		s.handlePut(request, response)

	case protocol.MessageTypeDelete:
		metrics.IncrementRequestCount("delete")
		metrics.IncrementDeleteOperationCount()
		s.handleDelete(request, response)

	case protocol.MessageTypeScan:
		metrics.IncrementRequestCount("scan")
		metrics.IncrementScanOperationCount()
		s.handleScan(request, response)

	case protocol.MessageTypePing:
		metrics.IncrementRequestCount("ping")
		response.Type = protocol.MessageTypePong
		response.Value = []byte("PONG")

	default:
		metrics.IncrementRequestCount("unsupported")
		response.Type = protocol.MessageTypeError
		response.Value = []byte("Unsupported operation")
	}

	return response
}

func (s *DatabaseServer) handleGet(request, response *protocol.Message) {
	transaction := s.engine.BeginTransaction()
	if transaction == nil {
		failWith(response, "Database not initialized")
		return
	}

	value, err := transaction.Get(string(request.Key))
	switch {
	case errors.Is(err, core.ErrKeyNotFound):
		failWith(response, "Key not found")
	case err != nil:
		failWith(response, err.Error())
	case len(value) == 0:
		// An empty stored value is reported as missing, matching the
		// engine's historical contract.
		failWith(response, "Key not found")
	default:
		response.Type = protocol.MessageTypeSuccess
		response.Value = value
	}
}

func (s *DatabaseServer) handlePut(request, response *protocol.Message) {
	transaction := s.engine.BeginTransaction()
	if transaction == nil {
		failWith(response, "Database not initialized")
		return
	}

	if err := transaction.Put(string(request.Key), request.Value); err != nil {
		failWith(response, "Failed to put value")
		return
	}

	if err := transaction.Commit(); err != nil {
		// The PUT record is already durable; a lost COMMIT marker does not
		// lose the write.
		logger.LogErrorEvent("Commit failed for transaction %d: %v", transaction.ID(), err)
	}

	response.Type = protocol.MessageTypeSuccess
	response.Value = []byte("OK")
}

func (s *DatabaseServer) handleDelete(request, response *protocol.Message) {
	transaction := s.engine.BeginTransaction()
	if transaction == nil {
		failWith(response, "Database not initialized")
		return
	}

	if err := transaction.Delete(string(request.Key)); err != nil {
		failWith(response, "Failed to delete key")
		return
	}

	if err := transaction.Commit(); err != nil {
		logger.LogErrorEvent("Commit failed for transaction %d: %v", transaction.ID(), err)
	}

	response.Type = protocol.MessageTypeSuccess
	response.Value = []byte("OK")
}

// handleScan serves a half-open range scan. The request carries the start
// key in the key field and the end key in the value field; results go back
// as a JSON array, so quotes and backslashes are escaped. Bytes that are not
// valid UTF-8 are replaced with U+FFFD by encoding/json.
func (s *DatabaseServer) handleScan(request, response *protocol.Message) {
	transaction := s.engine.BeginTransaction()
	if transaction == nil {
		failWith(response, "Database not initialized")
		return
	}

	pairs, err := transaction.Scan(string(request.Key), string(request.Value), core.DefaultScanResultLimit)
	if err != nil {
		failWith(response, err.Error())
		return
	}

	encoded, err := json.Marshal(pairs)
	if err != nil {
		failWith(response, "Failed to encode scan results")
		return
	}

	response.Type = protocol.MessageTypeSuccess
	response.Value = encoded
}

func failWith(response *protocol.Message, reason string) {
	response.Type = protocol.MessageTypeError
	response.Value = []byte(reason)
}
