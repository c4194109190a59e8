package server

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"durakv/internal/common"
	"durakv/internal/logger"
	"durakv/internal/metrics"
	"durakv/internal/protocol"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
)

// handleConnection runs the sequential read-frame, dispatch, write-frame
// loop for one client. Any framing violation or I/O failure tears the
// connection down; the connection count is decremented exactly once.
func (s *DatabaseServer) handleConnection(conn net.Conn) {
	connectionID := uuid.NewString()[:8]
	remoteAddress := conn.RemoteAddr()
	openedAt := time.Now()

	logger.LogAccessEvent("conn %s opened from %s (%d live)", connectionID, remoteAddress, s.connectionCount.Load())

	defer func() {
		conn.Close()
		s.activeConnections.Delete(conn)
		s.connectionCount.Add(-1)
		metrics.DecrementConnectionCount()
		logger.LogAccessEvent("conn %s closed after %v", connectionID, time.Since(openedAt))
	}()

	var lengthPrefix [4]byte
	for {
		if _, err := io.ReadFull(conn, lengthPrefix[:]); err != nil {
			if err != io.EOF {
				logger.LogDebugEvent("conn %s header read error: %v", connectionID, err)
			}
			return
		}

		bodyLength := binary.LittleEndian.Uint32(lengthPrefix[:])
		if bodyLength > common.MaximumFrameSizeInBytes {
			logger.LogErrorEvent("conn %s frame of %d bytes exceeds limit, closing", connectionID, bodyLength)
			return
		}

		body := make([]byte, bodyLength)
		if _, err := io.ReadFull(conn, body); err != nil {
			logger.LogDebugEvent("conn %s body read error: %v", connectionID, err)
			return
		}

		request, err := protocol.DecodeMessage(body)
		if err != nil {
			logger.LogErrorEvent("conn %s sent undecodable frame: %v", connectionID, err)
			return
		}

		response := s.processRequest(request)
		s.totalRequestCount.Add(1)

		if err := writeResponseFrame(conn, response); err != nil {
			logger.LogDebugEvent("conn %s write error: %v", connectionID, err)
			return
		}
	}
}

func writeResponseFrame(conn net.Conn, response *protocol.Message) error {
	buffer := bytebufferpool.Get()
	defer bytebufferpool.Put(buffer)

	var lengthPrefix [4]byte
	binary.LittleEndian.PutUint32(lengthPrefix[:], uint32(response.EncodedSize()))
	buffer.B = append(buffer.B, lengthPrefix[:]...)
	buffer.B = protocol.AppendEncodedMessage(buffer.B, response)

	_, err := conn.Write(buffer.B)
	return err
}
