package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/artprovider/internal/codec"
)

// ActionFunc processes a request for one action. raw is the full CBOR
// request, including the "action" field.
//
// A non-nil result is marshaled into the response's data field. A nil
// result yields a response with no data.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the wire envelope of every response.
type Response struct {
	OK        bool             `cbor:"ok"`
	Error     string           `cbor:"error,omitempty"`
	RequestID string           `cbor:"request_id,omitempty"`
	Data      codec.RawMessage `cbor:"data,omitempty"`
}

// IDGenerator produces request ids for log correlation.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 request ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SocketServer serves the request-response protocol on a Unix socket.
// Actions are registered with Handle before calling Serve. Unknown
// actions receive an error response.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	ids        IDGenerator
	logger     *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	// activeConnections tracks in-flight handlers. Serve waits for them
	// before returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		ids:        UUIDv7Generator{},
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// SetIDGenerator replaces the request id generator. Must be called
// before Serve.
func (s *SocketServer) SetIDGenerator(ids IDGenerator) {
	s.ids = ids
}

// Handle registers a handler for action. Panics if the action is
// already registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("protocol.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Ready is closed once the server is accepting connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// SocketPath returns the path the server listens on.
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

// Serve accepts connections until ctx is cancelled, then waits for
// active handlers to complete.
//
// Any existing socket file at the path is removed before listening. The
// socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	s.readyOnce.Do(func() { close(s.ready) })

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout is how long we wait for the client to send its request.
const readTimeout = 30 * time.Second

// writeTimeout is how long we wait for the response to be written.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. A set of a few thousand
// artwork fits comfortably.
const maxRequestSize = 8 * 1024 * 1024

// handleConnection processes one request-response cycle.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	requestID := s.ids.Generate()
	logger := s.logger.With("request_id", requestID)

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting so no framing is needed.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Client connected but sent nothing.
			return
		}
		s.writeError(conn, requestID, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, requestID, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, requestID, "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, requestID, fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	logger.Debug("request received", "action", header.Action)
	start := time.Now()

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		logger.Debug("action failed", "action", header.Action, "error", err)
		s.writeError(conn, requestID, err.Error())
		return
	}

	logger.Debug("request completed", "action", header.Action, "duration", time.Since(start))
	s.writeSuccess(conn, requestID, result)
}

// writeError sends {ok: false, error: "..."}.
func (s *SocketServer) writeError(conn net.Conn, requestID, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:        false,
		Error:     message,
		RequestID: requestID,
	}); err != nil {
		s.logger.Debug("failed to write error response", "request_id", requestID, "error", err)
	}
}

// writeSuccess sends {ok: true} with result in data when non-nil.
func (s *SocketServer) writeSuccess(conn net.Conn, requestID string, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true, RequestID: requestID}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, requestID, fmt.Sprintf("internal: marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "request_id", requestID, "error", err)
	}
}
