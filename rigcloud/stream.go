package rigcloud

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the fixed wait between connection attempts
const DefaultReconnectDelay = 5 * time.Second

// FrameHandler receives every decoded frame
type FrameHandler interface {
	HandleFrame(ctx context.Context, frame Frame)
}

// FrameHandlerFunc adapts a function to FrameHandler
type FrameHandlerFunc func(ctx context.Context, frame Frame)

// HandleFrame calls f
func (f FrameHandlerFunc) HandleFrame(ctx context.Context, frame Frame) { f(ctx, frame) }

// URLFunc resolves the stream URL before each connection attempt
type URLFunc func() (string, error)

// Stream keeps one websocket connection to the backend open
type Stream struct {
	url            URLFunc
	dialer         *websocket.Dialer
	header         http.Header
	reconnectDelay time.Duration
	logger         *zap.Logger
	now            func() time.Time

	mu        sync.RWMutex
	connected bool
	attempts  int
}

// StreamOption customises a Stream
type StreamOption func(*Stream)

// WithReconnectDelay overrides the wait between connection attempts
func WithReconnectDelay(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.reconnectDelay = d
		}
	}
}

// WithDialer sets the websocket dialer
func WithDialer(d *websocket.Dialer) StreamOption {
	return func(s *Stream) { s.dialer = d }
}

// WithHeader sets extra handshake headers
func WithHeader(h http.Header) StreamOption {
	return func(s *Stream) { s.header = h }
}

// NewStream creates a stream reading from the URL returned by url
func NewStream(url URLFunc, logger *zap.Logger, opts ...StreamOption) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stream{
		url:            url,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: DefaultReconnectDelay,
		logger:         logger,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connected reports whether a connection is currently open
func (s *Stream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Attempts returns how many connections have been tried
func (s *Stream) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Run connects and feeds frames to handler until ctx is cancelled. After a
// close or failed dial it waits the reconnect delay and tries again; the
// delay does not grow and there is no attempt limit.
func (s *Stream) Run(ctx context.Context, handler FrameHandler) error {
	for {
		err := s.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("Stream closed, reconnecting",
			zap.Error(err),
			zap.Duration("delay", s.reconnectDelay))

		timer := time.NewTimer(s.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Stream) session(ctx context.Context, handler FrameHandler) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()

	u, err := s.url()
	if err != nil {
		return err
	}

	conn, _, err := s.dialer.DialContext(ctx, u, s.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	s.setConnected(true)
	defer s.setConnected(false)
	s.logger.Info("Stream connected", zap.String("url", u))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}

		frame, err := DecodeFrame(data, s.now())
		if err != nil {
			s.logger.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}
		if frame.Kind == FrameUnknown {
			s.logger.Debug("Ignoring unknown frame")
			continue
		}
		handler.HandleFrame(ctx, frame)
	}
}

func (s *Stream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
