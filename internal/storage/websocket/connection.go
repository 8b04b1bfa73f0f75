package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"github.com/abporter521/CS3500-TankWars/pkg/streaming"
)

const (
	sendBufferSize = 4096
	ackBufferSize  = 8
	writeWait      = 10 * time.Second
)

// ErrStreamClosed is returned when waiting on an ack after Close.
var ErrStreamClosed = errors.New("stream closed")

// stream owns one viewer connection. A single writer goroutine drains
// outbox; a reader goroutine routes acks. Both are restarted on reconnect.
type stream struct {
	mu     deadlock.Mutex
	conn   *ws.Conn
	closed bool
	// start message replayed after a reconnect
	replay []byte

	outbox chan []byte
	acks   chan streaming.AckMessage
	done   chan struct{}

	url          string
	maxRetries   int
	firstBackoff time.Duration
	maxBackoff   time.Duration
	log          *slog.Logger
}

func newStream(cfg Config, log *slog.Logger) *stream {
	return &stream{
		outbox:       make(chan []byte, sendBufferSize),
		acks:         make(chan streaming.AckMessage, ackBufferSize),
		done:         make(chan struct{}),
		maxRetries:   cfg.MaxRetries,
		firstBackoff: cfg.Backoff,
		maxBackoff:   cfg.MaxBackoff,
		log:          log,
	}
}

// open dials rawURL with the secret appended as a query parameter.
func (s *stream) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	s.url = u.String()

	conn, err := s.dial()
	if err != nil {
		return err
	}
	s.attach(conn)
	return nil
}

func (s *stream) dial() (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (s *stream) attach(conn *ws.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	go s.writeLoop(conn)
	go s.readLoop(conn)
}

func (s *stream) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.outbox:
			if err := write(conn, data); err != nil {
				s.log.Warn("WebSocket write error", "error", err)
				// the message is lost; the viewer resyncs from the replayed start
				go s.reconnect(conn)
				return
			}
		}
	}
}

func (s *stream) readLoop(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("WebSocket read error", "error", err)
				go s.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != streaming.TypeAck {
			s.log.Debug("Ignoring viewer message", "raw", string(msg))
			continue
		}
		select {
		case s.acks <- ack:
		default:
			s.log.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces broken with a fresh connection using exponential
// backoff. The read and write loops both call it; only the first caller for
// a given connection proceeds.
func (s *stream) reconnect(broken *ws.Conn) {
	s.mu.Lock()
	if s.closed || s.conn != broken {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.mu.Unlock()
	_ = broken.Close()

	backoff := s.firstBackoff
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		select {
		case <-s.done:
			return
		case <-time.After(backoff):
		}

		conn, err := s.dial()
		if err != nil {
			s.log.Warn("Reconnect failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, s.maxBackoff)
			continue
		}

		s.mu.Lock()
		replay := s.replay
		s.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				s.log.Warn("Replaying start_match failed", "error", err)
				_ = conn.Close()
				continue
			}
		}

		s.log.Info("WebSocket reconnected", "attempt", attempt)
		s.attach(conn)
		return
	}
	s.log.Error("Giving up on viewer connection", "attempts", s.maxRetries)
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// send queues data without blocking. It reports false when the message was
// dropped.
func (s *stream) send(data []byte) bool {
	select {
	case s.outbox <- data:
		return true
	default:
		s.log.Warn("WebSocket send buffer full, dropping message")
		return false
	}
}

// sendAndWait queues data and blocks until the viewer acks msgType.
func (s *stream) sendAndWait(data []byte, msgType string, timeout time.Duration) error {
	if !s.send(data) {
		return fmt.Errorf("%s dropped: send buffer full", msgType)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-s.acks:
			if ack.For == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", msgType)
		case <-s.done:
			return fmt.Errorf("waiting for ack of %q: %w", msgType, ErrStreamClosed)
		}
	}
}

func (s *stream) setReplay(data []byte) {
	s.mu.Lock()
	s.replay = data
	s.mu.Unlock()
}

// close sends a close frame and stops both loops.
func (s *stream) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
