package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/dogfight/pkg/streaming"
)

const (
	outboxSize   = 10_000
	ackBuffer    = 16
	maxRedials   = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	firstBackoff = time.Second
)

// link is a recorder connection with one writer goroutine. Frames queued
// while the socket is down are kept until the outbox overflows.
type link struct {
	mu     sync.Mutex
	conn   *ws.Conn
	outbox chan []byte
	acks   chan streaming.AckMessage
	done   chan struct{}
	closed bool

	target *url.URL

	// Frames resent, in order, after a successful redial.
	preamble func() [][]byte

	backoff func(attempt int) time.Duration
	dialer  *ws.Dialer
	log     *slog.Logger
}

func newLink(log *slog.Logger) *link {
	return &link{
		outbox:  make(chan []byte, outboxSize),
		acks:    make(chan streaming.AckMessage, ackBuffer),
		done:    make(chan struct{}),
		backoff: expBackoff,
		dialer:  ws.DefaultDialer,
		log:     log,
	}
}

func expBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(firstBackoff<<(attempt-1), maxBackoff)
}

// open parses the endpoint, adds the shared secret and connects.
func (l *link) open(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	l.target = u

	conn, err := l.dial()
	if err != nil {
		return err
	}
	l.attach(conn)
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	conn, _, err := l.dialer.Dial(l.target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (l *link) attach(conn *ws.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.writePump(conn)
	go l.readPump(conn)
}

func (l *link) current() *ws.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// writePump owns writes on conn until it fails or the link closes. A frame
// that fails to write is lost; the redial starts a new pump.
func (l *link) writePump(conn *ws.Conn) {
	for {
		select {
		case <-l.done:
			return
		case frame := <-l.outbox:
			if err := write(conn, frame); err != nil {
				l.log.Warn("WebSocket write error", "error", err)
				go l.redial(conn)
				return
			}
		}
	}
}

func write(conn *ws.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, frame)
}

// readPump routes acks to waiters. Anything else from the server is ignored.
func (l *link) readPump(conn *ws.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.log.Warn("WebSocket read error", "error", err)
				go l.redial(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != "ack" {
			l.log.Debug("Ignoring server message", "raw", string(raw))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.log.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial replaces a failed connection. Only the first caller for a given
// connection does the work; the read and write pumps both report failures.
func (l *link) redial(failed *ws.Conn) {
	l.mu.Lock()
	if l.closed || l.conn != failed {
		l.mu.Unlock()
		return
	}
	l.conn = nil
	l.mu.Unlock()
	_ = failed.Close()

	for attempt := 1; attempt <= maxRedials; attempt++ {
		wait := l.backoff(attempt)
		l.log.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", wait)
		select {
		case <-l.done:
			return
		case <-time.After(wait):
		}

		conn, err := l.dial()
		if err != nil {
			l.log.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}
		if err := l.replay(conn); err != nil {
			l.log.Warn("Replay after reconnect failed", "attempt", attempt, "error", err)
			_ = conn.Close()
			continue
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		l.mu.Unlock()

		l.log.Info("WebSocket reconnected", "attempt", attempt)
		l.attach(conn)
		return
	}
	l.log.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxRedials)
}

func (l *link) replay(conn *ws.Conn) error {
	if l.preamble == nil {
		return nil
	}
	for _, frame := range l.preamble() {
		if err := write(conn, frame); err != nil {
			return err
		}
	}
	return nil
}

// send queues a frame without blocking. It reports false if the frame was
// dropped.
func (l *link) send(frame []byte) bool {
	select {
	case l.outbox <- frame:
		return true
	default:
		l.log.Warn("WebSocket outbox full, dropping message")
		return false
	}
}

// sendAndWait queues a frame and waits for the server to ack its type.
func (l *link) sendAndWait(frame []byte, ackFor string, timeout time.Duration) error {
	if !l.send(frame) {
		return fmt.Errorf("outbox full, %q not sent", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and stops both pumps.
func (l *link) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}
