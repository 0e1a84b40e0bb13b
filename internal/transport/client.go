package transport

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/parser"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8 << 10
)

// client is one game connection. Only writePump writes to conn.
type client struct {
	hub   *Hub
	id    authority.Participant
	conn  *ws.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	actor atomic.Uint64
	log   *slog.Logger
}

func newClient(h *Hub, id authority.Participant, conn *ws.Conn) *client {
	return &client{
		hub:  h,
		id:   id,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
		log:  h.log.With("participant", int32(id), "conn", correlationID()),
	}
}

// enqueue hands a frame to the write pump. A full buffer drops the frame.
func (c *client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.hub.dropped.Add(1)
		return false
	}
}

func (c *client) sendMsg(msgType string, payload any) error {
	data, err := streaming.Encode(msgType, payload)
	if err != nil {
		return err
	}
	c.enqueue(data)
	return nil
}

// close stops the write pump, which sends a close frame and closes the
// connection.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump decodes client frames and dispatches them. It owns the
// connection's lifetime: when it returns the participant leaves.
func (c *client) readPump() {
	defer func() {
		if c.hub.disp != nil {
			_, _ = c.hub.disp.Dispatch(dispatcher.Event{
				Command: CmdLeave,
				Source:  c.id.String(),
				Payload: inbound{client: c},
			})
		} else {
			c.hub.unregister(c)
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				c.log.Warn("WebSocket read error", "error", err)
			}
			return
		}
		frame, err := streaming.Decode(data)
		if err != nil {
			c.reject("", err)
			continue
		}
		cmd, ok := commandByType[frame.Type]
		if !ok || c.hub.disp == nil {
			c.reject(frame.Type, errors.New("unknown message type"))
			continue
		}
		_, err = c.hub.disp.Dispatch(dispatcher.Event{
			Command: cmd,
			Source:  c.id.String(),
			Payload: inbound{client: c, frame: frame},
		})
		switch {
		case err == nil:
		case errors.Is(err, dispatcher.ErrQueueFull):
			c.hub.droppedInput.Add(1)
			c.log.Debug("Client message dropped", "type", frame.Type)
		default:
			c.reject(frame.Type, err)
		}
	}
}

// reject tells the client a request failed. Invalid input is also logged.
func (c *client) reject(msgType string, err error) {
	if errors.Is(err, parser.ErrInvalidInput) {
		c.log.Debug("Rejected client message", "type", msgType, "error", err)
	}
	_ = c.sendMsg(streaming.MsgError, streaming.ErrorMsg{For: msgType, Message: err.Error()})
}

// writePump drains the send buffer and pings to keep the connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.BinaryMessage, frame); err != nil {
				c.log.Debug("Write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
