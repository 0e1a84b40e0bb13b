// Package transport connects game clients to the world over WebSocket.
// Frames are binary msgpack envelopes; client messages go through the
// dispatcher into the world's command inbox.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/parser"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

// Dispatcher commands for client messages.
const (
	CmdJoin      = ":JOIN:"
	CmdInput     = ":INPUT:"
	CmdLeave     = ":LEAVE:"
	CmdAuthority = ":AUTHORITY:"
	CmdState     = ":STATE:"
)

var commandByType = map[string]string{
	streaming.MsgJoin:      CmdJoin,
	streaming.MsgInput:     CmdInput,
	streaming.MsgAuthority: CmdAuthority,
	streaming.MsgState:     CmdState,
}

var (
	ErrServerFull    = errors.New("server full")
	ErrAlreadyJoined = errors.New("already joined")
	ErrJoinTimeout   = errors.New("join not answered")
)

// World is the part of the simulation the hub drives.
type World interface {
	Submit(cmds ...sim.Command)
	Subscribe() (<-chan sim.Snapshot, func())
	TickRate() int
}

// Config holds the hub settings.
type Config struct {
	SendBuffer  int // outbound frames queued per client
	MaxPlayers  int // 0 is unlimited
	JoinTimeout time.Duration
	CheckOrigin func(*http.Request) bool
}

// Hub owns every client connection. It implements sim.Sender.
type Hub struct {
	cfg      Config
	world    World
	parser   *parser.Parser
	disp     *dispatcher.Dispatcher
	log      *slog.Logger
	upgrader ws.Upgrader

	mu      sync.RWMutex
	clients map[authority.Participant]*client
	next    authority.Participant

	dropped      atomic.Uint64
	droppedInput atomic.Uint64
}

// New creates a hub. Register its handlers before serving.
func New(cfg Config, w World, p *parser.Parser, log *slog.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 2 * time.Second
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = func(*http.Request) bool { return true }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg:    cfg,
		world:  w,
		parser: p,
		log:    log.With("component", "transport"),
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		clients: make(map[authority.Participant]*client),
		next:    authority.Host + 1,
	}
}

// Handler serves the WebSocket endpoint and the health check.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.serveWS)
	mux.HandleFunc("/healthz", h.serveHealth)
	return mux
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped is how many outbound frames were dropped for slow clients.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// DroppedInput is how many client messages were dropped on a full queue.
func (h *Hub) DroppedInput() uint64 { return h.droppedInput.Load() }

func (h *Hub) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"clients":  h.Clients(),
		"tickRate": h.world.TickRate(),
	})
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxPlayers > 0 && h.Clients() >= h.cfg.MaxPlayers {
		http.Error(w, ErrServerFull.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade error", "error", err)
		return
	}

	c := h.register(conn)
	c.log.Info("Client connected", "remote", r.RemoteAddr)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(conn *ws.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	c := newClient(h, id, conn)
	h.clients[id] = c
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		h.world.Submit(sim.Leave{Participant: c.id})
		c.log.Info("Client disconnected")
	}
}

func (h *Hub) client(p authority.Participant) (*client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[p]
	return c, ok
}

// Run forwards world snapshots and events to every client until ctx is
// cancelled or the world stops publishing.
func (h *Hub) Run(ctx context.Context) error {
	snaps, cancel := h.world.Subscribe()
	defer cancel()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			h.broadcast(snap)
		}
	}
}

func (h *Hub) broadcast(snap sim.Snapshot) {
	frames := make([][]byte, 0, 1+len(snap.Events))
	data, err := streaming.Encode(streaming.MsgSnapshot, snapshotMsg(snap))
	if err != nil {
		h.log.Error("encoding snapshot", "tick", snap.Tick, "error", err)
		return
	}
	frames = append(frames, data)
	for _, e := range snap.Events {
		data, err := streaming.Encode(streaming.MsgEvent, streaming.EventMsg{Kind: e.EventKind(), Data: e})
		if err != nil {
			h.log.Warn("encoding event", "kind", e.EventKind(), "error", err)
			continue
		}
		frames = append(frames, data)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		for _, f := range frames {
			c.enqueue(f)
		}
	}
}

// SendDamage asks the client that owns a victim's state to apply damage.
func (h *Hub) SendDamage(to authority.Participant, d projectile.Damage) {
	c, ok := h.client(to)
	if !ok {
		h.log.Debug("damage for unknown participant", "participant", to, "victim", d.Victim.String())
		return
	}
	if err := c.sendMsg(streaming.MsgDamage, damageMsg(d)); err != nil {
		h.log.Warn("encoding damage", "error", err)
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

// inbound is the dispatcher payload of a client message.
type inbound struct {
	client *client
	frame  streaming.Frame
}

// RegisterHandlers registers the client message handlers.
func (h *Hub) RegisterHandlers(d *dispatcher.Dispatcher) {
	h.disp = d
	d.Register(CmdJoin, h.handleJoin, dispatcher.Logged())
	d.Register(CmdInput, h.handleInput, dispatcher.Buffered(4096))
	d.Register(CmdAuthority, h.handleAuthority, dispatcher.Logged())
	d.Register(CmdState, h.handleState, dispatcher.Buffered(1024))
	d.Register(CmdLeave, h.handleLeave, dispatcher.Logged())
}

func message(e dispatcher.Event) (inbound, error) {
	in, ok := e.Payload.(inbound)
	if !ok {
		return inbound{}, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
	}
	return in, nil
}

func (h *Hub) handleJoin(e dispatcher.Event) (any, error) {
	in, err := message(e)
	if err != nil {
		return nil, err
	}
	c := in.client
	if c.actor.Load() != 0 {
		return nil, ErrAlreadyJoined
	}
	var m streaming.JoinMsg
	if err := in.frame.Into(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidInput, err)
	}
	callsign, err := h.parser.ParseJoin(m)
	if err != nil {
		return nil, err
	}

	reply := make(chan sim.JoinResult, 1)
	h.world.Submit(sim.Join{Participant: c.id, Callsign: callsign, Reply: reply})

	timer := time.NewTimer(h.cfg.JoinTimeout)
	defer timer.Stop()
	select {
	case res := <-reply:
		if res.Err != nil {
			return nil, res.Err
		}
		c.actor.Store(uint64(res.Actor))
		c.log.Info("Client joined", "actor", res.Actor.String(), "team", res.Team)
		welcome := streaming.WelcomeMsg{
			Participant: int32(c.id),
			Actor:       uint64(res.Actor),
			Team:        res.Team,
			TickRate:    h.world.TickRate(),
		}
		return welcome, c.sendMsg(streaming.MsgWelcome, welcome)
	case <-timer.C:
		return nil, ErrJoinTimeout
	}
}

func (h *Hub) handleInput(e dispatcher.Event) (any, error) {
	in, err := message(e)
	if err != nil {
		return nil, err
	}
	var m streaming.InputMsg
	if err := in.frame.Into(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidInput, err)
	}
	cmd, err := h.parser.ParseInput(in.client.id, m)
	if err != nil {
		return nil, err
	}
	h.world.Submit(cmd)
	return nil, nil
}

func (h *Hub) handleAuthority(e dispatcher.Event) (any, error) {
	in, err := message(e)
	if err != nil {
		return nil, err
	}
	var m streaming.AuthorityMsg
	if err := in.frame.Into(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidInput, err)
	}
	cmd, err := h.parser.ParseAuthority(in.client.id, m)
	if err != nil {
		return nil, err
	}
	h.world.Submit(cmd)
	return nil, nil
}

func (h *Hub) handleState(e dispatcher.Event) (any, error) {
	in, err := message(e)
	if err != nil {
		return nil, err
	}
	var m streaming.StateMsg
	if err := in.frame.Into(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrInvalidInput, err)
	}
	cmd, err := h.parser.ParseState(in.client.id, m)
	if err != nil {
		return nil, err
	}
	h.world.Submit(cmd)
	return nil, nil
}

func (h *Hub) handleLeave(e dispatcher.Event) (any, error) {
	in, err := message(e)
	if err != nil {
		return nil, err
	}
	h.unregister(in.client)
	return nil, nil
}

// correlationID tags a connection's log lines.
func correlationID() string { return uuid.NewString()[:8] }
