// Package websocket streams a recorded match to a remote recording server as
// JSON envelopes over a WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/OCAP2/dogfight/pkg/core"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams match data to the recording server. It implements
// storage.Backend but not storage.Uploadable.
type Backend struct {
	link *link
	cfg  Config

	// Replayed after a reconnect so the server can resume the match.
	mu       sync.Mutex
	startMsg []byte
	roster   map[uint64][]byte
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		link:   newLink(logger.With("backend", "websocket")),
		cfg:    cfg,
		roster: make(map[uint64][]byte),
	}
	b.link.preamble = b.preamble
	return b
}

// Init connects to the recording server.
func (b *Backend) Init() error {
	return b.link.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the recording server.
func (b *Backend) Close() error {
	return b.link.close()
}

// Connected reports whether a socket is currently up.
func (b *Backend) Connected() bool {
	return b.link.current() != nil
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// post queues an envelope without waiting for the server.
func (b *Backend) post(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.link.send(data)
	return nil
}

func (b *Backend) preamble() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.startMsg == nil {
		return nil
	}
	ids := make([]uint64, 0, len(b.roster))
	for id := range b.roster {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	frames := [][]byte{b.startMsg}
	for _, id := range ids {
		frames = append(frames, b.roster[id])
	}
	return frames
}

// StartMatch announces the match and waits for the server ack.
func (b *Backend) StartMatch(match *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: match})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.startMsg = data
	b.roster = make(map[uint64][]byte)
	b.mu.Unlock()

	return b.link.sendAndWait(data, streaming.TypeStartMatch, ackTimeout)
}

// EndMatch sends end_match and waits for the server ack.
func (b *Backend) EndMatch() error {
	data, err := marshalEnvelope(streaming.TypeEndMatch, nil)
	if err != nil {
		return err
	}
	err = b.link.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)

	b.mu.Lock()
	b.startMsg = nil
	b.roster = make(map[uint64][]byte)
	b.mu.Unlock()

	return err
}

// AddAircraft sends the registration and remembers it for reconnects.
func (b *Backend) AddAircraft(a *core.Aircraft) error {
	data, err := marshalEnvelope(streaming.TypeAddAircraft, a)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.roster[a.ID] = data
	b.mu.Unlock()

	b.link.send(data)
	return nil
}

func (b *Backend) RecordAircraftState(s *core.AircraftState) error {
	return b.post(streaming.TypeAircraftState, s)
}

func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	return b.post(streaming.TypeFiredEvent, e)
}

func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	return b.post(streaming.TypeHitEvent, e)
}

func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	return b.post(streaming.TypeKillEvent, e)
}

func (b *Backend) RecordProjectileEvent(e *core.ProjectileEvent) error {
	return b.post(streaming.TypeProjectileEvent, e)
}

func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	return b.post(streaming.TypeLockEvent, e)
}

func (b *Backend) RecordAuthorityEvent(e *core.AuthorityEvent) error {
	return b.post(streaming.TypeAuthorityEvent, e)
}

func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	return b.post(streaming.TypeGeneralEvent, e)
}

// RecordServerPerformance forwards a performance sample.
func (b *Backend) RecordServerPerformance(p *core.ServerPerformance) error {
	return b.post(streaming.TypeServerPerf, p)
}
