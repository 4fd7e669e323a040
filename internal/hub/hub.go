// Package hub implements the manager side of the monitor protocol. It
// accepts monitor connections, pushes each new session an initial settings
// message, remembers the latest reported bundle, and fans every data message
// out to all other sessions as a clipboard-set directive. The hub keeps no
// history; the latest bundle is all the state there is.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"go.clipscout.dev/clipscout/internal/bundle"
	"go.clipscout.dev/clipscout/internal/message"
	"go.clipscout.dev/clipscout/internal/wire"
)

// sendBuffer is the per-session outbound queue depth. A session that cannot
// drain it loses frames rather than stalling the hub.
const sendBuffer = 64

// session is one connected monitor.
type session struct {
	id          string
	addr        string
	conn        *wire.Conn
	send        chan []byte
	done        chan struct{}
	connectedAt time.Time
	lastSeen    atomic.Int64 // UnixNano

	mu     sync.RWMutex
	source string
}

// enqueue queues a frame for the session without blocking. The send queue is
// never closed; a publish racing the session's teardown enqueues into a
// buffer nobody drains, which is harmless.
func (s *session) enqueue(payload []byte) {
	select {
	case s.send <- payload:
	default:
		slog.Warn("session send queue full, dropping", "session", s.id)
	}
}

// writer drains the send queue onto the wire until the session ends. A write
// failure tears the connection down; the session's reader notices and
// unregisters.
func (s *session) writer() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			if err := s.conn.WriteFrame(payload); err != nil {
				slog.Error("session write failed", "session", s.id, "err", err)
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *session) setSource(source string) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

func (s *session) getSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Hub routes data messages between monitor sessions.
type Hub struct {
	base    message.Settings
	formats []string
	started time.Time
	log     *slog.Logger

	mu           sync.RWMutex
	sessions     map[string]*session
	latest       bundle.Bundle
	latestSource string
	latestID     string
}

// New returns a hub that pushes base as the initial settings message to every
// connecting monitor.
func New(base message.Settings) *Hub {
	var formats []string
	if base.Formats != nil {
		formats = bundle.ParseFormats(*base.Formats)
	}
	return &Hub{
		base:     base,
		formats:  formats,
		started:  time.Now(),
		log:      slog.Default().With("component", "hub"),
		sessions: make(map[string]*session),
	}
}

// Serve accepts monitor connections on ln until ctx is cancelled. key enables
// frame encryption when non-nil; it must match the monitors' token.
func (h *Hub) Serve(ctx context.Context, ln net.Listener, key *[32]byte) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	h.log.Info("accepting monitors", "addr", ln.Addr().String(), "encrypted", key != nil)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go h.Handle(conn, key)
	}
}

// Handle runs one monitor session to completion: register, push settings,
// then read reports until the connection dies.
func (h *Hub) Handle(conn net.Conn, key *[32]byte) {
	s := &session{
		id:          ulid.Make().String(),
		addr:        conn.RemoteAddr().String(),
		conn:        wire.New(conn, key),
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
	s.lastSeen.Store(time.Now().UnixNano())
	log := h.log.With("session", s.id, "addr", s.addr)

	h.register(s)
	defer func() {
		h.unregister(s)
		close(s.done)
		_ = s.conn.Close()
	}()
	go s.writer()

	if payload, err := h.greeting().Encode(); err == nil {
		s.enqueue(payload)
	} else {
		log.Error("settings encode failed", "err", err)
	}

	for {
		payload, err := s.conn.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrDecode) {
				log.Warn("dropping undecodable frame", "err", err)
				continue
			}
			log.Info("session closed", "err", err)
			return
		}
		s.lastSeen.Store(time.Now().UnixNano())

		msg, err := message.Decode(payload)
		if err != nil {
			log.Warn("dropping bad message", "err", err)
			continue
		}
		if msg.IsSettings() {
			// Settings flow hub → monitor only.
			log.Warn("ignoring settings message from monitor")
			continue
		}
		if len(msg.Items) == 0 {
			continue
		}
		if msg.Source != "" {
			s.setSource(msg.Source)
		}
		h.publish(s.id, msg, payload)
	}
}

// greeting builds the initial settings push for a new session. When the hub
// already holds a bundle the message carries a digest seed so a freshly
// restarted monitor does not re-report content the hub already knows.
func (h *Hub) greeting() *message.Message {
	settings := h.base

	h.mu.RLock()
	if len(h.latest) > 0 {
		settings.LastDigest = message.U64(bundle.Digest(h.latest, h.formats))
	}
	h.mu.RUnlock()

	return &message.Message{Settings: &settings}
}

// publish records msg as the latest bundle and forwards its payload to every
// session except the origin.
func (h *Hub) publish(originID string, msg *message.Message, payload []byte) {
	h.mu.Lock()
	h.latest = msg.Items
	h.latestSource = msg.Source
	h.latestID = msg.ID
	targets := make([]*session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id != originID {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	logItems(h.log, "clipboard update", msg)

	for _, s := range targets {
		s.enqueue(payload)
	}
}

// Publish injects a bundle from outside any session (the send CLI). It is
// forwarded to every connected monitor.
func (h *Hub) Publish(msg *message.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	h.publish("", msg, payload)
	return nil
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()
	h.log.Info("monitor connected", "session", s.id, "addr", s.addr, "total", total)
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	total := len(h.sessions)
	h.mu.Unlock()
	h.log.Info("monitor disconnected", "session", s.id, "total", total)
}
