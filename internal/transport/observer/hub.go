package observer

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"factorycraft.ai/internal/observerproto"
	"factorycraft.ai/internal/sim/routes"
)

type session struct {
	id     string
	out    chan []byte
	worlds map[string]bool
	kinds  map[string]bool
}

func (s *session) wants(world, kind string) bool {
	if len(s.worlds) > 0 && !s.worlds[world] {
		return false
	}
	if len(s.kinds) > 0 && !s.kinds[kind] {
		return false
	}
	return true
}

// Hub fans route events out to websocket sessions. It is a routes.Observer;
// OnRouteEvent never blocks the world loop and drops messages for sessions
// whose buffer is full.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{sessions: map[string]*session{}}
}

func (h *Hub) join(id string, out chan []byte, sub observerproto.SubscribeMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = &session{id: id, out: out, worlds: toSet(sub.Worlds), kinds: toSet(sub.Kinds)}
}

func (h *Hub) resubscribe(id string, sub observerproto.SubscribeMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok {
		s.worlds = toSet(sub.Worlds)
		s.kinds = toSet(sub.Kinds)
	}
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *Hub) OnRouteEvent(e routes.Event) {
	msg := observerproto.RouteEventMsg{
		Type:            observerproto.TypeRouteEvent,
		ProtocolVersion: observerproto.Version,
		Event:           routes.NewEventRecord(e),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		if !s.wants(msg.Event.World, msg.Event.Kind) {
			continue
		}
		select {
		case s.out <- b:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) Sent() uint64    { return h.sent.Load() }
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func toSet(xs []string) map[string]bool {
	if len(xs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
