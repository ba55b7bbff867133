package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"factorycraft.ai/internal/observerproto"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/world"
)

// Worlds is the lookup the server needs; multiworld.Manager implements it.
type Worlds interface {
	WorldIDs() []string
	World(id string) (*world.World, bool)
}

type Server struct {
	worlds Worlds
	hub    *Hub
	log    *log.Logger

	upgrader websocket.Upgrader

	// AllowRemote disables the loopback-only check (tests, trusted networks).
	AllowRemote bool
}

func NewServer(worlds Worlds, hub *Hub, logger *log.Logger) *Server {
	return &Server{
		worlds: worlds,
		hub:    hub,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

// RoutesHandler serves GET /admin/v1/routes?world=ID[&kind=PIPE|SIGNAL]:
// every cached route of one world with its cells.
func (s *Server) RoutesHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		id := strings.TrimSpace(r.URL.Query().Get("world"))
		w, ok := s.worlds.World(id)
		if !ok {
			http.Error(rw, "unknown world", http.StatusNotFound)
			return
		}
		var (
			kind     routes.Kind
			filtered bool
		)
		if k := r.URL.Query().Get("kind"); k != "" {
			parsed, err := routes.ParseKind(k)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			kind, filtered = parsed, true
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		resp := observerproto.RoutesResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         id,
			Routes:          []routes.Record{},
		}
		err := w.Do(ctx, func(w *world.World) {
			resp.Tick = w.CurrentTick()
			for _, rt := range w.Cache().Origins() {
				if filtered && rt.Kind() != kind {
					continue
				}
				resp.Routes = append(resp.Routes, routes.NewRecord(rt, true))
			}
		})
		if err != nil {
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := s.parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := uuid.NewString()
		out := make(chan []byte, 1024)
		hello, _ := json.Marshal(observerproto.HelloMsg{
			Type:            observerproto.TypeHello,
			ProtocolVersion: observerproto.Version,
			SessionID:       sid,
			Worlds:          s.worlds.WorldIDs(),
		})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		s.hub.join(sid, out, sub)
		defer s.hub.leave(sid)
		if s.log != nil {
			s.log.Printf("observer %s joined worlds=%v kinds=%v", sid, sub.Worlds, sub.Kinds)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := s.parseSubscribe(msg); ok {
				s.hub.resubscribe(sid, sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	kinds := sub.Kinds[:0]
	for _, k := range sub.Kinds {
		if parsed, err := routes.ParseKind(k); err == nil {
			kinds = append(kinds, parsed.String())
		}
	}
	sub.Kinds = kinds
	return sub, true
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
