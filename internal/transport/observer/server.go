package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gridbot.ai/internal/observerproto"
	"gridbot.ai/internal/sim/world"
)

const (
	BootstrapPath = "/v1/observer/bootstrap"
	WSPath        = "/v1/observer/ws"
)

// Server streams read-only world snapshots to local observers.
type Server struct {
	world *world.World
	log   *zap.Logger

	upgrader websocket.Upgrader
	sessions atomic.Int64
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected observers.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Snapshot:        s.world.Snapshot(r.URL.Query().Get("cells") == "1"),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
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
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		subs := make(chan observerproto.SubscribeMsg, 1)
		subs <- sub

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			writeErr <- s.stream(ctx, conn, subs)
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := parseSubscribe(msg)
			if !ok {
				continue
			}
			select {
			case subs <- sub:
			default:
				// Drop updates under load; the client may resend.
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case err := <-writeErr:
			if err != nil && ctx.Err() == nil {
				s.log.Debug("observer stream ended", zap.Error(err))
			}
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, subs <-chan observerproto.SubscribeMsg) error {
	var (
		sub    observerproto.SubscribeMsg
		ticker *time.Ticker
		tickC  <-chan time.Time
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	send := func() error {
		b, err := json.Marshal(observerproto.SnapshotMsg{
			Type:            "SNAPSHOT",
			ProtocolVersion: observerproto.Version,
			Snapshot:        s.world.Snapshot(sub.IncludeCells),
		})
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, b)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub = <-subs:
			if ticker != nil {
				ticker.Stop()
			}
			ticker = time.NewTicker(time.Duration(sub.IntervalMS) * time.Millisecond)
			tickC = ticker.C
			if err := send(); err != nil {
				return err
			}
		case <-tickC:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

func parseSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	normalizeSubscribe(&sub)
	return sub, true
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.IntervalMS <= 0 {
		sub.IntervalMS = 500
	}
	if sub.IntervalMS < 50 {
		sub.IntervalMS = 50
	}
	if sub.IntervalMS > 60_000 {
		sub.IntervalMS = 60_000
	}
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
