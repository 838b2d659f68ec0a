package simbridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/utils"
)

// Server upgrades every request to a websocket and drives one planner per connection.
type Server struct {
	cfg      planner.Config
	cmap     *frenet.Map
	opts     []planner.Option
	log      *utils.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

// NewServer creates a server sharing the read-only map between connections.
func NewServer(cfg planner.Config, cmap *frenet.Map, log *utils.Logger, opts ...planner.Option) *Server {
	return &Server{
		cfg:  cfg,
		cmap: cmap,
		opts: opts,
		log:  log.Component("sim"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("Listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	id := s.nextID.Add(1)
	log := s.log.Component("conn")
	log.Info("Connected #%d from %s", id, r.RemoteAddr)

	p, err := planner.New(s.cfg, s.cmap, s.opts...)
	if err != nil {
		log.Error("Planner for #%d: %v", id, err)
		_ = conn.Close()
		return
	}

	ctx := r.Context()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var cycles uint64
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Read #%d: %v", id, err)
			}
			break
		}

		reply := s.respond(log, p, raw)
		if reply == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			log.Warn("Write #%d: %v", id, err)
			break
		}
		cycles++
	}

	_ = conn.Close()
	log.Info("Disconnected #%d after %d replies", id, cycles)
}

// respond runs one frame through the planner. A nil reply means nothing is sent.
func (s *Server) respond(log *utils.Logger, p *planner.Planner, raw []byte) []byte {
	msg, err := ParseMessage(raw)
	if err != nil {
		if !errors.Is(err, ErrNotEvent) {
			log.Warn("Dropping frame: %v", err)
		}
		return nil
	}

	switch msg.Event {
	case EventNone:
		return ManualReply
	case EventOther:
		log.Debug("Ignoring event %q", msg.Name)
		return nil
	}

	plan, err := p.Cycle(msg.Telemetry)
	if err != nil {
		log.Error("Cycle failed: %v", err)
		return ManualReply
	}
	log.Debug("lane=%d %s front=%.1f ref=%.2f", plan.EgoLane, plan.Decision, plan.Summary.Front.Distance, plan.RefSpeed)

	out, err := EncodeControl(plan.Path)
	if err != nil {
		log.Error("Encode failed: %v", err)
		return ManualReply
	}
	return out
}
