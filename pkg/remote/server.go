// Package remote serves shell sessions over WebSocket, one session per
// connection, all sharing one read-only command registry.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sipeed/picoshell/pkg/commands"
	"github.com/sipeed/picoshell/pkg/config"
	"github.com/sipeed/picoshell/pkg/logger"
	"github.com/sipeed/picoshell/pkg/ratelimit"
	"github.com/sipeed/picoshell/pkg/shell"
)

type Option func(*Server)

// WithAuthenticator sets the login hook run for every connection when the
// shell config requires login.
func WithAuthenticator(a shell.Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

type Server struct {
	cfg      config.Config
	reg      *commands.Registry
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
	auth     shell.Authenticator

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	server   *http.Server
	sessions map[string]*session
	wg       sync.WaitGroup
}

type session struct {
	sh   *shell.Shell
	conn *consoleConn
}

func NewServer(cfg *config.Config, reg *commands.Registry, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("remote: config is nil")
	}
	if _, err := commands.NewTokenizer(cfg.Shell.ArgumentDelimiter); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg: *cfg,
		reg: reg,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			Enabled:        cfg.Remote.LinesPerMinute > 0,
			LinesPerMinute: cfg.Remote.LinesPerMinute,
			Burst:          cfg.Remote.Burst,
		}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     allowOrigins(cfg.Remote.AllowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the HTTP handler serving the console endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Remote.Path, s.handleConsole)
	return mux
}

// ListenAndServe listens on the configured address and blocks until Stop.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Remote.Addr())
	if err != nil {
		return fmt.Errorf("failed to start console server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts console connections on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return ln.Close()
	}
	s.server = srv
	s.mu.Unlock()

	logger.InfoCF("remote", "Console server listening", map[string]any{
		"address": ln.Addr().String(),
		"path":    s.cfg.Remote.Path,
	})

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop ends every session, closes their connections and shuts the HTTP
// server down.
func (s *Server) Stop(ctx context.Context) error {
	logger.InfoC("remote", "Stopping console server")
	s.cancel()

	s.mu.Lock()
	srv := s.server
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.sh.Stop()
		sess.conn.Close()
	}

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	logger.InfoC("remote", "Console server stopped")
	return err
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("remote", "Failed to upgrade connection", map[string]any{
			"error": err.Error(),
		})
		return
	}

	id := uuid.NewString()
	cc := newConsoleConn(conn, id, s.limiter)

	shellCfg := s.cfg.Shell
	sh, err := shell.New(&shellCfg, s.reg,
		shell.WithReader(cc),
		shell.WithOutput(cc),
		shell.WithSessionID(id),
		shell.WithAuthenticator(s.auth),
	)
	if err != nil {
		logger.ErrorCF("remote", "Failed to create session", map[string]any{
			"session_id": id,
			"error":      err.Error(),
		})
		cc.Close()
		return
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		cc.Close()
		return
	}
	s.sessions[id] = &session{sh: sh, conn: cc}
	s.wg.Add(1)
	s.mu.Unlock()

	logger.InfoCF("remote", "Client connected", map[string]any{
		"session_id": id,
		"remote":     r.RemoteAddr,
	})

	if err := cc.send(TypeSystem, "connected"); err != nil {
		logger.WarnCF("remote", "Failed to greet client", map[string]any{
			"session_id": id,
			"error":      err.Error(),
		})
	}

	sh.Start(s.ctx)
	go s.reap(id, sh, cc)
}

func (s *Server) reap(id string, sh *shell.Shell, cc *consoleConn) {
	defer s.wg.Done()
	<-sh.Done()

	cc.Close()
	s.limiter.Forget(id)

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	fields := map[string]any{"session_id": id}
	if err := sh.Err(); err != nil {
		fields["error"] = err.Error()
	}
	logger.InfoCF("remote", "Client disconnected", fields)
}

// allowOrigins accepts requests without an Origin header, which come from
// non-browser clients. An empty list or "*" accepts every origin.
func allowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}

	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		logger.WarnCF("remote", "Rejected console origin", map[string]any{"origin": origin})
		return false
	}
}
