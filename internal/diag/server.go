// Package diag serves health, readiness, metrics and optional pprof over HTTP.
package diag

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifepath/internal/runtime/supervisor"
	logx "lifepath/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string // default 127.0.0.1:9090
	Token   string // required unless Addr is loopback
	Pprof   bool
}

const defaultAddr = "127.0.0.1:9090"

var ErrInsecureBind = errors.New("diag: non-loopback address without a token")

// ReadyFunc reports readiness and a short reason for /readyz.
type ReadyFunc func() (ok bool, detail string)

// listener is one running server; Reconfigure swaps it out whole.
type listener struct {
	cfg  Config
	addr string
	srv  *http.Server
	sup  *supervisor.Supervisor
}

type Service struct {
	log   logx.Logger
	reg   *prometheus.Registry
	ready ReadyFunc

	mu  sync.Mutex
	cur *listener
}

// New returns a stopped service. A nil reg drops /metrics; a nil ready is always ready.
func New(log logx.Logger, reg *prometheus.Registry, ready ReadyFunc) *Service {
	if ready == nil {
		ready = func() (bool, string) { return true, "ok" }
	}
	return &Service{log: log.With(logx.Comp("diag")), reg: reg, ready: ready}
}

// Addr is the bound address, empty while stopped.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.addr
}

// Reconfigure brings the server in line with cfg. An identical config keeps
// the running listener.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = defaultAddr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Enabled && s.cur != nil && s.cur.cfg == cfg {
		return nil
	}
	s.shutdownLocked(ctx)
	if !cfg.Enabled {
		return nil
	}
	l, err := s.listen(cfg)
	if err != nil {
		s.log.Error("diag not started", logx.String("addr", cfg.Addr), logx.Err(err))
		return err
	}
	s.cur = l
	s.log.Info("diag listening", logx.String("addr", l.addr), logx.Bool("pprof", cfg.Pprof), logx.Bool("token", cfg.Token != ""))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownLocked(ctx)
}

func (s *Service) listen(cfg Config) (*listener, error) {
	if cfg.Token == "" && !loopback(cfg.Addr) {
		return nil, fmt.Errorf("%w: %s", ErrInsecureBind, cfg.Addr)
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	l := &listener{
		cfg:  cfg,
		addr: ln.Addr().String(),
		srv: &http.Server{
			Handler:           s.Handler(cfg),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       time.Minute,
		},
		// own supervisor: a dead diag listener never stops the bot
		sup: supervisor.New(context.Background(), supervisor.WithLogger(s.log)),
	}
	l.sup.Fire("diag.serve", 0, func(context.Context) error {
		if err := l.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return l, nil
}

func (s *Service) shutdownLocked(ctx context.Context) {
	l := s.cur
	if l == nil {
		return
	}
	s.cur = nil
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.srv.Shutdown(ctx); err != nil {
		s.log.Warn("diag shutdown", logx.String("addr", l.addr), logx.Err(err))
		_ = l.srv.Close()
	}
	_ = l.sup.Stop(ctx)
	s.log.Info("diag stopped", logx.String("addr", l.addr))
}

// Handler is the mux for cfg. Everything except /healthz sits behind the token.
func (s *Service) Handler(cfg Config) http.Handler {
	mux := http.NewServeMux()
	guarded := func(path string, h http.HandlerFunc) { mux.Handle(path, bearer(cfg.Token, h)) }

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	guarded("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ok, detail := s.ready()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(detail))
	})
	if s.reg != nil {
		guarded("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg}).ServeHTTP)
	}
	if cfg.Pprof {
		guarded("/debug/pprof/", pprof.Index)
		guarded("/debug/pprof/cmdline", pprof.Cmdline)
		guarded("/debug/pprof/profile", pprof.Profile)
		guarded("/debug/pprof/symbol", pprof.Symbol)
		guarded("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// bearer accepts "Authorization: Bearer <token>" or ?token=<token>.
func bearer(token string, h http.HandlerFunc) http.HandlerFunc {
	want := []byte(strings.TrimSpace(token))
	if len(want) == 0 {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("token")
		if got == "" {
			got, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip, err := netip.ParseAddr(host)
	return err == nil && ip.IsLoopback()
}
