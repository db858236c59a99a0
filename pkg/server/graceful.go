// Package server runs the navigator HTTP listener with signal-driven
// shutdown and campus map reloads.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// ReloadFunc reloads the campus map, typically on SIGHUP.
type ReloadFunc func(ctx context.Context) error

// Options configures a GracefulServer. Zero durations take the defaults.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Logger          logging.Logger
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	reloadFn ReloadFunc
	reloadMu sync.RWMutex

	addrMu sync.Mutex
	addr   net.Addr
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(handler http.Handler, opts Options) *GracefulServer {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       orDefault(opts.ReadTimeout, 15*time.Second),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      orDefault(opts.WriteTimeout, 30*time.Second),
			IdleTimeout:       orDefault(opts.IdleTimeout, 120*time.Second),
			MaxHeaderBytes:    1 << 20,
		},
		logger:          opts.Logger.With(logging.Component("http")),
		shutdownTimeout: orDefault(opts.ShutdownTimeout, 15*time.Second),
		shutdownCh:      make(chan struct{}),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Run listens on the configured address and serves until ctx is done or
// SIGINT/SIGTERM arrives, then drains connections. SIGHUP triggers Reload.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go gs.reloadOnSignal(ctx, hup)

	return gs.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Shutdown is called.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	gs.addrMu.Lock()
	gs.addr = ln.Addr()
	gs.addrMu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))
		errCh <- gs.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return gs.waitShutdown()
		}
		return err
	case <-ctx.Done():
		gs.logger.Info("shutdown requested", logging.Error(context.Cause(ctx)))
		return gs.Shutdown()
	case <-gs.shutdownCh:
		<-errCh
		return gs.waitShutdown()
	}
}

func (gs *GracefulServer) waitShutdown() error {
	<-gs.shutdownCh
	return gs.shutdownErr
}

// Shutdown stops accepting connections and waits up to the shutdown
// timeout for in-flight requests. Later calls return the first result.
func (gs *GracefulServer) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", gs.shutdownTimeout))
		start := time.Now()
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.shutdownErr = err
			gs.logger.Error("shutdown did not complete", logging.Error(err))
		} else {
			gs.logger.Info("server shutdown complete", logging.Latency(time.Since(start)))
		}
		close(gs.shutdownCh)
	})
	return gs.waitShutdown()
}

func (gs *GracefulServer) reloadOnSignal(ctx context.Context, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			gs.logger.Info("received SIGHUP, reloading campus map")
			if err := gs.Reload(ctx); err != nil {
				gs.logger.Error("reload failed", logging.Error(err))
			}
		}
	}
}

// Addr returns the bound listener address, or nil before Serve.
func (gs *GracefulServer) Addr() net.Addr {
	gs.addrMu.Lock()
	defer gs.addrMu.Unlock()
	return gs.addr
}

// IsShuttingDown returns true once shutdown has completed or is underway.
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown completes
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function called by Reload.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		return err
	}
	gs.logger.Info("reload complete", logging.Latency(time.Since(start)))
	return nil
}
