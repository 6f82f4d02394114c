package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	apiserver "github.com/rennerdo30/proxycfg/internal/api/server"
	"github.com/rennerdo30/proxycfg/internal/logging"
	"github.com/rennerdo30/proxycfg/internal/metrics"
	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lookup service",
		Long: `Serve the resolved proxy configuration over HTTP:

  GET /api/v1/proxy?url=URL   proxy decision for URL
  GET /api/v1/config          resolved configuration
  GET /proxy.pac              PAC file equivalent to the configuration
  GET /metrics                Prometheus metrics

SIGHUP drops the cached configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.API.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides api.listen)")
	return cmd
}

// serviceHandler assembles the lookup service. The returned cleanup stops
// the watcher, if any.
func serviceHandler(a *app, m *metrics.Metrics) (http.Handler, *apiserver.ConfigCache, func()) {
	resolver := a.resolver().WithObserver(m.ObserveAttempt)
	cache := apiserver.NewConfigCache(resolver, a.cfg.API.CacheTTL.Duration(), m)

	cleanup := func() {}
	if a.cfg.API.Watch && slices.Contains(resolver.Sources(), "sysconfig") {
		path := a.cfg.Sources.SysconfigPath
		if path == "" {
			path = sysproxy.DefaultSysconfigPath
		}
		w, err := apiserver.WatchFile(path, func() {
			logging.Debug("proxy file changed, dropping cached configuration", "path", path)
			cache.Invalidate()
		})
		if err != nil {
			// Not fatal: entries still expire after the TTL.
			logging.Warn("cannot watch proxy file", "path", path, "error", err)
		} else {
			cleanup = func() { w.Close() }
		}
	}

	api := apiserver.New(apiserver.Config{
		Source:             cache,
		Metrics:            m,
		Token:              a.cfg.API.Token,
		TokenHash:          a.cfg.API.TokenHash,
		MissingSchemeError: a.cfg.Decision.MissingSchemeIsError(),
		Sources:            resolver.Sources(),
	})
	return api.Router(), cache, cleanup
}

func serve(ctx context.Context, a *app) error {
	if a.cfg.API.Listen == "" {
		return errors.New("no listen address configured (api.listen)")
	}

	m := metrics.New()
	collector := metrics.NewCollector(m)
	collector.Start()
	defer collector.Stop()

	ln, err := net.Listen("tcp", a.cfg.API.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if n := a.cfg.API.MaxConnections; n > 0 {
		ln = netutil.LimitListener(ln, n)
	}

	handler, cache, cleanup := serviceHandler(a, m)
	defer cleanup()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logging.Info("received SIGHUP, dropping cached proxy configuration")
				cache.Invalidate()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logging.Info("lookup service listening", "addr", ln.Addr().String(), "max_connections", a.cfg.API.MaxConnections)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logging.Error("lookup service stopped", "error", err)
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down lookup service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown did not complete", "error", err)
		return err
	}
	return nil
}
