package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-hbcn/pkg/health"
	"github.com/dd0wney/cluso-hbcn/pkg/logging"
	"github.com/dd0wney/cluso-hbcn/pkg/lp"
	"github.com/dd0wney/cluso-hbcn/pkg/metrics"
)

const (
	probeTimeout    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func memoryUsage() (alloc, sys uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Alloc, ms.Sys
}

// newHealthChecker probes every configured back-end for readiness. CBC is
// only looked up on the path, since a missing binary just shortens the
// chain.
func newHealthChecker(backends []string, cbcPath string) (*health.HealthChecker, error) {
	entries, err := lp.Entries(backends, lp.BackendConfig{CBCPath: cbcPath})
	if err != nil {
		return nil, err
	}
	hc := health.NewHealthChecker()
	hc.RegisterCheck("memory", health.MemoryCheck(memoryUsage))
	for _, entry := range entries {
		if entry.Name == lp.CBCName {
			hc.RegisterCheck("cbc", health.ExecutableCheck("cbc", cbcPath))
			continue
		}
		hc.RegisterReadinessCheck(entry.Name, health.BackendCheck(entry.Name, entry.Backend, probeTimeout))
	}
	return hc, nil
}

func newServeMux(reg *metrics.Registry, hc *health.HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", hc.HTTPHandler())
	mux.HandleFunc("/readyz", hc.ReadinessHandler())
	return mux
}

// serveHTTP serves handler on addr until ctx is done, then shuts down
// gracefully. ready, if not nil, receives the bound address.
func serveHTTP(ctx context.Context, logger logging.Logger, addr string, handler http.Handler, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}
	logger.Info("serving metrics", logging.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", logging.Error(err))
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runServeMetrics(ctx context.Context, e *env, args []string) error {
	var logLevel string
	fs := newFlagSet(e, "serve-metrics", &logLevel)
	addr := fs.String("addr", ":9090", "Listen address")
	backends := fs.String("backends", strings.Join(lp.DefaultBackends, ","), "Comma-separated back-ends to probe")
	cbcPath := fs.String("cbc", lp.DefaultCBCPath, "CBC executable")
	if err := parse(e, fs, &logLevel, args); err != nil {
		return err
	}

	hc, err := newHealthChecker(strings.Split(*backends, ","), *cbcPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	return serveHTTP(ctx, e.logger, *addr, newServeMux(e.metrics, hc), nil)
}
