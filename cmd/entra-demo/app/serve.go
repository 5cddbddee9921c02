package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"k8s.io/utils/clock"

	jwtmiddleware "github.com/vmdemo/entra-jwt-middleware"
	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/entraid"
	"github.com/vmdemo/entra-jwt-middleware/internal/demo"
)

const (
	tracerName      = "github.com/vmdemo/entra-jwt-middleware/cmd/entra-demo"
	shutdownTimeout = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo API behind the authentication gate",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "Listen address (default from LISTEN_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.ListenAddr
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		addr = listen
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := jwtmiddleware.NewPrometheusMetrics(reg)

	c, err := entraid.NewCore(cfg,
		entraid.WithLogger(jwtmiddleware.NewLogrusLogger(logger)),
		entraid.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("could not set up authentication: %w", err)
	}

	handler, err := newHandler(c, logger, metrics, reg, clock.RealClock{})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":         addr,
			"auth_enabled": !c.Disabled(),
		}).Info("Starting demo API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newHandler mounts the demo API behind the gate. /healthz and /metrics, which
// serves reg, stay outside it.
func newHandler(
	c *core.Core,
	logger logrus.FieldLogger,
	metrics jwtmiddleware.Metrics,
	reg prometheus.Gatherer,
	clk clock.PassiveClock,
) (http.Handler, error) {
	gate, err := jwtmiddleware.New(
		jwtmiddleware.WithCore(c),
		jwtmiddleware.WithLogger(jwtmiddleware.NewLogrusLogger(logger)),
		jwtmiddleware.WithMetrics(metrics),
		jwtmiddleware.WithTracer(jwtmiddleware.NewOpenTelemetryTracer(otel.Tracer(tracerName))),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(gate.CheckJWT)
		r.Mount("/", demo.Routes(clk))
	})

	return r, nil
}
