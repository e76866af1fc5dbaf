package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-i2p/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/nullroom/chatrelay/admission"
	"github.com/nullroom/chatrelay/registry"
	"github.com/nullroom/chatrelay/relay"
)

// App wires the registry, the admission and relay services, and (when
// configured) a metrics endpoint into a single process lifecycle.
type App struct {
	cfg        Config
	registry   *registry.Registry
	admission  *admission.Server
	relay      *relay.Server
	metricsSrv *http.Server
	log        *logger.Entry
}

// New constructs an App bound to both the admission and relay sockets. No
// goroutines are started until Run is called.
func New(cfg Config, log *logger.Entry) (*App, error) {
	reg := registry.New()
	metrics := NewMetrics(reg)

	admSrv, err := admission.New(cfg.AdmissionAddr, reg, log.WithField("component", "admission"),
		admission.WithReadTimeout(cfg.AdmissionTimeout),
		admission.WithMaxFrameSize(cfg.MaxFrameSize),
		admission.WithMetrics(metrics),
	)
	if err != nil {
		return nil, oops.Code("fatal_io").Wrapf(err, "server: start admission")
	}

	relaySrv, err := relay.New(cfg.RelayAddr, reg, log.WithField("component", "relay"),
		relay.WithBufferSize(cfg.RelayBufferSize),
		relay.WithMetrics(metrics),
	)
	if err != nil {
		admSrv.Close()
		return nil, oops.Code("fatal_io").Wrapf(err, "server: start relay")
	}

	app := &App{
		cfg:       cfg,
		registry:  reg,
		admission: admSrv,
		relay:     relaySrv,
		log:       log,
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		app.metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	return app, nil
}

// Run starts both services (and the metrics endpoint, if configured) and
// blocks until ctx is canceled or a service fails, then runs shutdown
// before returning.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := a.admission.Serve(ctx); err != nil {
			errCh <- oops.Code("fatal_io").Wrapf(err, "admission service")
		}
	}()
	go func() {
		if err := a.relay.Serve(ctx); err != nil {
			errCh <- oops.Code("fatal_io").Wrapf(err, "relay service")
		}
	}()

	if a.metricsSrv != nil {
		go func() {
			a.log.WithField("addr", a.cfg.MetricsAddr).Info("metrics endpoint listening")
			if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- oops.Code("fatal_io").Wrapf(err, "metrics endpoint")
			}
		}()
	}

	a.log.WithField("admission_addr", a.admission.Addr().String()).
		WithField("relay_addr", a.relay.Addr().String()).
		Info("chat relay running")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.shutdown()
		return err
	}

	a.shutdown()
	return nil
}

// shutdown closes both sockets, stops the metrics endpoint (if any), then
// sleeps for the full cfg.ShutdownGrace and clears the registry. In-flight
// admission handlers are not tracked or joined; the fixed sleep is the only
// time they get to finish. There is nothing to persist: every room and
// token is scoped to one process lifetime.
func (a *App) shutdown() {
	a.log.Info("shutting down")

	a.admission.Close()
	a.relay.Close()

	if a.metricsSrv != nil {
		gracefulCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGrace)
		defer cancel()
		a.metricsSrv.Shutdown(gracefulCtx)
	}

	time.Sleep(a.cfg.ShutdownGrace)
	a.registry.Clear()

	a.log.Info("shutdown complete")
}
