// Package base wires up the ambient pieces every run of the daemon needs:
// logging, error reporting, the embedded queue server, caches and metrics.
package base

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/internal"
	"github.com/voicewarden/voicewarden/internal/caching"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

const cacheBudget = 8 * caching.SizeMB

// BaseWarden carries the long-lived dependencies of the daemon.
type BaseWarden struct {
	ProcessContext *process.ProcessContext
	Cfg            *config.Warden
	Caches         *caching.Caches
	NATS           *jetstream.NATSInstance
}

// NewBaseWarden sets up logging, error reporting and the shared caches. It
// does not start any network-facing pieces yet.
func NewBaseWarden(cfg *config.Warden) *BaseWarden {
	internal.SetupStdLogging()
	internal.SetupHookLogging(cfg.Logging)

	if cfg.Global.Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging")
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Global.Sentry.DSN,
			Environment:      cfg.Global.Sentry.Environment,
			Release:          "voicewarden@" + internal.VersionString(),
			AttachStacktrace: true,
		})
		if err != nil {
			logrus.WithError(err).Panic("Failed to start Sentry")
		}
	}

	caches, err := caching.NewRistrettoCache(cacheBudget, cfg.Global.Metrics.Enabled)
	if err != nil {
		logrus.WithError(err).Panic("Failed to create cache")
	}

	return &BaseWarden{
		ProcessContext: process.NewProcessContext(),
		Cfg:            cfg,
		Caches:         caches,
		NATS:           &jetstream.NATSInstance{},
	}
}

// JetStream connects to (or starts) the queue server.
func (b *BaseWarden) JetStream() (nats.JetStreamContext, *nats.Conn) {
	return b.NATS.Prepare(b.ProcessContext, &b.Cfg.Global.JetStream)
}

// StartMetrics exposes the /metrics endpoint if enabled.
func (b *BaseWarden) StartMetrics() {
	if !b.Cfg.Global.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    b.Cfg.Global.Metrics.ListenAddress,
		Handler: mux,
	}
	logrus.WithField("address", server.Addr).Info("Starting metrics listener")
	b.ProcessContext.ComponentStarted()
	go func() {
		defer b.ProcessContext.ComponentFinished()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Metrics listener failed")
			b.ProcessContext.Degraded()
		}
	}()
	go func() {
		<-b.ProcessContext.WaitForShutdown()
		_ = server.Close()
	}()
}

// WaitForShutdown blocks until a termination signal arrives, then tears the
// process down and waits for all components to drain.
func (b *BaseWarden) WaitForShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
	case <-b.ProcessContext.WaitForShutdown():
	}
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logrus.Warn("Shutdown signal received")
	b.ProcessContext.Shutdown()
	b.ProcessContext.WaitForComponentsToFinish()
	if b.Cfg.Global.Sentry.Enabled {
		if !sentry.Flush(time.Second * 5) {
			logrus.Warn("Failed to flush all Sentry events!")
		}
	}
	logrus.Warn("Voicewarden is exiting now")
}
