package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/geo-guardian/internal/alert"
	"github.com/oshokin/geo-guardian/internal/api"
	"github.com/oshokin/geo-guardian/internal/config"
	"github.com/oshokin/geo-guardian/internal/encoder"
	"github.com/oshokin/geo-guardian/internal/geocoder"
	ingestmqtt "github.com/oshokin/geo-guardian/internal/ingest/mqtt"
	"github.com/oshokin/geo-guardian/internal/logger"
	"github.com/oshokin/geo-guardian/internal/notifier"
	"github.com/oshokin/geo-guardian/internal/repository/events"
	"github.com/oshokin/geo-guardian/internal/repository/membership"
	"github.com/oshokin/geo-guardian/internal/routing"
	"github.com/oshokin/geo-guardian/internal/scorer"
	"github.com/oshokin/geo-guardian/internal/service/pipeline"
	"github.com/oshokin/geo-guardian/internal/tracker"
)

// shutdownTimeout bounds the HTTP server drain on exit.
const shutdownTimeout = 10 * time.Second

// Options controls the geo-guardian server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP server.
	ListenAddress string
}

// Run starts the geo-guardian server and blocks until context is canceled
// or the server stops. Loads configuration first, wires the ingestion
// pipeline, then serves HTTP and (when configured) subscribes to the
// OwnTracks MQTT topic.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "geo-guardian")

	// Once per process, not per router build.
	gin.SetMode(gin.ReleaseMode)

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	// Classifier bundle and encoding table come from the same export;
	// nothing is scored until both load.
	bundle, err := scorer.LoadBundle(settings.ModelBundle)
	if err != nil {
		return fmt.Errorf("load model bundle: %w", err)
	}

	store, err := events.Open(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Errorf(ctx, "Failed to close event store: %v", closeErr)
		}
	}()

	memberships, err := newMembershipRepository(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise membership store: %w", err)
	}

	gateway := notifier.NewGateway(settings.Notifier, settings.CollaboratorTimeout)
	workflow := alert.NewWorkflow(gateway, settings.VoiceDestination, settings.AlertTimeout)

	ingest := pipeline.New(pipeline.Options{
		Tracker:             tracker.New(memberships),
		Encoder:             encoder.New(bundle.Table, settings.UTCOffsetMinutes),
		Ensemble:            scorer.NewEnsemble(bundle.Spatial, bundle.Temporal),
		Store:               store,
		Geocoder:            geocoder.New(settings.Geocoder.BaseURL, settings.CollaboratorTimeout),
		Alerter:             workflow,
		Responder:           settings.ResponderContact,
		UTCOffsetMinutes:    settings.UTCOffsetMinutes,
		CollaboratorTimeout: settings.CollaboratorTimeout,
	})

	planner := routing.New(settings.Router.BaseURL, settings.CollaboratorTimeout)
	handler := api.NewServer(ingest, store, planner, settings.Router.MaxPoints)

	if settings.MQTT.BrokerAddress != "" {
		subscriber := ingestmqtt.NewSubscriber(settings.MQTT, ingest)
		if err := subscriber.Start(ctx); err != nil {
			return fmt.Errorf("start broker subscription: %w", err)
		}

		defer subscriber.Stop()
	}

	return serveHTTP(ctx, listenAddress, handler.Router())
}

// newMembershipRepository picks the membership store: redis when an address
// is configured, process memory otherwise.
func newMembershipRepository(ctx context.Context, settings *config.Config) (membership.Repository, error) {
	if settings.Redis.Address == "" {
		return membership.NewMemoryRepository(), nil
	}

	return membership.NewRedisRepository(ctx, settings.Redis.Address, settings.Redis.Password, settings.Redis.DB)
}

// serveHTTP runs the HTTP server and blocks until the context is canceled
// or the listener fails. Done channel is closed after Shutdown finishes to
// ensure we block until the server fully drains before returning.
func serveHTTP(ctx context.Context, listenAddress string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "HTTP server shutdown failed: %v", err)
		}

		close(done)
	}()

	logger.InfoKV(ctx, "Server listening", "listen_address", listenAddress)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}
