// Package server assembles the gateway: identity store, blob store, scratch
// area, encoder, services and the HTTP API, and runs it until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/blobgate/internal/filex"
	"github.com/dmitrijs2005/blobgate/internal/logging"
	"github.com/dmitrijs2005/blobgate/internal/server/blobstore"
	"github.com/dmitrijs2005/blobgate/internal/server/config"
	"github.com/dmitrijs2005/blobgate/internal/server/encoder"
	"github.com/dmitrijs2005/blobgate/internal/server/httpapi"
	"github.com/dmitrijs2005/blobgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blobgate/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

var (
	openDB = repomanager.OpenPostgres

	newS3Store = func(ctx context.Context, o blobstore.S3Options, logger logging.Logger) (bucketStore, error) {
		return blobstore.NewS3Store(ctx, o, logger)
	}
)

// bucketStore is a blob store that has to create its bucket before use.
type bucketStore interface {
	blobstore.Store
	EnsureBucket(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	server  *httpapi.Server
}

// NewApp connects to the identity store, applies migrations, prepares the
// blob store and wires the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	app, err := newApp(cfg, logger, db, rm, store)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (blobstore.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendMemory:
		logger.Warn(ctx, "Using in-memory blob store, objects are lost on restart")
		return blobstore.NewMemoryStore(), nil
	case config.BlobBackendS3:
		s, err := newS3Store(ctx, blobstore.S3Options{
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			BaseEndpoint: cfg.S3BaseEndpoint,
			UsePathStyle: cfg.S3UsePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, store blobstore.Store) (*App, error) {
	scratch, err := filex.NewScratch(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("scratch dir error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	profile := encoder.Profile{
		VideoCodec: cfg.EncoderVideoCodec,
		AudioCodec: cfg.EncoderAudioCodec,
		Container:  cfg.EncoderContainer,
		Quality:    cfg.EncoderQuality,
		Preset:     cfg.EncoderPreset,
	}

	credentials := services.NewCredentialService(db, rm, cfg, logger)
	keys := services.NewKeyDeriver()
	ingester := services.NewIngestService(credentials, store, keys, logger)
	lister := services.NewListService(credentials, store, logger)
	transcoder := services.NewTranscodeService(
		credentials, store, keys, scratch,
		encoder.NewFFmpeg(cfg.EncoderBinary, profile, logger),
		cfg.MaxConcurrentTranscodes,
		services.NewTranscodeMetrics(reg),
		logger,
	)

	handlers := httpapi.NewHandlers(credentials, ingester, lister, transcoder, logger)
	handler := httpapi.NewAPI(handlers, httpapi.NewMetrics(reg), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		handler: handler,
		server:  httpapi.NewServer(cfg.EndpointAddrHTTP, handler, cfg.ShutdownTimeout, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves until ctx is cancelled or a shutdown signal arrives, then
// drains the HTTP server and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	stop := app.initSignalHandler(cancelFunc)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})

	err := g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "Error closing database", "error", cerr)
		}
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
