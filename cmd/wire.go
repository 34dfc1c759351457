package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/app"
	"github.com/JakeFAU/laborsync/internal/clock/system"
	"github.com/JakeFAU/laborsync/internal/config"
	"github.com/JakeFAU/laborsync/internal/dataset"
	md5hash "github.com/JakeFAU/laborsync/internal/hash/md5"
	"github.com/JakeFAU/laborsync/internal/id/uuid"
	"github.com/JakeFAU/laborsync/internal/ingest"
	"github.com/JakeFAU/laborsync/internal/metrics"
	"github.com/JakeFAU/laborsync/internal/pipeline"
	memorypublisher "github.com/JakeFAU/laborsync/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/laborsync/internal/publisher/pubsub"
	collyremote "github.com/JakeFAU/laborsync/internal/remote/colly"
	"github.com/JakeFAU/laborsync/internal/report"
	"github.com/JakeFAU/laborsync/internal/runstore"
	"github.com/JakeFAU/laborsync/internal/runstore/postgres"
	"github.com/JakeFAU/laborsync/internal/storage"
	"github.com/JakeFAU/laborsync/internal/storage/gcs"
	storagememory "github.com/JakeFAU/laborsync/internal/storage/memory"
	"github.com/JakeFAU/laborsync/internal/syncer"
)

// services holds the wired dependency graph behind every subcommand.
type services struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.BlobStore
	runs      runstore.Store
	pubsub    *pubsubpublisher.Publisher
	syncer    *syncer.Reconciler
	ingestion *app.IngestionPipeline
	analytics *app.AnalyticsPipeline
	closers   []func() error
}

// buildServices constructs every component from config. Backends
// degrade to in-memory implementations when unconfigured, which keeps
// local runs credential-free.
func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	metrics.Init()

	s := &services{cfg: cfg, logger: logger}

	if cfg.Storage.GCSBucket != "" {
		store, err := gcs.Connect(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("connect blob store: %w", err)
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
	} else {
		logger.Warn("no bucket configured, using in-memory blob store")
		s.store = storagememory.NewBlobStore()
	}

	if cfg.DB.DSN != "" {
		runs, err := postgres.New(ctx, postgres.Config{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		if err != nil {
			return nil, fmt.Errorf("connect run store: %w", err)
		}
		s.runs = runs
		s.closers = append(s.closers, func() error { runs.Close(); return nil })
	} else {
		logger.Warn("no database configured, keeping run history in memory")
		s.runs = runstore.NewMemoryStore()
	}

	var publisher pipeline.Publisher
	if cfg.PubSub.ProjectID != "" {
		ps, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		s.pubsub = ps
		s.closers = append(s.closers, ps.Close)
		publisher = ps
	} else {
		publisher = memorypublisher.New()
	}

	remote := collyremote.New(collyremote.Config{
		ContactEmail: cfg.Remote.ContactEmail,
		Marker:       cfg.Remote.Marker,
		Timeout:      cfg.HTTPTimeout(),
	})
	hasher := md5hash.New()
	clock := system.New()
	idGen := uuid.New()

	// The population object shares the prefix with the fragments but is
	// never in the remote listing; the deletion pass must leave it be.
	populationKey := cfg.Storage.Prefix + cfg.Population.TargetKey

	s.syncer = syncer.New(remote, remote, s.store, hasher, syncer.Config{
		BaseURL:      cfg.Remote.BaseURL,
		Prefix:       cfg.Storage.Prefix,
		RequestDelay: cfg.RequestDelay(),
		KeepKeys:     []string{populationKey},
	}, logger.Named("sync"))

	ingestor := ingest.New(remote.APIFetcher(), s.store, hasher, publisher, ingest.Config{
		APIURL:    cfg.Population.APIURL,
		TargetKey: populationKey,
		Topic:     cfg.PubSub.TopicName,
	}, logger.Named("ingest"))

	s.ingestion = app.NewIngestionPipeline(s.syncer, ingestor, s.runs, idGen, clock, logger.Named("ingestion"))

	loader := dataset.NewLoader(s.store, logger.Named("loader"))
	reports := report.New(report.Config{
		MinYear:  cfg.Reports.MinYear,
		MaxYear:  cfg.Reports.MaxYear,
		SeriesID: cfg.Reports.SeriesID,
		Period:   cfg.Reports.Period,
	}, logger.Named("report"))

	s.analytics = app.NewAnalyticsPipeline(loader, reports, s.runs, idGen, clock, app.AnalyticsConfig{
		Prefix:         cfg.Storage.Prefix,
		FragmentMarker: cfg.Remote.FragmentMarker,
		PopulationKey:  populationKey,
	}, logger.Named("analytics"))

	return s, nil
}

// Close releases held connections in reverse construction order.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", zap.Error(err))
		}
	}
}
