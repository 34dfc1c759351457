// Package ingest implements the content-addressed dataset ingestor: it
// fetches one structured JSON resource, canonicalizes it, fingerprints
// it, and replaces the stored copy only when the content changed.
package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/storage"
)

// Status is the outcome of one ingest run.
type Status string

// Ingest outcome values.
const (
	StatusUpdated Status = "UPDATED"
	StatusSkipped Status = "SKIPPED"
	StatusError   Status = "ERROR"
)

// Result summarizes one ingest run. Failures are reported through the
// ERROR status, never raised to the caller.
type Result struct {
	Status      Status `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Key         string `json:"key,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Config controls Ingestor behavior.
type Config struct {
	// APIURL is the JSON resource to ingest.
	APIURL string
	// TargetKey is the store key holding the canonical copy.
	TargetKey string
	// Topic, when set, receives an object-written notification after
	// each successful upload.
	Topic string
}

// Ingestor performs content-addressed idempotent writes of an upstream
// JSON resource.
type Ingestor struct {
	fetcher   pipeline.Fetcher
	store     storage.BlobStore
	hasher    pipeline.Hasher
	publisher pipeline.Publisher
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Ingestor. The publisher may be nil when no
// notification fan-out is configured.
func New(
	fetcher pipeline.Fetcher,
	store storage.BlobStore,
	hasher pipeline.Hasher,
	publisher pipeline.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		fetcher:   fetcher,
		store:     store,
		hasher:    hasher,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run fetches the resource, canonicalizes it, and conditionally writes
// it to the store. Repeated runs against unchanged upstream data write
// once and return SKIPPED thereafter, with the same fingerprint.
func (i *Ingestor) Run(ctx context.Context) Result {
	raw, err := i.fetcher.Fetch(ctx, i.cfg.APIURL)
	if err != nil {
		i.logger.Error("dataset fetch failed", zap.String("url", i.cfg.APIURL), zap.Error(err))
		return Result{Status: StatusError, Message: "fetch dataset: " + err.Error()}
	}

	canonical, err := Canonicalize(raw)
	if err != nil {
		i.logger.Error("dataset parse failed", zap.String("url", i.cfg.APIURL), zap.Error(err))
		return Result{Status: StatusError, Message: "parse dataset: " + err.Error()}
	}

	fingerprint, err := i.hasher.Hash(canonical)
	if err != nil {
		return Result{Status: StatusError, Message: "fingerprint dataset: " + err.Error()}
	}
	i.logger.Debug("computed dataset fingerprint", zap.String("fingerprint", fingerprint))

	stored, err := i.store.Head(ctx, i.cfg.TargetKey)
	switch {
	case err == nil:
		if stored == fingerprint {
			i.logger.Info("dataset unchanged", zap.String("key", i.cfg.TargetKey))
			return Result{Status: StatusSkipped, Fingerprint: fingerprint, Key: i.cfg.TargetKey}
		}
		i.logger.Info("dataset changed", zap.String("key", i.cfg.TargetKey))
	case errors.Is(err, storage.ErrNotFound):
		i.logger.Info("dataset not yet stored", zap.String("key", i.cfg.TargetKey))
	default:
		i.logger.Error("store head failed", zap.String("key", i.cfg.TargetKey), zap.Error(err))
		return Result{Status: StatusError, Message: "check stored dataset: " + err.Error()}
	}

	if _, err := i.store.Put(ctx, i.cfg.TargetKey, "application/json", canonical); err != nil {
		i.logger.Error("dataset upload failed", zap.String("key", i.cfg.TargetKey), zap.Error(err))
		return Result{Status: StatusError, Message: "upload dataset: " + err.Error()}
	}
	i.logger.Info("dataset uploaded",
		zap.String("key", i.cfg.TargetKey),
		zap.String("fingerprint", fingerprint),
	)

	i.notify(ctx, fingerprint)

	return Result{Status: StatusUpdated, Fingerprint: fingerprint, Key: i.cfg.TargetKey}
}

// notify publishes an object-written event. Best effort: a publish
// failure does not change the ingest outcome.
func (i *Ingestor) notify(ctx context.Context, fingerprint string) {
	if i.publisher == nil || i.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"key":         i.cfg.TargetKey,
		"fingerprint": fingerprint,
	}
	if _, err := i.publisher.Publish(ctx, i.cfg.Topic, payload); err != nil {
		i.logger.Warn("object-written notification failed", zap.Error(err))
	}
}
