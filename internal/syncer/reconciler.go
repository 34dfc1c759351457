// Package syncer implements the sync reconciler: it diffs a remote
// directory listing against the blob store and applies the difference,
// uploading new or changed files and deleting files that disappeared
// upstream. Content equality is decided by MD5 fingerprints so reruns
// against an unchanged remote are no-ops on the store.
package syncer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/storage"
)

// Stats summarizes one reconciliation run. Every discovered remote item
// lands in exactly one of uploaded/skipped/failed.
type Stats struct {
	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Deleted  int `json:"deleted"`
}

// Config controls Reconciler behavior.
type Config struct {
	// BaseURL is the remote directory listing to mirror.
	BaseURL string
	// Prefix is prepended to basenames to form store keys. By
	// convention it carries its own trailing separator ("bls-data/").
	Prefix string
	// RequestDelay is the fixed inter-request delay toward the remote
	// host. Zero disables rate limiting.
	RequestDelay time.Duration
	// KeepKeys lists store keys the deletion pass must never remove.
	// The canonical population object lives under the prefix but never
	// appears in the remote listing.
	KeepKeys []string
}

// Reconciler computes and applies the upload/skip/delete plan.
type Reconciler struct {
	lister  pipeline.DirectoryLister
	fetcher pipeline.Fetcher
	store   storage.BlobStore
	hasher  pipeline.Hasher
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Reconciler.
func New(
	lister pipeline.DirectoryLister,
	fetcher pipeline.Fetcher,
	store storage.BlobStore,
	hasher pipeline.Hasher,
	cfg Config,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestDelay), 1)
	}
	return &Reconciler{
		lister:  lister,
		fetcher: fetcher,
		store:   store,
		hasher:  hasher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes one reconciliation. Per-item fetch and upload failures
// are counted, never fatal. A failed directory listing aborts the run
// before the deletion pass: deleting the whole mirror on a transient
// network error is never the right outcome.
func (r *Reconciler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	existing, err := r.existingFingerprints(ctx)
	if err != nil {
		return stats, fmt.Errorf("list existing objects: %w", err)
	}
	r.logger.Info("checked existing store objects", zap.Int("count", len(existing)))

	items, err := r.lister.ListItems(ctx, r.cfg.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("list remote directory: %w", err)
	}
	r.logger.Info("fetched remote directory listing",
		zap.String("base_url", r.cfg.BaseURL),
		zap.Int("files", len(items)),
	)

	for _, item := range items {
		r.syncItem(ctx, item, existing, &stats)
	}

	if err := r.deleteVanished(ctx, items, &stats); err != nil {
		return stats, err
	}

	r.logger.Info("sync complete",
		zap.Int("uploaded", stats.Uploaded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("deleted", stats.Deleted),
	)
	return stats, nil
}

// existingFingerprints maps normalized basenames to the fingerprints
// currently in the store under the configured prefix.
func (r *Reconciler) existingFingerprints(ctx context.Context) (map[string]string, error) {
	objects, err := r.store.List(ctx, r.cfg.Prefix)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]string, len(objects))
	for _, obj := range objects {
		existing[r.normalizeKey(obj.Key)] = obj.Fingerprint
	}
	return existing, nil
}

func (r *Reconciler) syncItem(ctx context.Context, item pipeline.RemoteItem, existing map[string]string, stats *Stats) {
	basename := path.Base(item.Name)

	if err := r.limiter.Wait(ctx); err != nil {
		stats.Failed++
		r.logger.Error("rate limiter wait failed", zap.String("file", basename), zap.Error(err))
		return
	}

	content, err := r.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		stats.Failed++
		r.logger.Error("fetch failed", zap.String("file", basename), zap.Error(err))
		return
	}

	fingerprint, err := r.hasher.Hash(content)
	if err != nil {
		stats.Failed++
		r.logger.Error("fingerprint failed", zap.String("file", basename), zap.Error(err))
		return
	}

	if stored, ok := existing[basename]; ok && stored == fingerprint {
		stats.Skipped++
		r.logger.Debug("skipped unchanged file", zap.String("file", basename))
		return
	}

	key := r.cfg.Prefix + basename
	if _, err := r.store.Put(ctx, key, "", content); err != nil {
		stats.Failed++
		r.logger.Error("upload failed", zap.String("key", key), zap.Error(err))
		return
	}
	stats.Uploaded++
	r.logger.Info("uploaded file", zap.String("key", key), zap.String("fingerprint", fingerprint))
}

// deleteVanished removes stored objects whose basename no longer appears
// in the remote listing. The store is re-listed fresh so objects
// uploaded earlier in this run are inventoried correctly.
func (r *Reconciler) deleteVanished(ctx context.Context, items []pipeline.RemoteItem, stats *Stats) error {
	if len(items) == 0 {
		// An empty listing would mark every stored object for deletion.
		// Emptying the mirror is never worth the risk of acting on a
		// degenerate listing; leave the store alone.
		r.logger.Warn("remote listing empty, skipping deletion pass")
		return nil
	}

	current := make(map[string]struct{}, len(items))
	for _, item := range items {
		current[path.Base(item.Name)] = struct{}{}
	}
	keep := make(map[string]struct{}, len(r.cfg.KeepKeys))
	for _, key := range r.cfg.KeepKeys {
		keep[key] = struct{}{}
	}

	objects, err := r.store.List(ctx, r.cfg.Prefix)
	if err != nil {
		return fmt.Errorf("list store for deletion pass: %w", err)
	}

	for _, obj := range objects {
		if _, ok := keep[obj.Key]; ok {
			continue
		}
		if _, ok := current[r.normalizeKey(obj.Key)]; ok {
			continue
		}
		if err := r.store.Delete(ctx, obj.Key); err != nil {
			r.logger.Error("delete failed", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		stats.Deleted++
		r.logger.Info("deleted vanished file", zap.String("key", obj.Key))
	}
	return nil
}

// normalizeKey strips the configured prefix and any leading separator,
// yielding the basename-space name used for remote comparison.
func (r *Reconciler) normalizeKey(key string) string {
	return strings.TrimLeft(strings.Replace(key, r.cfg.Prefix, "", 1), "/")
}
