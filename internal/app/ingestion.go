// Package app wires the core components into the two pipelines the
// trigger surfaces invoke: ingestion (sync + population ingest) and
// analytics (load + reports). Each pipeline records its run in the run
// store and always returns a structured result, never a fault.
package app

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/ingest"
	"github.com/JakeFAU/laborsync/internal/metrics"
	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/runstore"
	"github.com/JakeFAU/laborsync/internal/syncer"
)

// SyncRunner executes one sync reconciliation.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Stats, error)
}

// IngestRunner executes one dataset ingest.
type IngestRunner interface {
	Run(ctx context.Context) ingest.Result
}

// IngestionResult summarizes one ingestion pipeline run.
type IngestionResult struct {
	RunID      string         `json:"run_id"`
	Sync       *syncer.Stats  `json:"bls_sync,omitempty"`
	SyncError  string         `json:"bls_sync_error,omitempty"`
	Population *ingest.Result `json:"population_ingest,omitempty"`
	Success    bool           `json:"success"`
}

// IngestionPipeline runs the directory sync followed by the population
// ingest, each under its own failure boundary.
type IngestionPipeline struct {
	sync   SyncRunner
	ingest IngestRunner
	runs   runstore.Store
	idGen  pipeline.IDGenerator
	clock  pipeline.Clock
	logger *zap.Logger
}

// NewIngestionPipeline constructs an IngestionPipeline.
func NewIngestionPipeline(
	sync SyncRunner,
	ingest IngestRunner,
	runs runstore.Store,
	idGen pipeline.IDGenerator,
	clock pipeline.Clock,
	logger *zap.Logger,
) *IngestionPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestionPipeline{
		sync:   sync,
		ingest: ingest,
		runs:   runs,
		idGen:  idGen,
		clock:  clock,
		logger: logger,
	}
}

// Run executes the pipeline. A sync failure is recorded in the result
// but does not stop the population ingest; overall success follows the
// population outcome (UPDATED or SKIPPED).
func (p *IngestionPipeline) Run(ctx context.Context) IngestionResult {
	result := IngestionResult{RunID: p.startRun(ctx, pipeline.RunKindIngestion)}
	p.logger.Info("ingestion pipeline started", zap.String("run_id", result.RunID))

	stats, err := p.sync.Run(ctx)
	if err != nil {
		result.SyncError = err.Error()
		p.logger.Error("directory sync failed", zap.String("run_id", result.RunID), zap.Error(err))
	} else {
		result.Sync = &stats
		metrics.ObserveSyncFiles(stats.Uploaded, stats.Skipped, stats.Failed, stats.Deleted)
	}

	ingestResult := p.ingest.Run(ctx)
	result.Population = &ingestResult
	metrics.ObserveIngest(string(ingestResult.Status))

	result.Success = ingestResult.Status == ingest.StatusUpdated ||
		ingestResult.Status == ingest.StatusSkipped

	p.finishRun(ctx, result.RunID, pipeline.RunKindIngestion, result.Success, result)
	p.logger.Info("ingestion pipeline finished",
		zap.String("run_id", result.RunID),
		zap.Bool("success", result.Success),
	)
	return result
}

// startRun opens a run record; a run store failure is logged, never fatal.
func (p *IngestionPipeline) startRun(ctx context.Context, kind pipeline.RunKind) string {
	return startRun(ctx, p.runs, p.idGen, p.clock, kind, p.logger)
}

func (p *IngestionPipeline) finishRun(ctx context.Context, id string, kind pipeline.RunKind, success bool, result any) {
	finishRun(ctx, p.runs, p.clock, id, kind, success, result, p.logger)
}

func startRun(
	ctx context.Context,
	runs runstore.Store,
	idGen pipeline.IDGenerator,
	clock pipeline.Clock,
	kind pipeline.RunKind,
	logger *zap.Logger,
) string {
	id, err := idGen.NewID()
	if err != nil {
		logger.Error("run id generation failed", zap.Error(err))
		return "unidentified"
	}
	if runs == nil {
		return id
	}
	run := pipeline.Run{
		ID:      id,
		Kind:    kind,
		Status:  pipeline.RunStatusRunning,
		Started: clock.Now(),
	}
	if err := runs.CreateRun(ctx, run); err != nil {
		logger.Error("run record creation failed", zap.String("run_id", id), zap.Error(err))
	}
	return id
}

func finishRun(
	ctx context.Context,
	runs runstore.Store,
	clock pipeline.Clock,
	id string,
	kind pipeline.RunKind,
	success bool,
	result any,
	logger *zap.Logger,
) {
	status := pipeline.RunStatusSucceeded
	if !success {
		status = pipeline.RunStatusFailed
	}
	metrics.ObservePipelineRun(string(kind), string(status))

	if runs == nil {
		return
	}
	detail, err := json.Marshal(result)
	if err != nil {
		logger.Error("run detail marshal failed", zap.String("run_id", id), zap.Error(err))
		detail = nil
	}
	if err := runs.FinishRun(ctx, id, status, clock.Now(), detail); err != nil {
		logger.Error("run record finish failed", zap.String("run_id", id), zap.Error(err))
	}
}
