package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/laborsync/internal/dataset"
	"github.com/JakeFAU/laborsync/internal/metrics"
	"github.com/JakeFAU/laborsync/internal/pipeline"
	"github.com/JakeFAU/laborsync/internal/report"
	"github.com/JakeFAU/laborsync/internal/runstore"
)

// DataLoader reads the synced datasets out of storage.
type DataLoader interface {
	LoadTimeSeries(ctx context.Context, prefix, marker string) (*dataset.Table, error)
	LoadPopulation(ctx context.Context, key string) ([]dataset.PopulationRow, error)
}

// AnalyticsResult summarizes one analytics pipeline run.
type AnalyticsResult struct {
	RunID      string                  `json:"run_id"`
	Population *report.PopulationStats `json:"population_stats,omitempty"`
	BestYears  *report.BestYears       `json:"best_years,omitempty"`
	Unified    *report.Unified         `json:"unified,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Success    bool                    `json:"success"`
}

// AnalyticsConfig locates the datasets the reports read.
type AnalyticsConfig struct {
	Prefix         string
	FragmentMarker string
	PopulationKey  string
}

// AnalyticsPipeline loads both datasets and runs the three reports.
type AnalyticsPipeline struct {
	loader  DataLoader
	reports *report.Generator
	runs    runstore.Store
	idGen   pipeline.IDGenerator
	clock   pipeline.Clock
	cfg     AnalyticsConfig
	logger  *zap.Logger
}

// NewAnalyticsPipeline constructs an AnalyticsPipeline.
func NewAnalyticsPipeline(
	loader DataLoader,
	reports *report.Generator,
	runs runstore.Store,
	idGen pipeline.IDGenerator,
	clock pipeline.Clock,
	cfg AnalyticsConfig,
	logger *zap.Logger,
) *AnalyticsPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsPipeline{
		loader:  loader,
		reports: reports,
		runs:    runs,
		idGen:   idGen,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run loads the datasets and executes the reports. A load failure is a
// run-level error; individual report failures are carried inside the
// result and only flip the overall success flag.
func (p *AnalyticsPipeline) Run(ctx context.Context) AnalyticsResult {
	result := AnalyticsResult{RunID: startRun(ctx, p.runs, p.idGen, p.clock, pipeline.RunKindAnalytics, p.logger)}
	p.logger.Info("analytics pipeline started", zap.String("run_id", result.RunID))

	table, err := p.loader.LoadTimeSeries(ctx, p.cfg.Prefix, p.cfg.FragmentMarker)
	if err != nil {
		return p.fail(ctx, result, "load time series: "+err.Error())
	}
	population, err := p.loader.LoadPopulation(ctx, p.cfg.PopulationKey)
	if err != nil {
		return p.fail(ctx, result, "load population: "+err.Error())
	}

	stats, best, unified, ok := p.reports.All(table, population)
	result.Population = &stats
	result.BestYears = &best
	result.Unified = &unified
	result.Success = ok
	metrics.ObserveReport("population_stats", string(stats.Status))
	metrics.ObserveReport("best_years", string(best.Status))
	metrics.ObserveReport("unified", string(unified.Status))

	finishRun(ctx, p.runs, p.clock, result.RunID, pipeline.RunKindAnalytics, result.Success, result, p.logger)
	p.logger.Info("analytics pipeline finished",
		zap.String("run_id", result.RunID),
		zap.Bool("success", result.Success),
	)
	return result
}

func (p *AnalyticsPipeline) fail(ctx context.Context, result AnalyticsResult, msg string) AnalyticsResult {
	result.Error = msg
	p.logger.Error("analytics pipeline failed", zap.String("run_id", result.RunID), zap.String("reason", msg))
	finishRun(ctx, p.runs, p.clock, result.RunID, pipeline.RunKindAnalytics, false, result, p.logger)
	return result
}
