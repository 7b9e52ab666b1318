package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitediff/internal/model"
)

// BatchProcessor handles concurrent processing of multiple targets.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-target execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target.
	// We use a factory to ensure each run gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed runs. Access is synchronized via mutex.
	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Default is 1: site runs drive a shared browser, and serial runs keep
// output ordering predictable.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each target to create a
// fresh pipeline instance, so pipeline state doesn't leak between runs.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
		results:         make([]*model.Run, 0),
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs the pipeline for each target.
// It respects the configured concurrency limit and context cancellation.
//
// Returns all runs collected, even for targets that failed; a failed
// run carries its errors. The error return indicates cancellation.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Run, error) {
	bp.logger.Info("starting batch",
		slog.Int("targets", len(targets)),
		slog.Int("concurrency", bp.concurrency),
	)

	startTime := time.Now()

	// Pre-allocate to maintain target order in the results.
	bp.results = make([]*model.Run, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("processing target",
				slog.String("target", target),
				slog.Int("index", i+1),
				slog.Int("total", len(targets)),
			)

			run := model.NewRun(target)
			err := bp.pipelineFactory().Execute(gctx, run)

			bp.mu.Lock()
			bp.results[i] = run
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("target failed",
					slog.String("target", target),
					slog.String("error", err.Error()),
				)
				// Keep going: the error is recorded on the run, and other
				// targets should still be processed.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch complete",
		slog.Int("targets", len(targets)),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the pipeline for each target and invokes
// the callback as each run completes. The callback receives the run and
// its index in the targets slice.
//
// The callback may be invoked from multiple goroutines concurrently;
// callers that write shared output must synchronize.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, targets []string, callback func(run *model.Run, index int)) ([]*model.Run, error) {
	bp.logger.Info("starting batch",
		slog.Int("targets", len(targets)),
		slog.Int("concurrency", bp.concurrency),
	)

	bp.results = make([]*model.Run, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			run := model.NewRun(target)
			err := bp.pipelineFactory().Execute(gctx, run)

			bp.mu.Lock()
			bp.results[i] = run
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("target failed",
					slog.String("target", target),
					slog.String("error", err.Error()),
				)
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}

			if callback != nil {
				callback(run, i)
			}
			return nil
		})
	}

	err := g.Wait()
	return bp.results, err
}
