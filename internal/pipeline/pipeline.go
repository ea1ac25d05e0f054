package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/couchcryptid/emissions-impact-etl/internal/observability"
	"github.com/google/uuid"
)

// Extractor reads the raw table at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (domain.RawTable, error)
}

// Transformer converts a raw table into a derived dataset.
type Transformer interface {
	Transform(ctx context.Context, table domain.RawTable) (domain.Dataset, error)
}

// Loader hands a finished dataset to a destination.
type Loader interface {
	Load(ctx context.Context, ds domain.Dataset) error
}

// Pipeline orchestrates one extract-transform-load run per input file.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability. Loaders run
// in order after every successful transform.
func New(e Extractor, t Transformer, logger *slog.Logger, metrics *observability.Metrics, loaders ...Loader) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Ready reports whether a run has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run loads the file at path, derives the weighted dataset and passes it to
// every loader. Load, schema and strict-parse failures are returned; an
// empty dataset is returned with Empty set and no error.
func (p *Pipeline) Run(ctx context.Context, path string) (domain.Dataset, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ds, err := p.run(ctx, path)
	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues(observability.OutcomeError).Inc()
		p.logger.Error("pipeline run failed", "path", path, "error", err)
		return domain.Dataset{}, err
	}

	outcome := observability.OutcomeSuccess
	if ds.Empty {
		outcome = observability.OutcomeEmpty
		p.logger.Info("no records with a year", "path", path, "run_id", ds.RunID, "rows_read", ds.RowsRead)
	}
	p.metrics.PipelineRuns.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("pipeline run complete",
		"run_id", ds.RunID,
		"path", path,
		"rows_read", ds.RowsRead,
		"records", len(ds.Records),
		"rows_dropped", ds.RowsDropped,
		"parse_warnings", len(ds.Warnings),
		"duration", time.Since(start),
	)
	return ds, nil
}

func (p *Pipeline) run(ctx context.Context, path string) (domain.Dataset, error) {
	table, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("extract: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}

	ds, err := p.transformer.Transform(ctx, table)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("transform: %w", err)
	}

	p.metrics.RowsRead.Add(float64(ds.RowsRead))
	p.metrics.RowsKept.Add(float64(len(ds.Records)))
	p.metrics.RowsDropped.Add(float64(ds.RowsDropped))
	p.metrics.ParseWarnings.Add(float64(len(ds.Warnings)))

	ds.RunID = uuid.NewString()
	ds.Source = path
	ds.GeneratedAt = domain.Now()

	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			return domain.Dataset{}, err
		}
		if err := l.Load(ctx, ds); err != nil {
			return domain.Dataset{}, fmt.Errorf("load: %w", err)
		}
	}
	return ds, nil
}
