package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
)

// EmissionsTransformer implements Transformer using the domain engine:
// normalize, derive the weighted columns, summarize.
type EmissionsTransformer struct {
	gc     domain.GasConstants
	topN   int
	strict bool
	logger *slog.Logger
}

// NewTransformer creates an EmissionsTransformer. With strict set, any
// unparsable numeric cell fails the transform after the whole table has been
// scanned.
func NewTransformer(gc domain.GasConstants, topN int, strict bool, logger *slog.Logger) *EmissionsTransformer {
	return &EmissionsTransformer{
		gc:     gc,
		topN:   topN,
		strict: strict,
		logger: logger,
	}
}

// Transform turns a raw table into a dataset. RunID, Source and GeneratedAt
// are left for the caller. An empty result is not an error: the dataset
// comes back with Empty set.
func (t *EmissionsTransformer) Transform(_ context.Context, table domain.RawTable) (domain.Dataset, error) {
	res, err := domain.Normalize(table)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("normalize: %w", err)
	}

	for i := range res.Warnings {
		w := res.Warnings[i]
		t.logger.Warn("unparsable number read as zero",
			"line", w.Line,
			"column", w.Column,
			"value", w.Value,
		)
	}
	if t.strict {
		if err := res.StrictError(); err != nil {
			return domain.Dataset{}, fmt.Errorf("strict parse: %w", err)
		}
	}

	derived := domain.DeriveWeighted(res.Records, t.gc)

	stats, err := domain.SummarizeTop(derived, t.topN)
	empty := errors.Is(err, domain.ErrEmptyDataset)
	if err != nil && !empty {
		return domain.Dataset{}, fmt.Errorf("summarize: %w", err)
	}

	return domain.Dataset{
		Records:     derived,
		Stats:       stats,
		Warnings:    res.Warnings,
		RowsRead:    res.RowsRead,
		RowsDropped: res.Dropped,
		Empty:       empty,
	}, nil
}
