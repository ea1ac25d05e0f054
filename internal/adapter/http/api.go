package http

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type errorResponse struct {
	Error string `json:"error"`
}

// envelope carries the run metadata every API response shares.
type envelope struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Empty       bool      `json:"empty"`
}

type summaryResponse struct {
	envelope
	View               domain.View                  `json:"view"`
	Info               domain.Info                  `json:"info"`
	KeyMetrics         domain.KeyMetrics            `json:"key_metrics"`
	Stats              domain.AggregateStats        `json:"stats"`
	TotalsByYear       []domain.YearValue           `json:"totals_by_year"`
	GasByYear          []domain.YearGasValues       `json:"gas_by_year"`
	TopClassifications []domain.ClassificationValue `json:"top_classifications"`
	ParseWarnings      int                          `json:"parse_warnings"`
}

type recordsResponse struct {
	envelope
	Records []domain.DerivedRecord `json:"records"`
}

type correlationsResponse struct {
	envelope
	Correlations []domain.Correlation `json:"correlations"`
}

// summaryJSON mirrors domain.Summary with NaN statistics encoded as null.
type summaryJSON struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Median *float64 `json:"median"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
}

type describeResponse struct {
	envelope
	Columns []summaryJSON `json:"columns"`
}

// query is the parsed filter and view of a request.
type query struct {
	selection domain.Selection
	view      domain.View
	top       int
}

func (s *Server) parseQuery(v url.Values) (query, error) {
	years, err := domain.ParseYears(v.Get("years"))
	if err != nil {
		return query{}, err
	}
	view, err := domain.ParseView(v.Get("view"))
	if err != nil {
		return query{}, err
	}
	q := query{
		selection: domain.Selection{Years: years},
		view:      view,
		top:       s.api.TopN,
	}
	if raw := v.Get("industrial"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return query{}, errors.New("industrial must be true or false")
		}
		q.selection.Industrial = b
	}
	if raw := v.Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > domain.MaxTopN {
			return query{}, errors.New("top must be an integer within 1-50")
		}
		q.top = n
	}
	return q, nil
}

// load runs the pipeline and applies the request's selection. It writes the
// error response itself and returns false when the handler should stop.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (domain.Dataset, query, []domain.DerivedRecord, bool) {
	q, err := s.parseQuery(r.URL.Query())
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return domain.Dataset{}, query{}, nil, false
	}
	ds, err := s.api.Runner.Run(r.Context(), s.api.InputPath)
	if err != nil {
		s.logger.Error("api load failed", "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return domain.Dataset{}, query{}, nil, false
	}
	return ds, q, q.selection.Apply(ds.Records), true
}

func newEnvelope(ds domain.Dataset, records []domain.DerivedRecord) envelope {
	return envelope{
		RunID:       ds.RunID,
		Source:      ds.Source,
		GeneratedAt: ds.GeneratedAt,
		Empty:       len(records) == 0,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, q, records, ok := s.load(w, r)
	if !ok {
		return
	}

	stats, err := domain.SummarizeTop(records, q.top)
	if err != nil && !errors.Is(err, domain.ErrEmptyDataset) {
		sharedobs.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, summaryResponse{
		envelope:           newEnvelope(ds, records),
		View:               q.view,
		Info:               domain.DatasetInfo(records),
		KeyMetrics:         domain.ComputeKeyMetrics(records, q.view),
		Stats:              stats,
		TotalsByYear:       nonNil(domain.TotalsByYear(records, q.view)),
		GasByYear:          nonNil(domain.GasSeriesByYear(records, q.view)),
		TopClassifications: nonNil(domain.TopClassifications(records, q.view, q.top)),
		ParseWarnings:      len(ds.Warnings),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ds, _, records, ok := s.load(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, recordsResponse{
		envelope: newEnvelope(ds, records),
		Records:  nonNil(records),
	})
}

func (s *Server) handleGases(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, domain.GasImpactInfo(s.api.GasConstants))
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	ds, _, records, ok := s.load(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, correlationsResponse{
		envelope:     newEnvelope(ds, records),
		Correlations: domain.Correlations(records),
	})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	ds, _, records, ok := s.load(w, r)
	if !ok {
		return
	}
	summaries := domain.Describe(records)
	cols := make([]summaryJSON, len(summaries))
	for i, sm := range summaries {
		cols[i] = summaryJSON{
			Column: sm.Column,
			Count:  sm.Count,
			Mean:   finite(sm.Mean),
			Std:    finite(sm.Std),
			Min:    finite(sm.Min),
			Q25:    finite(sm.Q25),
			Median: finite(sm.Median),
			Q75:    finite(sm.Q75),
			Max:    finite(sm.Max),
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, describeResponse{
		envelope: newEnvelope(ds, records),
		Columns:  cols,
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
