// Package prescription runs the full label pipeline: clean the OCR lines,
// match them against the lexicon, look up each candidate's usage text and
// turn it into medicine records and alarms.
package prescription

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pillbox/internal/druginfo"
	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/matcher"
	"github.com/hyperjump/pillbox/internal/metrics"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/normalize"
	"github.com/hyperjump/pillbox/internal/schedule"
	"github.com/hyperjump/pillbox/internal/usage"
)

// Sentinel record names. Parse always returns at least one record.
const (
	NoMedicineName = "약 정보 없음 (Lexicon 확인 필요)"
	ParseErrorName = "파싱 오류"
)

// ClassificationUnknown marks records whose drug information could not be retrieved.
const ClassificationUnknown = "unknown"

// DefaultLookupTimeout bounds each drug-information call made during Parse.
const DefaultLookupTimeout = 10 * time.Second

// Service wires the lexicon store, the matcher and the drug-information client.
type Service struct {
	store         *lexicon.Store
	client        druginfo.Client
	logger        *zap.Logger
	metrics       *metrics.Metrics
	minConfidence float64
	lookupTimeout time.Duration
	matcherOpts   []matcher.Option
	meals         schedule.MealTimes
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records parse and lookup metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMinConfidence sets the OCR score below which lines are dropped.
func WithMinConfidence(v float64) Option {
	return func(s *Service) {
		if v >= 0 && v <= 1 {
			s.minConfidence = v
		}
	}
}

// WithLookupTimeout bounds every drug-information call.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithMatcherOptions passes options to the matcher built for each request.
func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(s *Service) { s.matcherOpts = append(s.matcherOpts, opts...) }
}

// WithMealTimes sets the meal times used when a request supplies none.
func WithMealTimes(mt schedule.MealTimes) Option {
	return func(s *Service) { s.meals = mt }
}

// NewService creates a service. A nil client makes every lookup "not found".
func NewService(store *lexicon.Store, client druginfo.Client, opts ...Option) *Service {
	if store == nil {
		store = lexicon.NewStore(nil)
	}
	s := &Service{
		store:         store,
		client:        client,
		logger:        zap.NewNop(),
		minConfidence: normalize.DefaultMinConfidence,
		lookupTimeout: DefaultLookupTimeout,
		meals:         schedule.DefaultMealTimes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the lexicon store.
func (s *Service) Store() *lexicon.Store {
	return s.store
}

// MealTimes returns the default meal times.
func (s *Service) MealTimes() schedule.MealTimes {
	return s.meals
}

// MatchResult is the matcher output together with what cleaning removed.
type MatchResult struct {
	Lines      []string                `json:"lines"`
	Candidates []models.MatchCandidate `json:"candidates"`
	Stats      normalize.CleanStats    `json:"stats"`
}

// Match cleans the batch and matches it against the current lexicon
// snapshot without looking anything up.
func (s *Service) Match(batch models.OCRBatch) MatchResult {
	lines, stats := normalize.Clean(batch, s.minConfidence)
	m := matcher.New(s.store.Current(), s.matcherOpts...)
	return MatchResult{Lines: lines, Candidates: m.Match(lines), Stats: stats}
}

// Parse runs the whole pipeline. It never returns an error: lookup failures
// become records with zero dosing, and an internal fault becomes a single
// "파싱 오류" record with no candidates.
func (s *Service) Parse(ctx context.Context, batch models.OCRBatch) (res models.ParseResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("parse panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
				zap.Int("lines", len(batch.Texts)))
			res = models.ParseResult{
				Medicines:  []models.MedicineRecord{sentinel(ParseErrorName)},
				Candidates: []models.MatchCandidate{},
			}
			s.metrics.RecordParse("error", 0, time.Since(start))
		}
	}()

	matched := s.Match(batch)
	s.logger.Debug("ocr lines cleaned",
		zap.Int("input", matched.Stats.Input),
		zap.Int("kept", matched.Stats.Kept),
		zap.Int("noise", matched.Stats.Noise),
		zap.Int("low_confidence", matched.Stats.LowConfidence),
		zap.Int("candidates", len(matched.Candidates)))

	duration := usage.Duration(matched.Lines)
	records := make([]models.MedicineRecord, 0, len(matched.Candidates))
	for _, c := range matched.Candidates {
		rec := s.record(ctx, c)
		rec.DurationDays = duration
		records = append(records, rec)
	}

	outcome := "ok"
	if len(records) == 0 {
		outcome = "empty"
		records = []models.MedicineRecord{sentinel(NoMedicineName)}
	}
	s.metrics.RecordParse(outcome, len(matched.Candidates), time.Since(start))
	return models.ParseResult{Medicines: records, Candidates: matched.Candidates}
}

// record looks up c by its bare canonical name and resolves the usage text.
func (s *Service) record(ctx context.Context, c models.MatchCandidate) models.MedicineRecord {
	rec := models.MedicineRecord{
		Name:           c.DisplayName,
		Timing:         models.TimingUnknown,
		Classification: ClassificationUnknown,
	}
	info, err := s.Lookup(ctx, c.Canonical)
	if err != nil {
		level := s.logger.Warn
		if errors.Is(err, druginfo.ErrNotFound) {
			level = s.logger.Info
		}
		level("drug info unavailable", zap.String("canonical", c.Canonical), zap.Error(err))
		return rec
	}

	r := usage.Resolve(info.Usage)
	rec.PerDose = r.PerDose
	rec.Unit = r.Unit
	rec.Frequency = r.Frequency
	rec.Timing = r.Timing
	rec.Ranges = r.Ranges
	rec.Classification = info.Classification
	if rec.Classification == "" {
		rec.Classification = druginfo.DefaultClassification
	}
	rec.Info = info
	return rec
}

// Lookup fetches drug information for name under the per-call timeout.
func (s *Service) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	if s.client == nil {
		return nil, druginfo.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	start := time.Now()
	info, err := s.client.Lookup(ctx, name)
	switch {
	case errors.Is(err, druginfo.ErrNotFound):
		s.metrics.RecordLookup("not_found", time.Since(start))
		return nil, err
	case err != nil:
		s.metrics.RecordLookup("error", time.Since(start))
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	case info == nil:
		s.metrics.RecordLookup("not_found", time.Since(start))
		return nil, druginfo.ErrNotFound
	}
	s.metrics.RecordLookup("ok", time.Since(start))
	return info, nil
}

// Alarms schedules reminders for records against meals.
func (s *Service) Alarms(records []models.MedicineRecord, meals schedule.MealTimes) []models.AlarmEvent {
	return schedule.Generate(records, meals)
}

func sentinel(name string) models.MedicineRecord {
	return models.MedicineRecord{
		Name:           name,
		Timing:         models.TimingUnknown,
		Classification: ClassificationUnknown,
	}
}
