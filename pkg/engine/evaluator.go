package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openfroyo/sitefroyo/pkg/rules"
	"github.com/openfroyo/sitefroyo/pkg/telemetry"
)

// Evaluation is the outcome of one facts pass plus classification.
type Evaluation struct {
	ID          string        `json:"id" yaml:"id"`
	SiteID      string        `json:"site_id" yaml:"site_id"`
	Domain      string        `json:"domain" yaml:"domain"`
	Command     Command       `json:"command" yaml:"command"`
	Facts       rules.Facts   `json:"facts" yaml:"facts"`
	FactOrder   []string      `json:"-" yaml:"-"`
	Result      StatusResult  `json:"result" yaml:"result"`
	EvaluatedAt time.Time     `json:"evaluated_at" yaml:"evaluated_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// TrueFacts counts the facts that evaluated to true.
func (e *Evaluation) TrueFacts() int {
	n := 0
	for _, v := range e.Facts {
		if v {
			n++
		}
	}
	return n
}

// Evaluator runs fact evaluation and status classification with logging,
// metrics and tracing around it.
type Evaluator struct {
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	strict  bool
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(l zerolog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

// WithEvaluatorTelemetry sets the metrics and tracer.
func WithEvaluatorTelemetry(m *telemetry.Metrics, t *telemetry.Tracer) EvaluatorOption {
	return func(e *Evaluator) {
		e.metrics = m
		e.tracer = t
	}
}

// WithStrictOrdering makes reads of not-yet-evaluated facts fatal.
func WithStrictOrdering(strict bool) EvaluatorOption {
	return func(e *Evaluator) { e.strict = strict }
}

// NewEvaluator creates an evaluator. Without options it logs nothing and
// records no metrics.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the facts and status of sc.
func (e *Evaluator) Evaluate(ctx context.Context, sc *SiteContext) (*Evaluation, error) {
	start := time.Now()
	id := uuid.NewString()

	logger := e.logger.With().
		Str("evaluation_id", id).
		Str("site_id", sc.SiteID).
		Str("command", string(sc.Command)).
		Logger()

	ctx, span := e.tracer.StartEvaluationSpan(ctx, sc.SiteID, string(sc.Command))
	defer span.End()

	var opts []rules.Option
	if e.strict {
		opts = append(opts, rules.WithStrictOrdering())
	}

	logger.Debug().Int("custom_facts", len(sc.Site.CustomFacts)).Msg("Evaluating facts")

	facts, err := EvaluateFacts(ctx, sc, opts...)
	duration := time.Since(start)
	if err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordError(string(ClassOf(err)), CodeOf(err))
		if CodeOf(err) == ErrCodePredicateFailed {
			e.metrics.RecordEvaluation(string(sc.Command), false, duration)
		}
		logger.Error().Err(err).Msg("Fact evaluation failed")
		return nil, err
	}

	result := ClassifyStatus(facts, sc)

	eval := &Evaluation{
		ID:          id,
		SiteID:      sc.SiteID,
		Domain:      sc.Site.Domain,
		Command:     sc.Command,
		Facts:       facts,
		FactOrder:   SiteFactNames(sc.Site),
		Result:      result,
		EvaluatedAt: start.UTC(),
		Duration:    duration,
	}

	e.metrics.RecordEvaluation(string(sc.Command), true, duration)
	e.metrics.SetFactsTrue(sc.SiteID, eval.TrueFacts())
	e.metrics.SetSiteStatus(sc.SiteID, string(result.Status), statusNames())

	span.SetAttributes(
		telemetry.AttrStatus.String(string(result.Status)),
		telemetry.AttrFactCount.Int(len(facts)),
	)
	telemetry.RecordSuccess(span)

	logger.Info().
		Str("status", string(result.Status)).
		Int("facts", len(facts)).
		Int("true", eval.TrueFacts()).
		Dur("duration", duration).
		Msg("Facts evaluated")

	return eval, nil
}

func statusNames() []string {
	all := AllStatuses()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}
	return names
}
