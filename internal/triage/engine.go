// internal/triage/engine.go
package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

const (
	DefaultAdvisorTimeout = 20 * time.Second
	MaxAge                = 150
)

// ErrInvalidInput is the only error the engine surfaces to callers.
var ErrInvalidInput = errors.New("invalid triage input")

var tracer = otel.Tracer("github.com/linnemanlabs/sahayak/internal/triage")

// EngineHooks are optional callbacks for observability. Nil funcs are skipped.
type EngineHooks struct {
	OnAdvisorCall func(inputTokens, outputTokens int, duration float64, reason FailureReason)
	OnOutcome     func(d *Decision)
}

// Decision is a Result plus how it was reached. Reason is empty when the
// advisor answered; otherwise Result is exactly the RuleScorer output.
type Decision struct {
	Result Result
	Reason FailureReason
	Err    error
}

// Engine composes the RuleScorer and the Advisor. It holds no per-call state
// and is safe for concurrent use.
type Engine struct {
	scorer  *RuleScorer
	advisor *Advisor
	timeout time.Duration
	logger  log.Logger
	hooks   EngineHooks
}

// NewEngine creates a triage engine. A nil or unconfigured advisor puts the
// engine in fallback-only mode. A non-positive timeout uses
// DefaultAdvisorTimeout.
func NewEngine(scorer *RuleScorer, advisor *Advisor, timeout time.Duration, logger log.Logger, hooks EngineHooks) *Engine {
	if scorer == nil {
		scorer = NewRuleScorer(nil)
	}
	if timeout <= 0 {
		timeout = DefaultAdvisorTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		scorer:  scorer,
		advisor: advisor,
		timeout: timeout,
		logger:  logger,
		hooks:   hooks,
	}
}

// AdvisorEnabled reports whether classification will try the advisor.
func (e *Engine) AdvisorEnabled() bool {
	return e.advisor.Configured()
}

// Scorer returns the engine's rule scorer.
func (e *Engine) Scorer() *RuleScorer { return e.scorer }

// Classify returns the advisor result when available and the rule result
// otherwise. The only error is ErrInvalidInput.
func (e *Engine) Classify(ctx context.Context, reports []SymptomReport, p Patient) (Result, error) {
	d, err := e.Decide(ctx, reports, p)
	if err != nil {
		return Result{}, err
	}
	return d.Result, nil
}

// Fallback validates the input and runs the rule scorer only.
func (e *Engine) Fallback(reports []SymptomReport, p Patient) (Result, error) {
	if err := Validate(reports, p); err != nil {
		return Result{}, err
	}
	return e.scorer.Classify(reports, p), nil
}

// Decide is Classify plus the fallback reason.
func (e *Engine) Decide(ctx context.Context, reports []SymptomReport, p Patient) (Decision, error) {
	if err := Validate(reports, p); err != nil {
		return Decision{}, err
	}

	var d Decision
	if !e.advisor.Configured() {
		d = Decision{Result: e.scorer.Classify(reports, p), Reason: ReasonNotConfigured}
	} else {
		d = e.advise(ctx, reports, p)
	}

	if e.hooks.OnOutcome != nil {
		e.hooks.OnOutcome(&d)
	}
	return d, nil
}

func (e *Engine) advise(ctx context.Context, reports []SymptomReport, p Patient) Decision {
	ctx, span := tracer.Start(ctx, "triage.advise", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "triage.advise"),
		attribute.Int("sahayak.symptoms.count", len(reports)),
	))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out := e.advisor.Advise(callCtx, reports, p)
	dur := time.Since(start).Seconds()

	if e.hooks.OnAdvisorCall != nil {
		e.hooks.OnAdvisorCall(out.Usage.InputTokens, out.Usage.OutputTokens, dur, out.Reason)
	}

	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", out.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", out.Usage.OutputTokens),
	)

	if out.OK() {
		span.SetAttributes(
			attribute.String("gen_ai.response.model", out.Result.Model),
			attribute.String("sahayak.triage.severity", string(out.Result.Severity)),
		)
		return Decision{Result: out.Result}
	}

	span.SetAttributes(attribute.String("sahayak.triage.fallback_reason", string(out.Reason)))
	if out.Err != nil {
		span.RecordError(out.Err)
	}
	span.SetStatus(codes.Error, string(out.Reason))

	kv := []any{"reason", out.Reason, "duration", dur}
	if out.Err != nil {
		kv = append(kv, "err", out.Err.Error())
	}
	e.logger.Warn(ctx, "advisor failed, using rule scorer", kv...)

	return Decision{
		Result: e.scorer.Classify(reports, p),
		Reason: out.Reason,
		Err:    out.Err,
	}
}

// Validate checks the input bounds shared by every classification path.
func Validate(reports []SymptomReport, p Patient) error {
	if p.Age < 0 || p.Age > MaxAge {
		return fmt.Errorf("%w: age %d out of range 0-%d", ErrInvalidInput, p.Age, MaxAge)
	}
	for i, r := range reports {
		if r.ID == "" {
			return fmt.Errorf("%w: symptom %d has an empty id", ErrInvalidInput, i)
		}
	}
	return nil
}
