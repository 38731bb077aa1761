package triage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/linnemanlabs/sahayak/internal/symptom"
)

// FailureReason names why an advisor call did not produce a usable result.
// The set is closed; FailureReasons lists every member.
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonNotConfigured     FailureReason = "not_configured"
	ReasonTimeout           FailureReason = "timeout"
	ReasonCanceled          FailureReason = "canceled"
	ReasonTransport         FailureReason = "transport"
	ReasonUpstreamStatus    FailureReason = "upstream_status"
	ReasonEmptyResponse     FailureReason = "empty_response"
	ReasonMalformedOutput   FailureReason = "malformed_output"
	ReasonMissingField      FailureReason = "missing_field"
	ReasonInvalidSeverity   FailureReason = "invalid_severity"
	ReasonEmergencyMismatch FailureReason = "emergency_mismatch"
)

// FailureReasons returns every non-empty FailureReason.
func FailureReasons() []FailureReason {
	return []FailureReason{
		ReasonNotConfigured,
		ReasonTimeout,
		ReasonCanceled,
		ReasonTransport,
		ReasonUpstreamStatus,
		ReasonEmptyResponse,
		ReasonMalformedOutput,
		ReasonMissingField,
		ReasonInvalidSeverity,
		ReasonEmergencyMismatch,
	}
}

// Outcome is the result of one advisor call: either a Result (Reason empty)
// or a failure reason. Err carries the underlying cause when there is one.
type Outcome struct {
	Result Result
	Reason FailureReason
	Err    error
	Usage  Usage
}

// OK reports whether the call produced a usable result.
func (o *Outcome) OK() bool { return o.Reason == ReasonNone }

func failed(reason FailureReason, err error) Outcome {
	return Outcome{Reason: reason, Err: err}
}

var advisorSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
})

// Advisor asks a Provider to classify symptoms and validates the reply.
type Advisor struct {
	provider Provider
	catalog  *symptom.Catalog
	scorer   *RuleScorer
}

// NewAdvisor wraps provider. A nil provider yields an advisor that always
// fails with ReasonNotConfigured.
func NewAdvisor(provider Provider, scorer *RuleScorer) *Advisor {
	if scorer == nil {
		scorer = NewRuleScorer(nil)
	}
	return &Advisor{provider: provider, catalog: scorer.Catalog(), scorer: scorer}
}

// Configured reports whether a provider is wired.
func (a *Advisor) Configured() bool {
	return a != nil && a.provider != nil
}

// Advise makes a single provider call. It never retries and never panics on
// bad output.
func (a *Advisor) Advise(ctx context.Context, reports []SymptomReport, p Patient) Outcome {
	if !a.Configured() {
		return failed(ReasonNotConfigured, nil)
	}

	resp, err := a.provider.Send(ctx, &LLMRequest{
		System:      buildSystemPrompt(),
		Prompt:      buildPrompt(a.catalog, a.catalog.EmergencyIDs(), reports, p),
		MaxTokens:   AdvisorMaxTokens,
		Temperature: AdvisorTemperature,
		JSON:        true,
	})
	if err != nil {
		return failed(classifyError(ctx, err), err)
	}
	if resp == nil {
		return failed(ReasonEmptyResponse, nil)
	}

	out := a.parse(resp.Text, reports)
	out.Usage = resp.Usage
	if out.OK() {
		out.Result.Model = resp.Model
	}
	return out
}

func classifyError(ctx context.Context, err error) FailureReason {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return ReasonUpstreamStatus
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ReasonCanceled
	}
	return ReasonTransport
}

type advisorReply struct {
	Severity    string `json:"severity_level"`
	Explanation string `json:"ai_explanation"`
	GuidanceBN  string `json:"guidance_bangla"`
	GuidanceEN  string `json:"guidance_english"`
}

func (a *Advisor) parse(text string, reports []SymptomReport) Outcome {
	body := stripFences(text)
	if body == "" {
		return failed(ReasonEmptyResponse, nil)
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return failed(ReasonMalformedOutput, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return failed(ReasonMalformedOutput, errors.New("advisor reply is not a JSON object"))
	}

	schema, err := advisorSchema()
	if err != nil {
		return failed(ReasonMalformedOutput, err)
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return failed(ReasonMalformedOutput, err)
	}
	if !res.Valid() {
		return failed(schemaReason(res.Errors()), schemaError(res.Errors()))
	}

	var reply advisorReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return failed(ReasonMalformedOutput, err)
	}

	// The schema enum has already pinned severity_level to one of the tiers.
	r := Result{
		Severity:    Severity(reply.Severity),
		Explanation: strings.TrimSpace(reply.Explanation),
		GuidanceBN:  strings.TrimSpace(reply.GuidanceBN),
		GuidanceEN:  strings.TrimSpace(reply.GuidanceEN),
		Provenance:  ProvenanceAdvisor,
	}
	if r.Explanation == "" || r.GuidanceBN == "" || r.GuidanceEN == "" {
		return failed(ReasonMissingField, errors.New("blank text field in advisor reply"))
	}

	if id, ok := a.scorer.FirstEmergency(reports); ok {
		if r.Severity != SeverityEmergency {
			return failed(ReasonEmergencyMismatch, errors.New("advisor returned "+string(r.Severity)+" for "+id))
		}
		r.TriggeredBy = id
	}

	return Outcome{Result: r}
}

// stripFences returns the body of the first ``` code fence, without its
// json language tag. Prose before or after the fence is dropped. Text that
// starts as a JSON object is returned as is.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return s
	}
	_, rest, found := strings.Cut(s, "```")
	if !found {
		return s
	}
	body, _, _ := strings.Cut(rest, "```")
	body = strings.TrimSpace(body)
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	return strings.TrimSpace(body)
}

// schemaReason maps the first schema violation onto the closed reason set.
func schemaReason(errs []gojsonschema.ResultError) FailureReason {
	for _, e := range errs {
		switch e.Type() {
		case "required", "string_gte":
			return ReasonMissingField
		case "enum":
			return ReasonInvalidSeverity
		case "invalid_type":
			if e.Field() == "severity_level" {
				return ReasonInvalidSeverity
			}
			return ReasonMalformedOutput
		}
	}
	return ReasonMalformedOutput
}

func schemaError(errs []gojsonschema.ResultError) error {
	joined := make([]error, 0, len(errs))
	for _, e := range errs {
		joined = append(joined, errors.New(e.String()))
	}
	return errors.Join(joined...)
}
