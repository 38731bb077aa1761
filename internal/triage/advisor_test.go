package triage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// mockProvider returns preconfigured responses in sequence and records requests.
type mockProvider struct {
	mu        sync.Mutex
	responses []*LLMResponse
	errs      []error
	requests  []*LLMRequest
	callIdx   int
	block     bool
}

const testModel = "gemini-2.0-flash"

func (m *mockProvider) Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	m.mu.Lock()
	idx := m.callIdx
	m.callIdx++
	m.requests = append(m.requests, req)
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return nil, errors.New("mock: no response configured")
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callIdx
}

func textResponse(text string) *LLMResponse {
	return &LLMResponse{
		Text:  text,
		Model: testModel,
		Usage: Usage{InputTokens: 120, OutputTokens: 80},
	}
}

const validReply = `{
  "severity_level": "moderate",
  "ai_explanation": "জ্বর ও বমি। Fever with vomiting.",
  "guidance_bangla": "ডাক্তার দেখান। ⛔ এটি চিকিৎসা পরামর্শ নয়।",
  "guidance_english": "See a doctor. ⛔ This is not medical advice."
}`

func TestAdvise_Success(t *testing.T) {
	t.Parallel()

	p := &mockProvider{responses: []*LLMResponse{textResponse(validReply)}}
	a := NewAdvisor(p, nil)

	out := a.Advise(context.Background(), reports("fever", "vomiting"), adult())
	if !out.OK() {
		t.Fatalf("expected success, got reason %q (%v)", out.Reason, out.Err)
	}
	if out.Result.Severity != SeverityModerate {
		t.Errorf("Severity = %q, want moderate", out.Result.Severity)
	}
	if out.Result.Provenance != ProvenanceAdvisor {
		t.Errorf("Provenance = %q, want advisor", out.Result.Provenance)
	}
	if out.Result.Model != testModel {
		t.Errorf("Model = %q, want %q", out.Result.Model, testModel)
	}
	if out.Usage.InputTokens != 120 || out.Usage.OutputTokens != 80 {
		t.Errorf("Usage = %+v", out.Usage)
	}
}

func TestAdvise_RequestShape(t *testing.T) {
	t.Parallel()

	p := &mockProvider{responses: []*LLMResponse{textResponse(validReply)}}
	a := NewAdvisor(p, nil)
	_ = a.Advise(context.Background(),
		[]SymptomReport{{ID: "fever", Duration: "more_than_3_days"}, {ID: "hiccups"}},
		Patient{Age: 72, Gender: "male", Duration: DurationOverThreeDays})

	if len(p.requests) != 1 {
		t.Fatalf("calls = %d, want 1", len(p.requests))
	}
	req := p.requests[0]
	if req.MaxTokens != AdvisorMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, AdvisorMaxTokens)
	}
	if req.Temperature != AdvisorTemperature {
		t.Errorf("Temperature = %v, want %v", req.Temperature, AdvisorTemperature)
	}
	if !req.JSON {
		t.Error("expected JSON response mode")
	}
	if !strings.Contains(req.System, "rural Bangladesh") {
		t.Errorf("system prompt missing audience: %q", req.System)
	}

	for _, want := range []string{
		"Age: 72",
		"Gender: male",
		"more_than_3_days",
		"Fever (জ্বর)",
		"- hiccups",
		"breathing_difficulty, chest_pain, unconscious, severe_bleeding, convulsion",
		"NEVER diagnose",
		"severity_level",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAdvise_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		resp   *LLMResponse
		err    error
		ids    []string
		reason FailureReason
	}{
		{"transport", nil, errors.New("dial tcp: connection refused"), nil, ReasonTransport},
		{"status", nil, &StatusError{Provider: "gemini", StatusCode: 503}, nil, ReasonUpstreamStatus},
		{"wrapped deadline", nil, context.DeadlineExceeded, nil, ReasonTimeout},
		{"nil response", nil, nil, nil, ReasonEmptyResponse},
		{"empty text", textResponse("   "), nil, nil, ReasonEmptyResponse},
		{"empty fence", textResponse("```json\n```"), nil, nil, ReasonEmptyResponse},
		{"prose", textResponse("The patient seems fine."), nil, nil, ReasonMalformedOutput},
		{"array", textResponse(`[1,2,3]`), nil, nil, ReasonMalformedOutput},
		{"truncated", textResponse(`{"severity_level": "mild", "ai_expl`), nil, nil, ReasonMalformedOutput},
		{"invalid tier", textResponse(strings.Replace(validReply, `"moderate"`, `"unknown"`, 1)), nil, nil, ReasonInvalidSeverity},
		{"padded tier", textResponse(strings.Replace(validReply, `"moderate"`, `" mild "`, 1)), nil, nil, ReasonInvalidSeverity},
		{"capitalized tier", textResponse(strings.Replace(validReply, `"moderate"`, `"Mild"`, 1)), nil, nil, ReasonInvalidSeverity},
		{"numeric tier", textResponse(strings.Replace(validReply, `"moderate"`, `3`, 1)), nil, nil, ReasonInvalidSeverity},
		{"missing field", textResponse(`{"severity_level":"mild","ai_explanation":"x","guidance_bangla":"y"}`), nil, nil, ReasonMissingField},
		{"empty field", textResponse(`{"severity_level":"mild","ai_explanation":"","guidance_bangla":"y","guidance_english":"z"}`), nil, nil, ReasonMissingField},
		{"blank field", textResponse(`{"severity_level":"mild","ai_explanation":"  ","guidance_bangla":"y","guidance_english":"z"}`), nil, nil, ReasonMissingField},
		{"emergency downgraded", textResponse(validReply), nil, []string{"fever", "convulsion"}, ReasonEmergencyMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &mockProvider{}
			if tt.resp != nil {
				p.responses = []*LLMResponse{tt.resp}
			}
			if tt.err != nil {
				p.errs = []error{tt.err}
			}
			if tt.resp == nil && tt.err == nil {
				p.responses = []*LLMResponse{nil}
			}

			out := NewAdvisor(p, nil).Advise(context.Background(), reports(tt.ids...), adult())
			if out.OK() {
				t.Fatalf("expected failure, got %+v", out.Result)
			}
			if out.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q (err %v)", out.Reason, tt.reason, out.Err)
			}
			if !reflect.DeepEqual(out.Result, Result{}) {
				t.Errorf("failed outcome should carry no partial result, got %+v", out.Result)
			}
		})
	}
}

func TestAdvise_StripsFences(t *testing.T) {
	t.Parallel()

	wrapped := []string{
		"```json\n" + validReply + "\n```",
		"```\n" + validReply + "\n```",
		"  " + validReply + "\n",
		"```json\n" + validReply + "\n```\nLet me know if you need more.",
		"Here is the assessment:\n```json\n" + validReply + "\n```",
	}
	for _, text := range wrapped {
		p := &mockProvider{responses: []*LLMResponse{textResponse(text)}}
		out := NewAdvisor(p, nil).Advise(context.Background(), reports("fever"), adult())
		if !out.OK() {
			t.Errorf("text %q: reason %q (%v)", text, out.Reason, out.Err)
		}
	}
}

func TestAdvise_EmergencyKept(t *testing.T) {
	t.Parallel()

	reply := strings.Replace(validReply, `"moderate"`, `"emergency"`, 1)
	p := &mockProvider{responses: []*LLMResponse{textResponse(reply)}}

	out := NewAdvisor(p, nil).Advise(context.Background(), reports("cough", "breathing_difficulty"), adult())
	if !out.OK() {
		t.Fatalf("reason %q (%v)", out.Reason, out.Err)
	}
	if out.Result.TriggeredBy != "breathing_difficulty" {
		t.Errorf("TriggeredBy = %q, want breathing_difficulty", out.Result.TriggeredBy)
	}
}

func TestAdvise_NotConfigured(t *testing.T) {
	t.Parallel()

	var nilAdvisor *Advisor
	if nilAdvisor.Configured() {
		t.Error("nil advisor should not be configured")
	}

	a := NewAdvisor(nil, nil)
	if a.Configured() {
		t.Error("advisor without provider should not be configured")
	}
	out := a.Advise(context.Background(), reports("fever"), adult())
	if out.Reason != ReasonNotConfigured {
		t.Errorf("Reason = %q, want not_configured", out.Reason)
	}
}

func TestAdvise_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &mockProvider{block: true}
	out := NewAdvisor(p, nil).Advise(ctx, reports("fever"), adult())
	if out.Reason != ReasonCanceled {
		t.Errorf("Reason = %q, want canceled", out.Reason)
	}
}

func TestFailureReasons_Closed(t *testing.T) {
	t.Parallel()

	seen := make(map[FailureReason]bool)
	for _, r := range FailureReasons() {
		if r == ReasonNone {
			t.Error("ReasonNone must not be listed")
		}
		if seen[r] {
			t.Errorf("duplicate reason %q", r)
		}
		seen[r] = true
	}
	if len(seen) != 10 {
		t.Errorf("len = %d, want 10", len(seen))
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON {\"a\":1}```", `{"a":1}`},
		{"```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"```json\n{\"a\":1}\n```\nHope this helps.", `{"a":1}`},
		{"Result:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```json\n{\"a\":1}", `{"a":1}`},
		{`{"a":"` + "```" + `"}`, `{"a":"` + "```" + `"}`},
		{"no json here", "no json here"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
