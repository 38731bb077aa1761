package triage

import "strings"

// Severity is the urgency tier of a triage result.
type Severity string

const (
	// SeverityEmergency means go to a hospital now
	SeverityEmergency Severity = "emergency"

	// SeverityModerate means see a doctor within a day or two
	SeverityModerate Severity = "moderate"

	// SeverityMild means home care is likely enough
	SeverityMild Severity = "mild"
)

// Valid reports whether s is one of the three tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityEmergency, SeverityModerate, SeverityMild:
		return true
	}
	return false
}

// Provenance records which path produced a Result.
type Provenance string

const (
	// ProvenanceFallback is the deterministic rule scorer
	ProvenanceFallback Provenance = "fallback"

	// ProvenanceAdvisor is the external text-generation advisor
	ProvenanceAdvisor Provenance = "advisor"
)

// Duration is the coarse bucket describing how long symptoms have lasted.
type Duration string

const (
	DurationUnspecified   Duration = "not_specified"
	DurationOneToTwoDays  Duration = "1-2_days"
	DurationOverThreeDays Duration = "more_than_3_days"
	DurationOverWeek      Duration = "more_than_week"
)

// ParseDuration normalizes a client-supplied bucket. Unknown values map to
// DurationUnspecified.
func ParseDuration(s string) Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	switch Duration(s) {
	case DurationOneToTwoDays, DurationOverThreeDays, DurationOverWeek:
		return Duration(s)
	}
	return DurationUnspecified
}

// Prolonged reports whether the bucket is three days or longer.
func (d Duration) Prolonged() bool {
	return d == DurationOverThreeDays || d == DurationOverWeek
}

// SymptomReport is one reported symptom, referencing a catalog id.
type SymptomReport struct {
	ID       string `json:"id"`
	Duration string `json:"duration,omitempty"`
}

// Patient is the context a triage runs against.
type Patient struct {
	Age      int      `json:"age"`
	Gender   string   `json:"gender"`
	Duration Duration `json:"duration"`
}

// Result is the outcome of a single classification. It is built fresh per
// call and owned by the caller.
type Result struct {
	Severity        Severity   `json:"severity_level"`
	Explanation     string     `json:"ai_explanation"`
	GuidanceBN      string     `json:"guidance_bangla"`
	GuidanceEN      string     `json:"guidance_english"`
	Provenance      Provenance `json:"provenance"`
	TriggeredBy     string     `json:"triggered_by,omitempty"`
	Score           int        `json:"score,omitempty"`
	UnknownSymptoms []string   `json:"unknown_symptoms,omitempty"`
	Model           string     `json:"model,omitempty"`
}

// Offline reports whether the result came from the rule scorer.
func (r *Result) Offline() bool {
	return r.Provenance != ProvenanceAdvisor
}
