package consult

import (
	"time"

	"github.com/linnemanlabs/sahayak/internal/triage"
)

// Consultation is one persisted triage, as returned to clients.
type Consultation struct {
	ID              string                 `json:"id"`
	PatientID       string                 `json:"patient_id,omitempty"`
	Symptoms        []triage.SymptomReport `json:"symptoms"`
	Age             int                    `json:"age"`
	Gender          string                 `json:"gender"`
	Duration        triage.Duration        `json:"duration"`
	Severity        triage.Severity        `json:"severity_level"`
	Explanation     string                 `json:"ai_explanation"`
	GuidanceBN      string                 `json:"guidance_bangla"`
	GuidanceEN      string                 `json:"guidance_english"`
	Offline         bool                   `json:"is_offline_result"`
	Provenance      triage.Provenance      `json:"provenance"`
	TriggeredBy     string                 `json:"triggered_by,omitempty"`
	Score           int                    `json:"score,omitempty"`
	UnknownSymptoms []string               `json:"unknown_symptoms,omitempty"`
	Model           string                 `json:"model,omitempty"`
	FallbackReason  triage.FailureReason   `json:"fallback_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Emergency reports whether the consultation was classified as an emergency.
func (c *Consultation) Emergency() bool {
	return c.Severity == triage.SeverityEmergency
}

// apply copies a triage result onto c.
func (c *Consultation) apply(r *triage.Result) {
	c.Severity = r.Severity
	c.Explanation = r.Explanation
	c.GuidanceBN = r.GuidanceBN
	c.GuidanceEN = r.GuidanceEN
	c.Offline = r.Offline()
	c.Provenance = r.Provenance
	c.TriggeredBy = r.TriggeredBy
	c.Score = r.Score
	c.UnknownSymptoms = r.UnknownSymptoms
	c.Model = r.Model
}

// Patient is a stored patient profile. Triage requests that name a patient
// take their age and gender from it when the request leaves them out.
type Patient struct {
	ID        string    `json:"id"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request is the caller input for a triage.
type Request struct {
	PatientID string                 `json:"patient_id,omitempty"`
	Symptoms  []triage.SymptomReport `json:"symptoms"`
	Age       *int                   `json:"age,omitempty"`
	Gender    string                 `json:"gender,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
}

// ListFilter narrows a List call. Zero Limit means DefaultListLimit.
type ListFilter struct {
	PatientID string
	Limit     int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Defaults used by offline triage when the caller leaves them out.
const (
	OfflineDefaultAge    = 30
	OfflineDefaultGender = "unknown"
)
