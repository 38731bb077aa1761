package triage

import (
	"github.com/linnemanlabs/sahayak/internal/symptom"
)

// Scoring constants. These are the only decision boundaries besides the
// emergency set and must stay exact integers.
const (
	UnknownSymptomWeight = 1
	VulnerableAgePenalty = 2
	ProlongedPenalty     = 2
	ModerateThreshold    = 8

	// ages strictly below YoungAge or above OldAge get the penalty
	YoungAge = 5
	OldAge   = 60
)

// RuleScorer is the deterministic classifier. It never fails and never
// calls out; it is the fallback for every advisor failure.
type RuleScorer struct {
	catalog   *symptom.Catalog
	emergency map[string]struct{}
}

// NewRuleScorer builds a scorer over catalog. The emergency set is fixed
// from the catalog's emergency flags at construction. A nil catalog means
// the embedded default.
func NewRuleScorer(catalog *symptom.Catalog) *RuleScorer {
	if catalog == nil {
		catalog = symptom.Default()
	}
	ids := catalog.EmergencyIDs()
	em := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		em[id] = struct{}{}
	}
	return &RuleScorer{catalog: catalog, emergency: em}
}

// Catalog returns the catalog the scorer reads.
func (s *RuleScorer) Catalog() *symptom.Catalog { return s.catalog }

// IsEmergency reports whether id is in the emergency set.
func (s *RuleScorer) IsEmergency(id string) bool {
	_, ok := s.emergency[id]
	return ok
}

// FirstEmergency returns the first report, in input order, that is in the
// emergency set.
func (s *RuleScorer) FirstEmergency(reports []SymptomReport) (string, bool) {
	for _, r := range reports {
		if s.IsEmergency(r.ID) {
			return r.ID, true
		}
	}
	return "", false
}

// Score sums the weights of reports plus the age and duration penalties.
// Unknown ids weigh UnknownSymptomWeight and are returned in unknown.
// Duplicates are counted once per occurrence.
func (s *RuleScorer) Score(reports []SymptomReport, p Patient) (score int, unknown []string) {
	for _, r := range reports {
		if sym, ok := s.catalog.Lookup(r.ID); ok {
			score += sym.Weight
			continue
		}
		score += UnknownSymptomWeight
		unknown = append(unknown, r.ID)
	}
	if p.Age < YoungAge || p.Age > OldAge {
		score += VulnerableAgePenalty
	}
	if p.Duration.Prolonged() {
		score += ProlongedPenalty
	}
	return score, unknown
}

// Classify returns the rule-based result for reports.
func (s *RuleScorer) Classify(reports []SymptomReport, p Patient) Result {
	if id, ok := s.FirstEmergency(reports); ok {
		nameBN, nameEN := id, id
		if sym, found := s.catalog.Lookup(id); found {
			nameBN, nameEN = sym.NameBN, sym.NameEN
		}
		return emergencyResult(id, nameBN, nameEN)
	}

	score, unknown := s.Score(reports, p)
	sev := SeverityMild
	if score >= ModerateThreshold {
		sev = SeverityModerate
	}
	r := tierResult(sev, score)
	r.UnknownSymptoms = unknown
	return r
}
