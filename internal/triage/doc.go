// Package triage classifies reported symptoms into an urgency tier with
// bilingual guidance. It defines the RuleScorer (deterministic, always
// available), the Advisor (LLM-backed, may fail) and the Engine that composes
// them with an all-or-nothing fallback from the advisor to the rules.
package triage
