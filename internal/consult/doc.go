// Package consult runs symptom triage for callers and keeps the resulting
// consultations. It owns ids, persistence and emergency notifications; the
// classification itself lives in package triage.
package consult
