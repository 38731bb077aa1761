package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/consult/pgstore"
	"github.com/linnemanlabs/sahayak/internal/triage"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("SAHAYAK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SAHAYAK_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	c := &consult.Consultation{
		ID:              ulid.Make().String(),
		PatientID:       "p-put-get",
		Symptoms:        []triage.SymptomReport{{ID: "fever", Duration: "1-2_days"}, {ID: "hiccups"}},
		Age:             34,
		Gender:          "female",
		Duration:        triage.DurationOneToTwoDays,
		Severity:        triage.SeverityMild,
		Explanation:     "হালকা লক্ষণ",
		GuidanceBN:      "বিশ্রাম নিন",
		GuidanceEN:      "Rest",
		Offline:         true,
		Provenance:      triage.ProvenanceFallback,
		Score:           3,
		UnknownSymptoms: []string{"hiccups"},
		FallbackReason:  triage.ReasonTimeout,
		CreatedAt:       now,
	}

	if err := s.Put(ctx, c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "PatientID", c.PatientID, got.PatientID)
	assertEqual(t, "Age", c.Age, got.Age)
	assertEqual(t, "Gender", c.Gender, got.Gender)
	assertEqual(t, "Duration", c.Duration, got.Duration)
	assertEqual(t, "Severity", c.Severity, got.Severity)
	assertEqual(t, "Explanation", c.Explanation, got.Explanation)
	assertEqual(t, "GuidanceBN", c.GuidanceBN, got.GuidanceBN)
	assertEqual(t, "Offline", c.Offline, got.Offline)
	assertEqual(t, "Provenance", c.Provenance, got.Provenance)
	assertEqual(t, "Score", c.Score, got.Score)
	assertEqual(t, "FallbackReason", c.FallbackReason, got.FallbackReason)
	assertEqual(t, "CreatedAt", c.CreatedAt.Unix(), got.CreatedAt.Unix())

	if len(got.Symptoms) != 2 || got.Symptoms[0].ID != "fever" || got.Symptoms[0].Duration != "1-2_days" {
		t.Errorf("Symptoms mismatch: got %+v", got.Symptoms)
	}
	if len(got.UnknownSymptoms) != 1 || got.UnknownSymptoms[0] != "hiccups" {
		t.Errorf("UnknownSymptoms mismatch: got %v", got.UnknownSymptoms)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false")
	}
}

func TestPutUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	c := &consult.Consultation{
		ID:          ulid.Make().String(),
		Symptoms:    []triage.SymptomReport{{ID: "cold"}},
		Age:         20,
		Duration:    triage.DurationUnspecified,
		Severity:    triage.SeverityMild,
		Explanation: "x",
		GuidanceBN:  "y",
		GuidanceEN:  "z",
		Provenance:  triage.ProvenanceFallback,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Put(ctx, c); err != nil {
		t.Fatalf("Put: %v", err)
	}

	c.Severity = triage.SeverityModerate
	c.Model = "gemini-2.0-flash"
	c.Provenance = triage.ProvenanceAdvisor
	if err := s.Put(ctx, c); err != nil {
		t.Fatalf("Put (update): %v", err)
	}

	got, _, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	assertEqual(t, "Severity", triage.SeverityModerate, got.Severity)
	assertEqual(t, "Model", "gemini-2.0-flash", got.Model)
	assertEqual(t, "Provenance", triage.ProvenanceAdvisor, got.Provenance)
	if got.UnknownSymptoms != nil {
		t.Errorf("UnknownSymptoms = %v, want nil", got.UnknownSymptoms)
	}
}

func TestListByPatient(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	patient := "p-list-" + ulid.Make().String()
	base := time.Now().Truncate(time.Second).UTC()
	var ids []string
	for i := range 3 {
		c := &consult.Consultation{
			ID:          ulid.Make().String(),
			PatientID:   patient,
			Symptoms:    []triage.SymptomReport{{ID: "fever"}},
			Age:         40,
			Duration:    triage.DurationUnspecified,
			Severity:    triage.SeverityMild,
			Explanation: fmt.Sprintf("e%d", i),
			GuidanceBN:  "y",
			GuidanceEN:  "z",
			Provenance:  triage.ProvenanceFallback,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Put(ctx, c); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
		ids = append(ids, c.ID)
	}

	got, err := s.List(ctx, consult.ListFilter{PatientID: patient, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, ids[2], ids[1])
	}
}

func TestPatientPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	created := time.Now().Truncate(time.Microsecond).UTC()
	p := &consult.Patient{
		ID:        ulid.Make().String(),
		Age:       58,
		Gender:    "female",
		Location:  "Barishal",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := s.PutPatient(ctx, p); err != nil {
		t.Fatalf("PutPatient: %v", err)
	}

	p.Age = 59
	p.CreatedAt = created.Add(time.Hour)
	p.UpdatedAt = created.Add(time.Hour)
	if err := s.PutPatient(ctx, p); err != nil {
		t.Fatalf("PutPatient (update): %v", err)
	}

	got, ok, err := s.GetPatient(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("GetPatient: ok=%v err=%v", ok, err)
	}
	assertEqual(t, "Age", 59, got.Age)
	assertEqual(t, "Gender", "female", got.Gender)
	assertEqual(t, "Location", "Barishal", got.Location)
	assertEqual(t, "CreatedAt", created.Unix(), got.CreatedAt.Unix())
	assertEqual(t, "UpdatedAt", p.UpdatedAt.Unix(), got.UpdatedAt.Unix())

	if _, ok, err := s.GetPatient(ctx, "does-not-exist"); err != nil || ok {
		t.Errorf("GetPatient missing: ok=%v err=%v", ok, err)
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}
