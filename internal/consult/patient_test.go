package consult

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sahayak/internal/triage"
)

func TestCreatePatient(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := NewService(store, ruleEngine(), log.Nop(), nil)

	p, err := svc.CreatePatient(context.Background(), &PatientInput{
		Age:      intPtr(62),
		Gender:   " female ",
		Location: " Sylhet ",
	})
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if p.ID == "" {
		t.Error("expected an ID")
	}
	if p.Age != 62 || p.Gender != "female" || p.Location != "Sylhet" {
		t.Errorf("patient = %+v", p)
	}
	if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Errorf("CreatedAt = %v, UpdatedAt = %v", p.CreatedAt, p.UpdatedAt)
	}

	got, ok, err := svc.GetPatient(context.Background(), p.ID)
	if err != nil || !ok {
		t.Fatalf("GetPatient: ok=%v err=%v", ok, err)
	}
	if *got != *p {
		t.Errorf("stored = %+v, want %+v", got, p)
	}
}

func TestCreatePatient_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   PatientInput
	}{
		{"missing age", PatientInput{Gender: "male"}},
		{"negative age", PatientInput{Age: intPtr(-1), Gender: "male"}},
		{"huge age", PatientInput{Age: intPtr(151), Gender: "male"}},
		{"blank gender", PatientInput{Age: intPtr(30), Gender: "  "}},
		{"long gender", PatientInput{Age: intPtr(30), Gender: "abcdefghijklmnopqrstuvwxyz"}},
		{"long location", PatientInput{Age: intPtr(30), Gender: "male", Location: strings.Repeat("x", maxLocationLen+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMockStore()
			svc := NewService(store, ruleEngine(), log.Nop(), nil)
			if _, err := svc.CreatePatient(context.Background(), &tt.in); !errors.Is(err, triage.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
			if len(store.patients) != 0 {
				t.Error("invalid patient should not be stored")
			}
		})
	}
}

func TestUpdatePatient(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newMockStore()
	store.patients["p-1"] = &Patient{ID: "p-1", Age: 40, Gender: "male", CreatedAt: created, UpdatedAt: created}
	svc := NewService(store, ruleEngine(), log.Nop(), nil)

	p, err := svc.UpdatePatient(context.Background(), "p-1", &PatientInput{Age: intPtr(41), Gender: "male", Location: "Khulna"})
	if err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	if p.Age != 41 || p.Location != "Khulna" {
		t.Errorf("patient = %+v", p)
	}
	if !p.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed to %v", p.CreatedAt)
	}
	if !p.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt = %v, want after %v", p.UpdatedAt, created)
	}
	if store.patients["p-1"].Age != 41 {
		t.Error("update was not stored")
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newMockStore(), ruleEngine(), log.Nop(), nil)
	_, err := svc.UpdatePatient(context.Background(), "nope", &PatientInput{Age: intPtr(20), Gender: "female"})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestTriage_ResolvesPatientProfile(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.patients["p-1"] = &Patient{ID: "p-1", Age: 70, Gender: "female"}
	svc := NewService(store, ruleEngine(), log.Nop(), nil)

	tests := []struct {
		name       string
		req        Request
		wantAge    int
		wantGender string
	}{
		{"profile fills both", Request{PatientID: "p-1", Symptoms: symptoms("cold")}, 70, "female"},
		{"request age wins", Request{PatientID: "p-1", Symptoms: symptoms("cold"), Age: intPtr(69)}, 69, "female"},
		{"request gender wins", Request{PatientID: "p-1", Symptoms: symptoms("cold"), Gender: "other"}, 70, "other"},
	}
	for _, tt := range tests {
		c, err := svc.Triage(context.Background(), &tt.req)
		if err != nil {
			t.Fatalf("%s: Triage: %v", tt.name, err)
		}
		if c.Age != tt.wantAge || c.Gender != tt.wantGender {
			t.Errorf("%s: age/gender = %d/%q, want %d/%q", tt.name, c.Age, c.Gender, tt.wantAge, tt.wantGender)
		}
		if c.PatientID != "p-1" {
			t.Errorf("%s: PatientID = %q", tt.name, c.PatientID)
		}
	}
}

func TestTriage_UnknownPatient(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := NewService(store, ruleEngine(), log.Nop(), nil)

	_, err := svc.Triage(context.Background(), &Request{PatientID: "ghost", Symptoms: symptoms("fever"), Age: intPtr(30)})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
	if store.putCount() != 0 {
		t.Error("consultation for an unknown patient should not be stored")
	}
}

func TestTriage_PatientLookupError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.getErr = errors.New("db down")
	svc := NewService(store, ruleEngine(), log.Nop(), nil)

	_, err := svc.Triage(context.Background(), &Request{PatientID: "p-1", Symptoms: symptoms("fever")})
	if err == nil || errors.Is(err, ErrPatientNotFound) || errors.Is(err, triage.ErrInvalidInput) {
		t.Errorf("err = %v, want a wrapped store error", err)
	}
}
