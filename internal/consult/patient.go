package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sahayak/internal/triage"
)

// ErrPatientNotFound is returned when a request names a patient that does
// not exist.
var ErrPatientNotFound = errors.New("patient not found")

const (
	maxPatientAge       = 150
	maxPatientGenderLen = 20
	maxLocationLen      = 200
)

// PatientInput is the caller-editable part of a patient profile.
type PatientInput struct {
	Age      *int   `json:"age"`
	Gender   string `json:"gender"`
	Location string `json:"location,omitempty"`
}

func (in *PatientInput) validate() error {
	if in.Age == nil {
		return fmt.Errorf("%w: age is required", triage.ErrInvalidInput)
	}
	if *in.Age < 0 || *in.Age > maxPatientAge {
		return fmt.Errorf("%w: age must be between 0 and %d", triage.ErrInvalidInput, maxPatientAge)
	}
	gender := strings.TrimSpace(in.Gender)
	if gender == "" {
		return fmt.Errorf("%w: gender is required", triage.ErrInvalidInput)
	}
	if len(gender) > maxPatientGenderLen {
		return fmt.Errorf("%w: gender is too long", triage.ErrInvalidInput)
	}
	if len(strings.TrimSpace(in.Location)) > maxLocationLen {
		return fmt.Errorf("%w: location is too long", triage.ErrInvalidInput)
	}
	return nil
}

// CreatePatient stores a new patient profile with a fresh ID.
func (s *Service) CreatePatient(ctx context.Context, in *PatientInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &Patient{
		ID:        ulid.Make().String(),
		Age:       *in.Age,
		Gender:    strings.TrimSpace(in.Gender),
		Location:  strings.TrimSpace(in.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutPatient(ctx, p); err != nil {
		return nil, fmt.Errorf("store patient: %w", err)
	}
	s.logger.Info(ctx, "patient created", "patient_id", p.ID)
	return p, nil
}

// GetPatient retrieves a patient profile by ID.
func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, bool, error) {
	return s.store.GetPatient(ctx, id)
}

// UpdatePatient replaces the editable fields of an existing profile.
// Unknown IDs return ErrPatientNotFound.
func (s *Service) UpdatePatient(ctx context.Context, id string, in *PatientInput) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, ok, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	p.Age = *in.Age
	p.Gender = strings.TrimSpace(in.Gender)
	p.Location = strings.TrimSpace(in.Location)
	p.UpdatedAt = s.now().UTC()
	if err := s.store.PutPatient(ctx, p); err != nil {
		return nil, fmt.Errorf("store patient: %w", err)
	}
	return p, nil
}

// resolvePatient fills the age and gender a triage request left out from
// the named patient's profile.
func (s *Service) resolvePatient(ctx context.Context, req *Request) (age int, gender string, err error) {
	gender = req.Gender
	if req.PatientID == "" {
		if req.Age == nil {
			return 0, "", fmt.Errorf("%w: age or patient_id is required", triage.ErrInvalidInput)
		}
		return *req.Age, gender, nil
	}

	p, ok, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return 0, "", fmt.Errorf("get patient: %w", err)
	}
	if !ok {
		return 0, "", ErrPatientNotFound
	}

	age = p.Age
	if req.Age != nil {
		age = *req.Age
	}
	if strings.TrimSpace(gender) == "" {
		gender = p.Gender
	}
	return age, gender, nil
}
