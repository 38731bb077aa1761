// Package pgstore provides a PostgreSQL implementation of consult.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sahayak/internal/consult/pgstore")

//go:embed schema.sql
var schema string

// Store persists consultations and patient profiles in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const consultColumns = `id, patient_id, symptoms, age, gender, duration, severity_level,
	ai_explanation, guidance_bangla, guidance_english, is_offline, provenance,
	triggered_by, score, unknown_symptoms, model, fallback_reason, created_at`

// Get retrieves a consultation by ID.
func (s *Store) Get(ctx context.Context, id string) (*consult.Consultation, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + consultColumns + ` FROM consultations WHERE id = $1`
	c, err := scanConsultation(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	return c, true, nil
}

// Put inserts or replaces a consultation.
func (s *Store) Put(ctx context.Context, c *consult.Consultation) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	if err := s.upsert(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// List returns the newest consultations matching f.
func (s *Store) List(ctx context.Context, f consult.ListFilter) ([]*consult.Consultation, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	limit := consult.NormalizeLimit(f.Limit)
	query := `SELECT ` + consultColumns + ` FROM consultations
		WHERE ($1::text = '' OR patient_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, f.PatientID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	out := make([]*consult.Consultation, 0, limit)
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate consultations: %w", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

func (s *Store) upsert(ctx context.Context, c *consult.Consultation) error {
	symptomsJSON, err := json.Marshal(c.Symptoms)
	if err != nil {
		return fmt.Errorf("marshal symptoms: %w", err)
	}
	unknown := c.UnknownSymptoms
	if unknown == nil {
		unknown = []string{}
	}
	unknownJSON, err := json.Marshal(unknown)
	if err != nil {
		return fmt.Errorf("marshal unknown symptoms: %w", err)
	}

	query := `INSERT INTO consultations (` + consultColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	ON CONFLICT (id) DO UPDATE SET
		patient_id       = EXCLUDED.patient_id,
		symptoms         = EXCLUDED.symptoms,
		age              = EXCLUDED.age,
		gender           = EXCLUDED.gender,
		duration         = EXCLUDED.duration,
		severity_level   = EXCLUDED.severity_level,
		ai_explanation   = EXCLUDED.ai_explanation,
		guidance_bangla  = EXCLUDED.guidance_bangla,
		guidance_english = EXCLUDED.guidance_english,
		is_offline       = EXCLUDED.is_offline,
		provenance       = EXCLUDED.provenance,
		triggered_by     = EXCLUDED.triggered_by,
		score            = EXCLUDED.score,
		unknown_symptoms = EXCLUDED.unknown_symptoms,
		model            = EXCLUDED.model,
		fallback_reason  = EXCLUDED.fallback_reason`

	_, err = s.pool.Exec(ctx, query,
		c.ID, c.PatientID, symptomsJSON, c.Age, c.Gender, string(c.Duration), string(c.Severity),
		c.Explanation, c.GuidanceBN, c.GuidanceEN, c.Offline, string(c.Provenance),
		c.TriggeredBy, c.Score, unknownJSON, c.Model, string(c.FallbackReason), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consultation: %w", err)
	}
	return nil
}

// scanConsultation scans a single row. pgx.ErrNoRows is returned unwrapped.
func scanConsultation(row pgx.Row) (*consult.Consultation, error) {
	var (
		c            consult.Consultation
		symptomsJSON []byte
		unknownJSON  []byte
		duration     string
		severity     string
		provenance   string
		reason       string
	)

	err := row.Scan(
		&c.ID, &c.PatientID, &symptomsJSON, &c.Age, &c.Gender, &duration, &severity,
		&c.Explanation, &c.GuidanceBN, &c.GuidanceEN, &c.Offline, &provenance,
		&c.TriggeredBy, &c.Score, &unknownJSON, &c.Model, &reason, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	c.Duration = triage.Duration(duration)
	c.Severity = triage.Severity(severity)
	c.Provenance = triage.Provenance(provenance)
	c.FallbackReason = triage.FailureReason(reason)

	if err := json.Unmarshal(symptomsJSON, &c.Symptoms); err != nil {
		return nil, fmt.Errorf("unmarshal symptoms: %w", err)
	}
	if err := json.Unmarshal(unknownJSON, &c.UnknownSymptoms); err != nil {
		return nil, fmt.Errorf("unmarshal unknown symptoms: %w", err)
	}
	if len(c.UnknownSymptoms) == 0 {
		c.UnknownSymptoms = nil
	}
	return &c, nil
}

// GetPatient retrieves a patient profile by ID.
func (s *Store) GetPatient(ctx context.Context, id string) (*consult.Patient, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetPatient", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var p consult.Patient
	err := s.pool.QueryRow(ctx,
		`SELECT id, age, gender, location, created_at, updated_at FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.Age, &p.Gender, &p.Location, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan patient: %w", err)
	}
	return &p, true, nil
}

// PutPatient inserts or replaces a patient profile. created_at is kept from
// the first insert.
func (s *Store) PutPatient(ctx context.Context, p *consult.Patient) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutPatient", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx, `INSERT INTO patients (id, age, gender, location, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		age        = EXCLUDED.age,
		gender     = EXCLUDED.gender,
		location   = EXCLUDED.location,
		updated_at = EXCLUDED.updated_at`,
		p.ID, p.Age, p.Gender, p.Location, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}
