package consult

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sahayak/internal/triage"
)

const notifyTimeout = 15 * time.Second

// Service is the business boundary for consultations.
type Service struct {
	store    Store
	engine   *triage.Engine
	logger   log.Logger
	notifier Notifier
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewService creates a consultation service. notifier may be nil.
func NewService(store Store, engine *triage.Engine, logger log.Logger, notifier Notifier) *Service {
	if store == nil {
		panic(xerrors.New("consultation store is required"))
	}
	if engine == nil {
		panic(xerrors.New("triage engine is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

// Triage classifies the request, persists the consultation and notifies on
// emergencies. A request naming a patient must name an existing one, and
// takes missing age and gender from the profile. Errors wrapping
// triage.ErrInvalidInput are the caller's fault.
func (s *Service) Triage(ctx context.Context, req *Request) (*Consultation, error) {
	age, gender, err := s.resolvePatient(ctx, req)
	if err != nil {
		return nil, err
	}

	c := s.newConsultation(req, age, gender)
	d, err := s.engine.Decide(ctx, c.Symptoms, c.patient())
	if err != nil {
		return nil, err
	}
	c.apply(&d.Result)
	c.FallbackReason = d.Reason

	if err := s.store.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store consultation: %w", err)
	}

	s.logger.Info(ctx, "triage complete",
		"consultation_id", c.ID,
		"severity", c.Severity,
		"provenance", c.Provenance,
		"fallback_reason", c.FallbackReason,
		"symptoms", len(c.Symptoms),
	)

	if c.Emergency() {
		s.notify(ctx, c)
	}
	return c, nil
}

// OfflineTriage runs the rule scorer only. Missing age and gender take the
// offline defaults. Nothing is stored.
func (s *Service) OfflineTriage(_ context.Context, req *Request) (*Consultation, error) {
	age := OfflineDefaultAge
	if req.Age != nil {
		age = *req.Age
	}
	gender := req.Gender
	if strings.TrimSpace(gender) == "" {
		gender = OfflineDefaultGender
	}

	c := s.newConsultation(req, age, gender)
	r, err := s.engine.Fallback(c.Symptoms, c.patient())
	if err != nil {
		return nil, err
	}
	c.apply(&r)
	return c, nil
}

// Get retrieves a consultation by ID.
func (s *Service) Get(ctx context.Context, id string) (*Consultation, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns recent consultations, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*Consultation, error) {
	f.Limit = NormalizeLimit(f.Limit)
	return s.store.List(ctx, f)
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) newConsultation(req *Request, age int, gender string) *Consultation {
	symptoms := make([]triage.SymptomReport, len(req.Symptoms))
	for i, r := range req.Symptoms {
		symptoms[i] = triage.SymptomReport{ID: strings.TrimSpace(r.ID), Duration: r.Duration}
	}
	return &Consultation{
		ID:        ulid.Make().String(),
		PatientID: req.PatientID,
		Symptoms:  symptoms,
		Age:       age,
		Gender:    strings.TrimSpace(gender),
		Duration:  triage.ParseDuration(req.Duration),
		CreatedAt: s.now().UTC(),
	}
}

func (c *Consultation) patient() triage.Patient {
	return triage.Patient{Age: c.Age, Gender: c.Gender, Duration: c.Duration}
}

// notify sends in the background. Wait drains pending sends.
func (s *Service) notify(ctx context.Context, c *Consultation) {
	if s.notifier == nil {
		return
	}
	cp := *c
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.notifier.Send(nctx, &cp); err != nil {
			s.logger.Error(nctx, err, "emergency notification failed", "consultation_id", cp.ID)
		}
	}()
}
