package consult

import "context"

// Store is the persistence interface for consultations and patient
// profiles. List returns newest first.
type Store interface {
	Get(ctx context.Context, id string) (*Consultation, bool, error)
	Put(ctx context.Context, c *Consultation) error
	List(ctx context.Context, f ListFilter) ([]*Consultation, error)

	GetPatient(ctx context.Context, id string) (*Patient, bool, error)
	PutPatient(ctx context.Context, p *Patient) error
}

// Notifier is told about emergency consultations.
type Notifier interface {
	Send(ctx context.Context, c *Consultation) error
}

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	}
	return n
}
