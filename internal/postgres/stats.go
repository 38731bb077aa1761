package postgres

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

// RequestStats counts the queries issued while serving one request. It is
// safe for concurrent use.
type RequestStats struct {
	queries atomic.Int64
	errors  atomic.Int64
	nanos   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of RequestStats.
type StatsSnapshot struct {
	Queries int
	Errors  int
	Total   time.Duration
}

// Add records one finished query.
func (s *RequestStats) Add(dur time.Duration, err error) {
	s.queries.Add(1)
	s.nanos.Add(int64(dur))
	if err != nil {
		s.errors.Add(1)
	}
}

// Snapshot returns the current totals.
func (s *RequestStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries: int(s.queries.Load()),
		Errors:  int(s.errors.Load()),
		Total:   time.Duration(s.nanos.Load()),
	}
}

type statsKey struct{}

// WithRequestStats attaches a fresh RequestStats to ctx.
func WithRequestStats(ctx context.Context) (context.Context, *RequestStats) {
	s := &RequestStats{}
	return context.WithValue(ctx, statsKey{}, s), s
}

// RequestStatsFrom returns the RequestStats attached to ctx, if any.
func RequestStatsFrom(ctx context.Context) (*RequestStats, bool) {
	s, ok := ctx.Value(statsKey{}).(*RequestStats)
	return s, ok
}

// StatsMiddleware labels queries with the request method and tracks the
// request's query totals. Requests that touched the database get the totals
// on their span and one log line.
func StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, stats := WithRequestStats(WithHTTPMethod(r.Context(), r.Method))
		next.ServeHTTP(w, r.WithContext(ctx))

		snap := stats.Snapshot()
		if snap.Queries == 0 {
			return
		}

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("db.request.queries", snap.Queries),
			attribute.Int("db.request.errors", snap.Errors),
			attribute.Float64("db.request.duration", snap.Total.Seconds()),
		)
		log.FromContext(ctx).Info(ctx, "request db stats",
			"db.queries", snap.Queries,
			"db.errors", snap.Errors,
			"db.duration", snap.Total.Seconds(),
		)
	})
}
