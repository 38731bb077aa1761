package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

// queryInfo is what TraceQueryStart hands to TraceQueryEnd.
type queryInfo struct {
	sql      string
	argCount int
	start    time.Time
	caller   string
	handler  string
}

type queryInfoKey struct{}

// queryTracer wraps an inner pgx tracer (otelpgx) with per-query logging,
// request stats and the metrics observer. Bind arguments carry patient data
// and are only counted.
type queryTracer struct {
	inner pgx.QueryTracer
	// successful queries faster than minLog are not logged; 0 logs all
	minLog time.Duration
}

func newQueryTracer(inner pgx.QueryTracer, minLog time.Duration) *queryTracer {
	return &queryTracer{inner: inner, minLog: minLog}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	info := queryInfo{
		sql:      data.SQL,
		argCount: len(data.Args),
		start:    time.Now(),
	}
	info.caller, info.handler = callSites()

	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("db.args_count", info.argCount))
		if info.caller != "" {
			span.SetAttributes(attribute.String("db.caller", info.caller))
		}
		if info.handler != "" {
			span.SetAttributes(attribute.String("db.handler", info.handler))
		}
	}

	return context.WithValue(ctx, queryInfoKey{}, info)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	info, _ := ctx.Value(queryInfoKey{}).(queryInfo)
	var dur time.Duration
	if !info.start.IsZero() {
		dur = time.Since(info.start)
	}

	if s, ok := RequestStatsFrom(ctx); ok {
		s.Add(dur, data.Err)
	}
	if obs := currentObserver(); obs != nil && dur > 0 {
		method, route, outcome := queryLabels(ctx, data.Err)
		obs.ObserveQuery(ctx, method, route, outcome, dur)
	}

	if data.Err == nil && t.minLog > 0 && dur < t.minLog {
		return
	}
	fields := append(info.logFields(dur), commandFields(data)...)

	L := log.FromContext(ctx)
	if data.Err != nil {
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

func (q queryInfo) logFields(dur time.Duration) []any {
	fields := []any{
		"db.statement", q.sql,
		"db.args_count", q.argCount,
		"db.duration", dur.Seconds(),
	}
	if q.caller != "" {
		fields = append(fields, "db.caller", q.caller)
	}
	if q.handler != "" {
		fields = append(fields, "db.handler", q.handler)
	}
	return fields
}

// commandFields derives operation, row count and postgres error details.
func commandFields(data pgx.TraceQueryEndData) []any {
	var fields []any
	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		op, _, _ := strings.Cut(tag, " ")
		fields = append(fields,
			"db.operation.name", strings.ToUpper(op),
			"pg.command_tag", tag,
			"db.rows", data.CommandTag.RowsAffected(),
		)
	}
	var pgErr *pgconn.PgError
	if errors.As(data.Err, &pgErr) {
		fields = append(fields,
			"db.error_code", pgErr.Code,
			"db.error_constraint", pgErr.ConstraintName,
		)
	}
	return fields
}

// callSites walks the stack above pgx and returns the function issuing the
// query (a store method) and the first sahayak frame above it.
func callSites() (caller, handler string) {
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])

	for {
		fr, more := frames.Next()
		fn := fr.Function
		switch {
		case fn == "":
		case strings.HasPrefix(fn, "runtime."),
			strings.Contains(fn, "github.com/jackc/pgx/v5"),
			strings.Contains(fn, "github.com/exaring/otelpgx"),
			strings.Contains(fn, "internal/postgres."):
		case caller == "":
			caller = shortenFuncName(fn)
		default:
			return caller, shortenFuncName(fn)
		}
		if !more {
			return caller, handler
		}
	}
}

// shortenFuncName drops the import path and package name, keeping
// receiver and method.
func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 && i+1 < len(fn) {
		fn = fn[i+1:]
	}
	if _, rest, ok := strings.Cut(fn, "."); ok && rest != "" {
		fn = rest
	}
	return fn
}
