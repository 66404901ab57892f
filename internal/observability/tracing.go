package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

// Span times one recomputation pass or request. Spans are not exported
// anywhere; End writes them to the debug log.
type Span struct {
	TraceID   string         `json:"trace_id"`
	SpanID    string         `json:"span_id"`
	ParentID  string         `json:"parent_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Operation string         `json:"operation"`
	StartTime time.Time      `json:"start_time"`
	Duration  *time.Duration `json:"duration,omitempty"`
	Tags      []slog.Attr    `json:"-"`
	Status    SpanStatus     `json:"status"`
	Error     string         `json:"error,omitempty"`
}

type spanContextKey struct{}

// StartSpan opens a span under the span already in ctx, if any. Root spans
// reuse the request ID as their trace ID so span lines join request logs.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		SpanID:    newSpanID(),
		SessionID: GetSessionID(ctx),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanStatusOK,
	}

	switch parent := GetSpan(ctx); {
	case parent != nil:
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	case GetRequestID(ctx) != "":
		span.TraceID = GetRequestID(ctx)
	default:
		span.TraceID = newSpanID()
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

func (s *Span) SetTag(key, value string) {
	s.Tags = append(s.Tags, slog.String(key, value))
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

func (s *Span) Finish() {
	d := time.Since(s.StartTime)
	s.Duration = &d
}

// End finishes the span and logs it at debug level.
func (s *Span) End(logger *slog.Logger) {
	s.Finish()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := make([]slog.Attr, 0, 8+len(s.Tags))
	attrs = append(attrs,
		slog.String("operation", s.Operation),
		slog.String("trace_id", s.TraceID),
		slog.String("span_id", s.SpanID),
		slog.Duration("duration", *s.Duration),
		slog.String("status", string(s.Status)),
	)
	if s.ParentID != "" {
		attrs = append(attrs, slog.String("parent_id", s.ParentID))
	}
	if s.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", s.SessionID))
	}
	attrs = append(attrs, s.Tags...)
	if s.Error != "" {
		attrs = append(attrs, slog.String("error", s.Error))
	}
	logger.LogAttrs(context.Background(), slog.LevelDebug, "span finished", attrs...)
}

func newSpanID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
