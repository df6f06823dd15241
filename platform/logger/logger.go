// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used by tests and tools.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger carrying request_id and user_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		out = &Logger{Logger: out.With(slog.String("request_id", requestID))}
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		out = &Logger{Logger: out.With(slog.String("user_id", userID))}
	}
	return out
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// AssignmentTransition logs a committed assignment state change.
func (l *Logger) AssignmentTransition(assignmentID, leadID, from, to string) {
	l.Info("assignment_transition",
		slog.String("assignment_id", assignmentID),
		slog.String("lead_id", leadID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// DistributionCompleted logs the outcome of one distribution round for a lead.
func (l *Logger) DistributionCompleted(leadID string, created, skippedForCredit, shortfall int) {
	l.Info("distribution_completed",
		slog.String("lead_id", leadID),
		slog.Int("created", created),
		slog.Int("skipped_for_credit", skippedForCredit),
		slog.Int("shortfall", shortfall),
	)
}

// SweepCompleted logs an expiry sweep result.
func (l *Logger) SweepCompleted(expired, reassigned int) {
	l.Info("sweep_completed",
		slog.Int("expired", expired),
		slog.Int("reassigned", reassigned),
	)
}

// CadenceCompleted logs a reminder or follow-up run.
func (l *Logger) CadenceCompleted(cadence string, sent, skipped int) {
	l.Info("cadence_completed",
		slog.String("cadence", cadence),
		slog.Int("sent", sent),
		slog.Int("skipped", skipped),
	)
}

// NotificationFailed logs a best-effort notification that could not be dispatched.
func (l *Logger) NotificationFailed(template, recipient string, err error) {
	l.Warn("notification_failed",
		slog.String("template", template),
		slog.String("recipient", recipient),
		slog.String("error", err.Error()),
	)
}
