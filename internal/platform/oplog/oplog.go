// Package oplog writes append-only operational log rows: audit_logs,
// error_logs, login_logs, performance_logs. All writes are asynchronous and
// best-effort; a failing insert is logged at debug level and otherwise
// swallowed, because logging must never fail a request.
package oplog

import (
	"context"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/caretrack/caretrack/internal/platform/middleware"
)

// Login event values stored in login_logs.
const (
	EventLoginSuccess = "LOGIN_SUCCESS"
	EventLoginFailed  = "LOGIN_FAILED"
	EventLogout       = "LOGOUT"
)

const writeTimeout = 5 * time.Second

// Writer persists operational log rows to PostgreSQL.
type Writer struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWriter creates a Writer.
func NewWriter(pool *pgxpool.Pool, logger zerolog.Logger) *Writer {
	return &Writer{pool: pool, logger: logger}
}

// RecordAccess implements middleware.AuditRecorder.
func (w *Writer) RecordAccess(entry middleware.AuditEntry) error {
	w.async(func(ctx context.Context) error {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO audit_logs (user_id, username, role, resource, action, method, path, status_code, ip_address, user_agent, request_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			nullableID(entry.UserID), entry.Username, entry.Role, entry.Resource, entry.Action,
			entry.Method, entry.Path, entry.StatusCode, entry.IPAddress, entry.UserAgent,
			entry.RequestID, entry.Timestamp)
		return err
	})
	return nil
}

// RecordError implements apierror.ErrorRecorder. The message is redacted
// before persisting.
func (w *Writer) RecordError(path, method, code, message string, status int, requestID string) {
	w.async(func(ctx context.Context) error {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO error_logs (path, method, code, message, status_code, request_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
			path, method, code, Redact(message), status, requestID)
		return err
	})
}

// RecordLogin writes a login_logs row. userID is nil for failed attempts
// against unknown usernames.
func (w *Writer) RecordLogin(username string, userID *int64, event, ipAddress string) {
	w.async(func(ctx context.Context) error {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO login_logs (username, user_id, event, ip_address, created_at)
			VALUES ($1,$2,$3,$4,NOW())`,
			username, userID, event, ipAddress)
		return err
	})
}

// RecordTiming implements middleware.PerformanceRecorder.
func (w *Writer) RecordTiming(method, path string, status int, duration time.Duration) {
	w.async(func(ctx context.Context) error {
		_, err := w.pool.Exec(ctx, `
			INSERT INTO performance_logs (method, path, status_code, duration_ms, created_at)
			VALUES ($1,$2,$3,$4,NOW())`,
			method, path, status, duration.Milliseconds())
		return err
	})
}

func (w *Writer) async(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			w.logger.Debug().Err(err).Msg("operational log write failed")
		}
	}()
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// redact
var sensitivePattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|authorization|apikey|api_key)(["'\s:=]+)\S+`)

// Redact masks values that follow sensitive key names so credentials never
// land in the error_logs table.
func Redact(s string) string {
	return sensitivePattern.ReplaceAllString(s, "$1$2[REDACTED]")
}
