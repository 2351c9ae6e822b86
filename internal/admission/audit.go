package admission

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// AuditEntry is what a handler/middleware hands to the audit logger once
// a response has been written.
type AuditEntry struct {
	RequestID    uuid.UUID
	PartnerID    *uuid.UUID
	ApiKeyID     *uuid.UUID
	IP           string
	Method       string
	Path         string
	StatusCode   int
	Latency      time.Duration
	RequestBody  []byte
	ResponseBody []byte
}

// AuditLogger writes one AuditLog row per request asynchronously, so a
// slow or failing write never adds latency to the response already sent.
// A write failure is logged only; it never blocks the caller.
type AuditLogger struct {
	logs                repository.AuditLogRepository
	pool                *pgxpool.Pool
	logger              *zap.Logger
	sensitiveFieldNames []string
}

// NewAuditLogger builds an AuditLogger with the configured sensitive-field
// redaction list (the defaults, or the file config's replacement list).
func NewAuditLogger(pool *pgxpool.Pool, logs repository.AuditLogRepository, sensitiveFieldNames []string, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{pool: pool, logs: logs, sensitiveFieldNames: sensitiveFieldNames, logger: logger}
}

// LogAsync redacts sensitive fields from the request/response bodies and
// writes the row in a detached goroutine.
func (a *AuditLogger) LogAsync(entry AuditEntry) {
	row := &domain.AuditLog{
		ID:           uuid.New(),
		RequestID:    entry.RequestID,
		Timestamp:    time.Now(),
		PartnerID:    entry.PartnerID,
		ApiKeyID:     entry.ApiKeyID,
		IP:           entry.IP,
		Method:       entry.Method,
		Path:         entry.Path,
		StatusCode:   entry.StatusCode,
		LatencyMS:    entry.Latency.Milliseconds(),
		RequestBody:  redactJSON(entry.RequestBody, a.sensitiveFieldNames),
		ResponseBody: redactJSON(entry.ResponseBody, a.sensitiveFieldNames),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.logs.Insert(ctx, a.pool, row); err != nil {
			a.logger.Error("audit log write failed", zap.Error(err), zap.String("request_id", row.RequestID.String()))
		}
	}()
}

// redactJSON walks a JSON object/array and replaces the value of any key
// matching sensitiveFieldNames (case-insensitive) with a partial reveal:
// the first 3 and last 3 characters.
func redactJSON(body []byte, sensitiveFieldNames []string) string {
	if len(body) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	sensitive := make(map[string]struct{}, len(sensitiveFieldNames))
	for _, f := range sensitiveFieldNames {
		sensitive[normalizeFieldName(f)] = struct{}{}
	}
	redactValue(v, sensitive)
	out, err := json.Marshal(v)
	if err != nil {
		return string(body)
	}
	return string(out)
}

func redactValue(v interface{}, sensitive map[string]struct{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if _, ok := sensitive[normalizeFieldName(k)]; ok {
				if s, ok := val.(string); ok {
					t[k] = partialReveal(s)
					continue
				}
			}
			redactValue(val, sensitive)
		}
	case []interface{}:
		for _, item := range t {
			redactValue(item, sensitive)
		}
	}
}

func normalizeFieldName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// partialReveal keeps the first 3 and last 3 characters of s and masks
// the rest. Short strings are masked entirely to avoid revealing most of
// a short secret.
func partialReveal(s string) string {
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "***" + s[len(s)-3:]
}
