package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/admission"
	"github.com/casinobroker/platform/internal/domain"
)

type scopeKeyType struct{}

var scopeKey = scopeKeyType{}

// ScopeFromContext extracts the RequestScope the admission pipeline
// attached to this request. Handlers wrapped by Guarded can rely on it
// being present.
func ScopeFromContext(ctx context.Context) domain.RequestScope {
	scope, _ := ctx.Value(scopeKey).(domain.RequestScope)
	return scope
}

// auditCapture wraps http.ResponseWriter to record the final status code
// and a bounded prefix of the response body for the audit log, without
// buffering arbitrarily large bodies in memory.
type auditCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

const auditBodyCap = 8 << 10 // 8 KiB is plenty to redact and inspect

func (c *auditCapture) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *auditCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	if c.body.Len() < auditBodyCap {
		remaining := auditBodyCap - c.body.Len()
		if remaining > len(b) {
			remaining = len(b)
		}
		c.body.Write(b[:remaining])
	}
	return c.ResponseWriter.Write(b)
}

// Guarded wraps a handler with the full admission chain: authenticate,
// IP whitelist, rate limit, then (after the handler runs)
// asynchronous audit logging. required is the `resource:action`
// permission the handler needs; Grants is checked after the chain admits
// the request, since only the handler knows which permission applies.
func (s *Server) Guarded(required string, handler func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	resource, action := splitPermission(required)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		bodyBytes, _ := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxRequestBodyBytes))
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		clientIP := admission.ClientIP(r)
		normalizedPath := admission.NormalizePath(r.URL.Path)

		result, err := s.pipeline.Admit(r.Context(), r.Header.Get("X-API-Key"), clientIP, normalizedPath)
		setRateLimitHeaders(w, result.RateLimit)
		if err != nil {
			s.auditFailure(r, clientIP, bodyBytes, err, start)
			RespondError(w, err)
			return
		}

		if !result.Scope.Permissions.Grants(resource, action) {
			permErr := domain.ErrForbidden(fmt.Sprintf("missing permission %s:%s", resource, action))
			s.audit.LogAsync(admission.AuditEntry{
				RequestID: result.Scope.RequestID, PartnerID: &result.Scope.PartnerID,
				ApiKeyID: &result.Scope.ApiKeyID, IP: clientIP, Method: r.Method, Path: r.URL.Path,
				StatusCode: http.StatusForbidden, Latency: time.Since(start), RequestBody: bodyBytes,
			})
			RespondError(w, permErr)
			return
		}

		ctx := context.WithValue(r.Context(), scopeKey, result.Scope)
		cap := &auditCapture{ResponseWriter: w}
		handler(cap, r.WithContext(ctx))

		s.audit.LogAsync(admission.AuditEntry{
			RequestID: result.Scope.RequestID, PartnerID: &result.Scope.PartnerID,
			ApiKeyID: &result.Scope.ApiKeyID, IP: clientIP, Method: r.Method, Path: r.URL.Path,
			StatusCode: cap.status, Latency: time.Since(start), RequestBody: bodyBytes,
			ResponseBody: cap.body.Bytes(),
		})
	}
}

// auditFailure records the audit row for a request that never reached a
// handler because the admission chain itself rejected it.
func (s *Server) auditFailure(r *http.Request, clientIP string, bodyBytes []byte, err error, start time.Time) {
	appErr := domain.AsAppError(err)
	s.audit.LogAsync(admission.AuditEntry{
		RequestID: uuid.New(), IP: clientIP, Method: r.Method, Path: r.URL.Path,
		StatusCode: appErr.Status, Latency: time.Since(start), RequestBody: bodyBytes,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, rl admission.RateLimitResult) {
	if rl.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(rl.ResetAfter.Seconds())))
	if !rl.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
	}
}

func splitPermission(p string) (resource, action string) {
	for i := 0; i < len(p); i++ {
		if p[i] == ':' {
			return p[:i], p[i+1:]
		}
	}
	return p, "*"
}
