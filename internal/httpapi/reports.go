package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/reporting"
)

type scheduleReportBody struct {
	Kind   string          `json:"kind"`
	Format string          `json:"format"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) handleScheduleReport(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	var body scheduleReportBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if body.Kind == "" {
		RespondError(w, domain.ErrValidation("kind is required"))
		return
	}
	format := domain.ReportFormat(body.Format)
	if _, ok := domain.ReportFormatMIME[format]; !ok {
		RespondError(w, domain.ErrValidation("unsupported report format: "+body.Format))
		return
	}

	job, err := s.scheduler.Submit(r.Context(), scope.PartnerID, body.Kind, format, body.Params)
	if err != nil {
		switch err {
		case reporting.ErrQueueFull:
			RespondError(w, domain.ErrUpstream("report queue full", err))
		default:
			RespondError(w, domain.ErrValidation(err.Error()))
		}
		return
	}
	RespondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid report id"))
		return
	}

	job, err := s.reportJobs.FindByID(r.Context(), s.db, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	if job == nil || job.PartnerID != scope.PartnerID {
		RespondError(w, domain.ErrNotFound("report_job", id.String()))
		return
	}
	if job.Status != domain.ReportJobCompleted {
		RespondError(w, domain.ErrValidation(fmt.Sprintf("report is %s, not ready for download", job.Status)))
		return
	}

	f, err := s.reportStorage.Get(r.Context(), job.StoragePath)
	if err != nil {
		RespondError(w, domain.ErrUpstream("report file unavailable", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", domain.ReportFormatMIME[job.Format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, job.ID, job.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}

type downloadLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleCreateReportDownloadLink issues a signed, time-limited download
// URL for a completed report — useful for handing a link to a partner's
// back-office user without exposing the partner's API key in a browser.
func (s *Server) handleCreateReportDownloadLink(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid report id"))
		return
	}

	job, err := s.reportJobs.FindByID(r.Context(), s.db, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	if job == nil || job.PartnerID != scope.PartnerID {
		RespondError(w, domain.ErrNotFound("report_job", id.String()))
		return
	}
	if job.Status != domain.ReportJobCompleted {
		RespondError(w, domain.ErrValidation(fmt.Sprintf("report is %s, not ready for download", job.Status)))
		return
	}

	token, expiresAt, err := signDownloadToken(s.cfg.InternalJWTSecret, job.PartnerID, job.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("sign download token", err))
		return
	}

	RespondJSON(w, http.StatusOK, downloadLinkResponse{
		URL:       fmt.Sprintf("/api/reports/download?token=%s", token),
		ExpiresAt: expiresAt,
	})
}

// handleDownloadReportByToken serves a report behind a signed link instead
// of the ordinary API-key admission chain — the token itself is the
// credential, scoped to one job and expiring after downloadLinkTTL.
func (s *Server) handleDownloadReportByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		RespondError(w, domain.ErrValidation("missing token"))
		return
	}
	partnerID, jobID, err := parseDownloadToken(s.cfg.InternalJWTSecret, token)
	if err != nil {
		RespondError(w, err)
		return
	}

	job, err := s.reportJobs.FindByID(r.Context(), s.db, jobID)
	if err != nil {
		RespondError(w, err)
		return
	}
	if job == nil || job.PartnerID != partnerID {
		RespondError(w, domain.ErrNotFound("report_job", jobID.String()))
		return
	}
	if job.Status != domain.ReportJobCompleted {
		RespondError(w, domain.ErrValidation(fmt.Sprintf("report is %s, not ready for download", job.Status)))
		return
	}

	f, err := s.reportStorage.Get(r.Context(), job.StoragePath)
	if err != nil {
		RespondError(w, domain.ErrUpstream("report file unavailable", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", domain.ReportFormatMIME[job.Format])
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, job.ID, job.Format))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
}
