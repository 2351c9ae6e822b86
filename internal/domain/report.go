package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportJobStatus is the reporting scheduler's status machine:
// pending → processing → completed|failed.
type ReportJobStatus string

const (
	ReportJobPending    ReportJobStatus = "pending"
	ReportJobProcessing ReportJobStatus = "processing"
	ReportJobCompleted  ReportJobStatus = "completed"
	ReportJobFailed     ReportJobStatus = "failed"
)

// ReportFormat is the rendered file's MIME family; rendering itself lives
// in internal/reporting, not in this package.
type ReportFormat string

const (
	FormatCSV   ReportFormat = "csv"
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "xlsx"
)

// ReportFormatMIME maps a ReportFormat to its Content-Type, used by the
// download handler.
var ReportFormatMIME = map[ReportFormat]string{
	FormatCSV:   "text/csv",
	FormatPDF:   "application/pdf",
	FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ReportJob is a persisted report-generation request.
type ReportJob struct {
	ID            uuid.UUID       `json:"id"`
	PartnerID     uuid.UUID       `json:"partner_id"`
	ReportKind    string          `json:"report_kind"`
	Format        ReportFormat    `json:"format"`
	Params        json.RawMessage `json:"params"`
	Status        ReportJobStatus `json:"status"`
	StoragePath   string          `json:"storage_path,omitempty"`
	FileSizeBytes int64           `json:"file_size_bytes,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// ReportSchema describes the parameters a given report kind accepts, used
// to validate ReportJob.Params against the requested report type's
// declared schema before enqueuing.
type ReportSchema struct {
	Kind           string
	RequiredFields []string
}

// GuardResult is the outcome of an admission-pipeline guard check (rate
// limiter, IP whitelist, lockout).
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
