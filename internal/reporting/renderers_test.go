package reporting

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casinobroker/platform/internal/domain"
)

func TestParseParamsDefaultsPartnerAndTo(t *testing.T) {
	job := &domain.ReportJob{PartnerID: uuid.New()}

	p, err := parseParams(job)
	require.NoError(t, err)
	assert.Equal(t, job.PartnerID, p.PartnerID)
	assert.False(t, p.To.IsZero())
}

func TestParseParamsHonorsExplicitValues(t *testing.T) {
	partnerID := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(reportParams{PartnerID: partnerID, From: from, To: to})
	require.NoError(t, err)

	job := &domain.ReportJob{PartnerID: uuid.New(), Params: raw}
	p, err := parseParams(job)
	require.NoError(t, err)
	assert.Equal(t, partnerID, p.PartnerID)
	assert.True(t, p.From.Equal(from))
	assert.True(t, p.To.Equal(to))
}

func TestParseParamsInvalidJSON(t *testing.T) {
	job := &domain.ReportJob{PartnerID: uuid.New(), Params: []byte("not json")}
	_, err := parseParams(job)
	assert.Error(t, err)
}

func TestEncodeCSV(t *testing.T) {
	out, err := encode(domain.FormatCSV, "sheet", []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	assert.Contains(t, string(out), "a,b")
	assert.Contains(t, string(out), "1,2")
}

func TestEncodeXLSX(t *testing.T) {
	out, err := encode(domain.FormatExcel, "sheet", []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	// xlsx is a zip container; verify the local file header magic bytes.
	assert.Equal(t, []byte("PK"), out[:2])
}

func TestEncodePDF(t *testing.T) {
	out, err := encode(domain.FormatPDF, "sheet", []string{"a", "b"}, [][]string{{"1", "2"}})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, []byte("%PDF"), out[:4])
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	_, err := encode(domain.ReportFormat("yaml"), "sheet", []string{"a"}, nil)
	assert.Error(t, err)
}
