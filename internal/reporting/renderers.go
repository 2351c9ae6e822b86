package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

// QueryRenderer renders the four built-in report kinds against the ledger,
// wallet, and AML alert tables, encoding the result as CSV, XLSX, or PDF
// per the job's requested format.
type QueryRenderer struct {
	pool    repository.DBTX
	txns    repository.TransactionRepository
	wallets repository.WalletRepository
	alerts  repository.AMLAlertRepository
}

// NewQueryRenderer builds a QueryRenderer; its Renderers method returns the
// default Renderer set, one entry per kind in DefaultSchemas.
func NewQueryRenderer(pool repository.DBTX, txns repository.TransactionRepository, wallets repository.WalletRepository, alerts repository.AMLAlertRepository) *QueryRenderer {
	return &QueryRenderer{pool: pool, txns: txns, wallets: wallets, alerts: alerts}
}

// Renderers returns a map[kind]Renderer suitable for reporting.NewScheduler,
// one entry per report kind this renderer knows how to produce.
func (q *QueryRenderer) Renderers() map[string]Renderer {
	return map[string]Renderer{
		"transaction_summary": RendererFunc(q.renderTransactionSummary),
		"wallet_balances":     RendererFunc(q.renderWalletBalances),
		"aml_alerts":          RendererFunc(q.renderAMLAlerts),
		"commission_payout":   RendererFunc(q.renderCommissionPayout),
	}
}

type reportParams struct {
	PartnerID uuid.UUID `json:"partner_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Period    string    `json:"period"`
}

func parseParams(job *domain.ReportJob) (reportParams, error) {
	var p reportParams
	if len(job.Params) > 0 {
		if err := json.Unmarshal(job.Params, &p); err != nil {
			return p, fmt.Errorf("unmarshal report params: %w", err)
		}
	}
	if p.PartnerID == uuid.Nil {
		p.PartnerID = job.PartnerID
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	return p, nil
}

func (q *QueryRenderer) renderTransactionSummary(ctx context.Context, job *domain.ReportJob) ([]byte, error) {
	p, err := parseParams(job)
	if err != nil {
		return nil, err
	}
	txns, err := q.txns.ListByPartnerSince(ctx, q.pool, p.PartnerID, p.From, p.To, 0)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	header := []string{"transaction_id", "reference_id", "type", "status", "amount", "currency", "created_at"}
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.ID.String(), t.ReferenceID, string(t.Type), string(t.Status),
			t.Amount.String(), t.Currency, t.CreatedAt.Format(time.RFC3339),
		})
	}
	return encode(job.Format, "transactions", header, rows)
}

func (q *QueryRenderer) renderWalletBalances(ctx context.Context, job *domain.ReportJob) ([]byte, error) {
	p, err := parseParams(job)
	if err != nil {
		return nil, err
	}
	wallets, err := q.wallets.ListByPartner(ctx, q.pool, p.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("query wallets: %w", err)
	}

	header := []string{"wallet_id", "player_id", "currency", "balance", "active", "locked"}
	rows := make([][]string, 0, len(wallets))
	for _, w := range wallets {
		rows = append(rows, []string{
			w.ID.String(), w.PlayerID.String(), w.Currency, w.Balance.String(),
			fmt.Sprintf("%t", w.Active), fmt.Sprintf("%t", w.Locked),
		})
	}
	return encode(job.Format, "wallet_balances", header, rows)
}

func (q *QueryRenderer) renderAMLAlerts(ctx context.Context, job *domain.ReportJob) ([]byte, error) {
	p, err := parseParams(job)
	if err != nil {
		return nil, err
	}
	alerts, err := q.alerts.List(ctx, q.pool, []repository.Filter{
		repository.Eq("partner_id", p.PartnerID),
	}, repository.Pagination{Limit: 5000})
	if err != nil {
		return nil, fmt.Errorf("query aml alerts: %w", err)
	}

	header := []string{"alert_id", "player_id", "alert_type", "severity", "status", "risk_score", "created_at"}
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		if a.CreatedAt.Before(p.From) || a.CreatedAt.After(p.To) {
			continue
		}
		rows = append(rows, []string{
			a.ID.String(), a.PlayerID.String(), string(a.AlertType), string(a.Severity),
			string(a.Status), fmt.Sprintf("%.2f", a.RiskScoreAtAlert), a.CreatedAt.Format(time.RFC3339),
		})
	}
	return encode(job.Format, "aml_alerts", header, rows)
}

// renderCommissionPayout aggregates completed bet/win amounts per currency
// over the params' [from, to) window into the partner's net gaming revenue.
// The period parameter is not read; a missing from covers all history.
func (q *QueryRenderer) renderCommissionPayout(ctx context.Context, job *domain.ReportJob) ([]byte, error) {
	p, err := parseParams(job)
	if err != nil {
		return nil, err
	}
	txns, err := q.txns.ListByPartnerSince(ctx, q.pool, p.PartnerID, p.From, p.To, 0)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	type totals struct{ bets, wins domain.Money }
	byCurrency := map[string]totals{}
	for _, t := range txns {
		if t.Status != domain.TxStatusCompleted {
			continue
		}
		cur := byCurrency[t.Currency]
		switch t.Type {
		case domain.TxBet:
			cur.bets = cur.bets.Add(t.Amount.Abs())
		case domain.TxWin:
			cur.wins = cur.wins.Add(t.Amount.Abs())
		}
		byCurrency[t.Currency] = cur
	}

	header := []string{"currency", "total_bets", "total_wins", "net_gaming_revenue"}
	var rows [][]string
	for cur, t := range byCurrency {
		rows = append(rows, []string{cur, t.bets.String(), t.wins.String(), t.bets.Sub(t.wins).String()})
	}
	return encode(job.Format, "commission_payout", header, rows)
}

// encode renders header+rows into the requested ReportFormat.
func encode(format domain.ReportFormat, sheetName string, header []string, rows [][]string) ([]byte, error) {
	switch format {
	case domain.FormatCSV:
		return encodeCSV(header, rows)
	case domain.FormatExcel:
		return encodeXLSX(sheetName, header, rows)
	case domain.FormatPDF:
		return encodePDF(sheetName, header, rows)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeXLSX(sheetName string, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	f.SetSheetName(sheet, sheetName)

	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}
	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePDF(title string, header []string, rows [][]string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")

	colWidth := 277.0 / float64(len(header))
	pdf.SetFont("Helvetica", "B", 9)
	for _, h := range header {
		pdf.CellFormat(colWidth, 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for _, v := range row {
			pdf.CellFormat(colWidth, 7, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
