package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

type walletOpBody struct {
	Currency    string          `json:"currency"`
	Amount      string          `json:"amount"`
	ReferenceID string          `json:"reference_id"`
	GameID      *uuid.UUID      `json:"game_id,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CountryCode string          `json:"country_code,omitempty"`
}

type cancelBody struct {
	ReferenceID         string `json:"reference_id"`
	OriginalReferenceID string `json:"original_reference_id"`
}

type walletBalanceResponse struct {
	PlayerID uuid.UUID    `json:"player_id"`
	Currency string       `json:"currency"`
	Balance  domain.Money `json:"balance"`
	Active   bool         `json:"active"`
	Locked   bool         `json:"locked"`
}

type walletOpResponse struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Balance       domain.Money    `json:"balance"`
	Currency      string          `json:"currency"`
	Amount        domain.Money    `json:"amount"`
	Type          domain.TransactionType `json:"type"`
	Replayed      bool            `json:"replayed"`
}

func (s *Server) playerIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "player_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid player_id")
	}
	return id, nil
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())
	playerID, err := s.playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	currency := r.URL.Query().Get("currency")
	if err := domain.ValidateCurrency(currency); err != nil {
		RespondError(w, err)
		return
	}

	wlt, err := s.wallets.FindByTriple(r.Context(), s.db, playerID, scope.PartnerID, currency)
	if err != nil {
		RespondError(w, err)
		return
	}
	if wlt == nil {
		RespondError(w, domain.ErrNotFound("wallet", playerID.String()))
		return
	}
	RespondJSON(w, http.StatusOK, walletBalanceResponse{
		PlayerID: wlt.PlayerID, Currency: wlt.Currency, Balance: wlt.Balance,
		Active: wlt.Active, Locked: wlt.Locked,
	})
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())
	playerID, err := s.playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	currency := r.URL.Query().Get("currency")
	if err := domain.ValidateCurrency(currency); err != nil {
		RespondError(w, err)
		return
	}

	wlt, err := s.wallets.FindByTriple(r.Context(), s.db, playerID, scope.PartnerID, currency)
	if err != nil {
		RespondError(w, err)
		return
	}
	if wlt == nil {
		RespondError(w, domain.ErrNotFound("wallet", playerID.String()))
		return
	}

	page := paginationFromQuery(r)
	sort := sortFromQuery(r)
	txns, err := s.txns.ListByWallet(r.Context(), s.db, wlt.ID, sort, page)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, txns)
}

func (s *Server) walletOp(w http.ResponseWriter, r *http.Request, txType domain.TransactionType, credit bool) {
	scope := ScopeFromContext(r.Context())
	playerID, err := s.playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var body walletOpBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidateCurrency(body.Currency); err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidateReferenceID(body.ReferenceID); err != nil {
		RespondError(w, err)
		return
	}
	amount, err := domain.ParseMoney(body.Amount)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		RespondError(w, err)
		return
	}

	req := domain.WalletOpRequest{
		PlayerID: playerID, PartnerID: scope.PartnerID, Currency: body.Currency,
		Amount: amount, ReferenceID: body.ReferenceID, Type: txType, GameID: body.GameID,
	}

	var res *domain.WalletOpResult
	if credit {
		res, err = s.walletEngine.Credit(r.Context(), req)
	} else {
		res, err = s.walletEngine.Debit(r.Context(), req)
	}
	if err != nil {
		RespondError(w, err)
		return
	}

	s.enqueueWalletOpAnalysis(scope.PartnerID, playerID, res, txType, body.CountryCode)

	RespondJSON(w, http.StatusOK, walletOpResponse{
		TransactionID: res.TransactionID, Balance: res.Balance, Currency: res.Currency,
		Amount: res.Amount, Type: res.Type, Replayed: res.Replayed,
	})
}

// enqueueWalletOpAnalysis feeds the AML pipeline the same way the game
// callback engine does, for wallet operations entered directly through the
// cashier API rather than a provider callback.
func (s *Server) enqueueWalletOpAnalysis(partnerID, playerID uuid.UUID, res *domain.WalletOpResult, txType domain.TransactionType, countryCode string) {
	if res.Replayed || s.amlQueue == nil {
		return
	}
	s.amlQueue.Enqueue(aml.Input{
		Transaction: domain.Transaction{
			ID: res.TransactionID, PlayerID: playerID, PartnerID: partnerID,
			Type: txType, Amount: res.Amount, Currency: res.Currency,
			Status: domain.TxStatusCompleted, CreatedAt: time.Now().UTC(),
		},
		CountryCode: countryCode,
	})
}

func (s *Server) handleWalletDeposit(w http.ResponseWriter, r *http.Request) {
	s.walletOp(w, r, domain.TxDeposit, true)
}

func (s *Server) handleWalletWithdraw(w http.ResponseWriter, r *http.Request) {
	s.walletOp(w, r, domain.TxWithdrawal, false)
}

func (s *Server) handleWalletBet(w http.ResponseWriter, r *http.Request) {
	s.walletOp(w, r, domain.TxBet, false)
}

func (s *Server) handleWalletWin(w http.ResponseWriter, r *http.Request) {
	s.walletOp(w, r, domain.TxWin, true)
}

func (s *Server) handleWalletCancel(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())
	playerID, err := s.playerIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var body cancelBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidateReferenceID(body.ReferenceID); err != nil {
		RespondError(w, err)
		return
	}
	if body.OriginalReferenceID == "" {
		RespondError(w, domain.ErrValidation("original_reference_id is required"))
		return
	}

	res, err := s.walletEngine.Rollback(r.Context(), domain.RollbackRequest{
		PlayerID: playerID, PartnerID: scope.PartnerID,
		ReferenceID: body.ReferenceID, OriginalReferenceID: body.OriginalReferenceID,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, walletOpResponse{
		TransactionID: res.TransactionID, Balance: res.Balance, Currency: res.Currency,
		Amount: res.Amount, Type: res.Type, Replayed: res.Replayed,
	})
}

func paginationFromQuery(r *http.Request) repository.Pagination {
	page := repository.DefaultPagination()
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		if n, err := parseNonNegativeInt(v); err == nil {
			page.Skip = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := parseNonNegativeInt(v); err == nil {
			page.Limit = n
		}
	}
	return page
}

func sortFromQuery(r *http.Request) *repository.Sort {
	v := r.URL.Query().Get("sort")
	if v == "" {
		return nil
	}
	desc := false
	field := v
	if field[0] == '-' {
		desc = true
		field = field[1:]
	}
	return &repository.Sort{Field: field, Desc: desc}
}

func parseNonNegativeInt(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, domain.ErrValidation("invalid integer: " + s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
