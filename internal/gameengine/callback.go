package gameengine

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/domain"
)

// ProcessCallback authenticates and dispatches a single provider callback:
// parse, timestamp check, nonce check, signature check, session check,
// idempotency check, then dispatch to the wallet engine.
func (e *Engine) ProcessCallback(ctx context.Context, rawBody []byte, signatureHeader string, partnerID uuid.UUID) (*domain.CallbackResult, error) {
	var env domain.CallbackEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, domain.ErrValidation("malformed callback body: " + err.Error())
	}
	if env.Token == "" || env.Action == "" || env.ReferenceID == "" || env.Nonce == "" {
		return nil, domain.ErrValidation("missing required callback fields")
	}

	if d := abs(time.Now().Unix() - env.Timestamp); d > int64(callbackSkew.Seconds()) {
		return nil, domain.ErrUnauthorized("invalid timestamp")
	}

	seenBefore, err := e.cache.CheckAndStoreNonce(ctx, env.Nonce, nonceTTL)
	if err != nil {
		return nil, fmt.Errorf("check nonce: %w", err)
	}
	if seenBefore {
		return nil, domain.ErrUnauthorized("nonce already used")
	}

	partner, err := e.partners.FindByID(ctx, e.pool, partnerID)
	if err != nil {
		return nil, fmt.Errorf("load partner: %w", err)
	}
	if partner == nil {
		return nil, domain.ErrNotFound("partner", partnerID.String())
	}
	if !verifyCallbackSignature(partner.CallbackSecret, rawBody, signatureHeader) {
		return nil, domain.ErrUnauthorized("invalid signature")
	}

	session, err := e.sessions.FindByToken(ctx, e.pool, env.Token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.Status != domain.SessionActive {
		return nil, domain.ErrUnauthorized("session not active")
	}
	if session.PartnerID != partnerID {
		return nil, domain.ErrUnauthorized("session does not belong to partner")
	}
	if time.Since(session.StartedAt) > sessionTTL {
		return nil, domain.ErrUnauthorized("session expired")
	}

	existing, err := e.gameTxns.FindByReferenceID(ctx, e.pool, env.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		if existing.Status == domain.TxStatusCompleted {
			return e.replayCallbackResult(ctx, session, existing)
		}
		return nil, domain.ErrConflict(fmt.Sprintf("reference_id %s already in progress or failed", env.ReferenceID))
	}

	result, txnID, status, dispatchErr := e.dispatchCallback(ctx, env, session, partnerID)

	gt := &domain.GameTransaction{
		ID: uuid.New(), SessionID: session.ID, TransactionID: txnID,
		ReferenceID: env.ReferenceID, RoundID: env.RoundID, Action: env.Action,
		Amount: env.Amount, Currency: env.Currency, Status: status, CreatedAt: time.Now(),
	}
	if insertErr := e.gameTxns.Insert(ctx, e.pool, gt); insertErr != nil {
		e.logger.Error("record game transaction failed", zap.Error(insertErr))
	}

	if dispatchErr != nil {
		return nil, domain.AsAppError(dispatchErr)
	}
	return result, nil
}

// dispatchCallback routes the tagged callback action to its wallet
// operation and returns the callback result plus the bookkeeping fields
// needed to record the GameTransaction. The wallet engine's own error
// (InsufficientFunds, WalletDisabled, Conflict, NotFound, ...) is returned
// as-is so the caller can surface it unchanged rather than a generic
// provider failure.
func (e *Engine) dispatchCallback(ctx context.Context, env domain.CallbackEnvelope, session *domain.GameSession, partnerID uuid.UUID) (*domain.CallbackResult, *uuid.UUID, domain.TransactionStatus, error) {
	switch env.Action {
	case domain.ActionBet:
		res, err := e.walletEngine.Debit(ctx, domain.WalletOpRequest{
			PlayerID: session.PlayerID, PartnerID: partnerID, Currency: env.Currency,
			Amount: env.Amount, ReferenceID: env.ReferenceID, Type: domain.TxBet,
			GameID: &session.GameID, GameSessionID: &session.ID,
		})
		if err != nil {
			e.logger.Warn("bet dispatch failed", zap.Error(err))
			return nil, nil, domain.TxStatusFailed, err
		}
		e.enqueueAMLAnalysis(session, partnerID, res, domain.TxBet)
		return callbackResultFromOp(res), &res.TransactionID, domain.TxStatusCompleted, nil

	case domain.ActionWin:
		res, err := e.walletEngine.Credit(ctx, domain.WalletOpRequest{
			PlayerID: session.PlayerID, PartnerID: partnerID, Currency: env.Currency,
			Amount: env.Amount, ReferenceID: env.ReferenceID, Type: domain.TxWin,
			GameID: &session.GameID, GameSessionID: &session.ID,
		})
		if err != nil {
			e.logger.Warn("win dispatch failed", zap.Error(err))
			return nil, nil, domain.TxStatusFailed, err
		}
		e.enqueueAMLAnalysis(session, partnerID, res, domain.TxWin)
		return callbackResultFromOp(res), &res.TransactionID, domain.TxStatusCompleted, nil

	case domain.ActionRefund:
		if env.OriginalReferenceID == "" {
			e.logger.Warn("refund missing original_reference_id")
			return nil, nil, domain.TxStatusFailed, domain.ErrValidation("refund missing original_reference_id")
		}
		res, err := e.walletEngine.Rollback(ctx, domain.RollbackRequest{
			PlayerID: session.PlayerID, PartnerID: partnerID,
			ReferenceID: env.ReferenceID, OriginalReferenceID: env.OriginalReferenceID,
		})
		if err != nil {
			e.logger.Warn("refund dispatch failed", zap.Error(err))
			return nil, nil, domain.TxStatusFailed, err
		}
		e.enqueueAMLAnalysis(session, partnerID, res, domain.TxRollback)
		return callbackResultFromOp(res), &res.TransactionID, domain.TxStatusCompleted, nil

	default:
		e.logger.Warn("unknown callback action", zap.String("action", string(env.Action)))
		return nil, nil, domain.TxStatusFailed, domain.ErrValidation(fmt.Sprintf("unknown callback action %q", env.Action))
	}
}

// enqueueAMLAnalysis hands a just-completed wallet operation to the AML
// dispatch queue. A replayed (idempotent) op was already analyzed the
// first time it ran, so it is skipped here.
func (e *Engine) enqueueAMLAnalysis(session *domain.GameSession, partnerID uuid.UUID, res *domain.WalletOpResult, txType domain.TransactionType) {
	if e.amlQueue == nil || res.Replayed {
		return
	}
	gameID := session.GameID
	e.amlQueue.Enqueue(aml.Input{
		Transaction: domain.Transaction{
			ID:        res.TransactionID,
			PlayerID:  session.PlayerID,
			PartnerID: partnerID,
			Type:      txType,
			Amount:    res.Amount,
			Currency:  res.Currency,
			GameID:    &gameID,
			CreatedAt: time.Now(),
		},
	})
}

func callbackResultFromOp(res *domain.WalletOpResult) *domain.CallbackResult {
	return &domain.CallbackResult{
		Status: "success", Balance: res.Balance, Currency: res.Currency, TransactionID: res.TransactionID,
	}
}

// replayCallbackResult returns the cached-success response for an
// idempotent replay, derived from the wallet's current balance rather
// than the (potentially stale) balance recorded at the original callback.
func (e *Engine) replayCallbackResult(ctx context.Context, session *domain.GameSession, existing *domain.GameTransaction) (*domain.CallbackResult, error) {
	w, err := e.wallets.FindByTriple(ctx, e.pool, session.PlayerID, session.PartnerID, existing.Currency)
	if err != nil {
		return nil, fmt.Errorf("load wallet for replay: %w", err)
	}
	if w == nil {
		return nil, domain.ErrNotFound("wallet", session.PlayerID.String())
	}
	var txnID uuid.UUID
	if existing.TransactionID != nil {
		txnID = *existing.TransactionID
	}
	return &domain.CallbackResult{Status: "success", Balance: w.Balance, Currency: existing.Currency, TransactionID: txnID}, nil
}

// verifyCallbackSignature checks the partner's shared-secret HMAC over the
// raw request body. Distinct from signLaunchToken: the callback secret is
// scoped to the partner, never the provider.
func verifyCallbackSignature(secret string, rawBody []byte, providedSignature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(providedSignature))
}

func generateHexToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
