// Package gameengine implements game launch and provider callback
// processing: session lifecycle, HMAC+nonce+timestamp-verified callbacks,
// and dispatch into the wallet engine.
package gameengine

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/cache"
	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
	"github.com/casinobroker/platform/internal/wallet"
)

const (
	nonceTTL          = 600 * time.Second
	callbackSkew      = 300 * time.Second
	sessionTTL        = 24 * time.Hour
	providerTimeout   = 10 * time.Second
	uniqueViolation   = "23505"
	iframeHostDefault = "https://play.casinobroker.example"
)

// Engine launches game sessions and processes provider callbacks.
type Engine struct {
	pool         *pgxpool.Pool
	partners     repository.PartnerRepository
	games        repository.GameRepository
	providers    repository.GameProviderRepository
	sessions     repository.GameSessionRepository
	gameTxns     repository.GameTransactionRepository
	wallets      repository.WalletRepository
	walletEngine *wallet.Engine
	cache        *cache.Cache
	httpClient   *http.Client
	iframeHost   string
	outbox       repository.OutboxRepository
	amlQueue     *aml.Dispatcher
	logger       *zap.Logger
}

// NewEngine builds a game session & callback Engine. amlQueue may be nil in
// tests that don't exercise the post-commit AML hook.
func NewEngine(
	pool *pgxpool.Pool,
	partners repository.PartnerRepository,
	games repository.GameRepository,
	providers repository.GameProviderRepository,
	sessions repository.GameSessionRepository,
	gameTxns repository.GameTransactionRepository,
	wallets repository.WalletRepository,
	walletEngine *wallet.Engine,
	outbox repository.OutboxRepository,
	amlQueue *aml.Dispatcher,
	c *cache.Cache,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		pool: pool, partners: partners, games: games, providers: providers, sessions: sessions,
		gameTxns: gameTxns, wallets: wallets, walletEngine: walletEngine,
		outbox: outbox, amlQueue: amlQueue, cache: c, logger: logger,
		httpClient: &http.Client{Timeout: providerTimeout},
		iframeHost: iframeHostDefault,
	}
}

// LaunchGame loads the game and provider, ensures a wallet exists, creates
// (or reuses) an active session, and builds the provider launch URL.
func (e *Engine) LaunchGame(ctx context.Context, req domain.LaunchRequest, partnerID uuid.UUID) (*domain.LaunchResult, error) {
	if err := domain.ValidateCurrency(req.Currency); err != nil {
		return nil, err
	}

	game, err := e.games.FindByID(ctx, e.pool, req.GameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	if game == nil || game.Status != domain.GameActive {
		return nil, domain.ErrNotFound("game", req.GameID.String())
	}

	provider, err := e.providers.FindByID(ctx, e.pool, game.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if provider == nil || provider.Status != domain.ProviderActive {
		return nil, domain.ErrNotFound("game_provider", game.ProviderID.String())
	}

	if err := e.ensureWalletExists(ctx, req.PlayerID, partnerID, req.Currency); err != nil {
		return nil, err
	}

	session, err := e.createOrReuseSession(ctx, req, partnerID, game.ID)
	if err != nil {
		return nil, err
	}

	w, err := e.wallets.FindByTriple(ctx, e.pool, req.PlayerID, partnerID, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("load wallet for launch: %w", err)
	}
	if w == nil {
		return nil, domain.ErrNotFound("wallet", req.PlayerID.String())
	}

	launchURL, err := e.buildLaunchURL(ctx, provider, game, session, w, req)
	if err != nil {
		return nil, err
	}

	return &domain.LaunchResult{
		LaunchURL: launchURL,
		Token:     session.Token,
		ExpiresAt: session.StartedAt.Add(sessionTTL),
	}, nil
}

// ensureWalletExists creates the (player, partner, currency) wallet with a
// zero balance if it does not already exist.
func (e *Engine) ensureWalletExists(ctx context.Context, playerID, partnerID uuid.UUID, currency string) error {
	existing, err := e.wallets.FindByTriple(ctx, e.pool, playerID, partnerID, currency)
	if err != nil {
		return fmt.Errorf("find wallet: %w", err)
	}
	if existing != nil {
		return nil
	}
	w := &domain.Wallet{
		ID: uuid.New(), PlayerID: playerID, PartnerID: partnerID,
		Currency: currency, Balance: domain.ZeroMoney(), Active: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := e.wallets.Create(ctx, e.pool, w); err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

// createOrReuseSession creates a new active session inside a transaction,
// or returns the already-active one if a concurrent launch beat this one
// to the partial unique index.
func (e *Engine) createOrReuseSession(ctx context.Context, req domain.LaunchRequest, partnerID, gameID uuid.UUID) (*domain.GameSession, error) {
	var session *domain.GameSession
	err := pgx.BeginTxFunc(ctx, e.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		existing, err := e.sessions.GetActiveForPlayerGame(ctx, tx, req.PlayerID, gameID)
		if err != nil {
			return fmt.Errorf("lookup active session: %w", err)
		}
		if existing != nil {
			session = existing
			return nil
		}

		token, err := newSessionToken()
		if err != nil {
			return fmt.Errorf("generate session token: %w", err)
		}
		s := &domain.GameSession{
			ID: uuid.New(), Token: token, PlayerID: req.PlayerID, PartnerID: partnerID,
			GameID: gameID, Status: domain.SessionActive,
			SessionData: domain.SessionData{Currency: req.Currency, Language: req.Language, ReturnURL: req.ReturnURL},
			StartedAt: time.Now(),
		}
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin session savepoint: %w", err)
		}
		if err := e.sessions.Create(ctx, sp, s); err != nil {
			_ = sp.Rollback(ctx)
			if isUniqueViolation(err) {
				reread, rerr := e.sessions.GetActiveForPlayerGame(ctx, tx, req.PlayerID, gameID)
				if rerr != nil {
					return fmt.Errorf("reread active session after race: %w", rerr)
				}
				session = reread
				return nil
			}
			return fmt.Errorf("create session: %w", err)
		}
		if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("release session savepoint: %w", err)
		}
		if err := e.outbox.Insert(ctx, tx, domain.NewSessionLaunchedEvent(s)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrInternal("session create raced with no survivor", nil)
	}
	return session, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// buildLaunchURL dispatches on the provider's integration type.
func (e *Engine) buildLaunchURL(ctx context.Context, provider *domain.GameProvider, game *domain.Game, session *domain.GameSession, w *domain.Wallet, req domain.LaunchRequest) (string, error) {
	switch provider.IntegrationType {
	case domain.IntegrationDirect:
		return e.directLaunchURL(provider, game, session, w, req), nil
	case domain.IntegrationAggregator:
		return e.aggregatorLaunchURL(ctx, provider, game, session, w, req)
	case domain.IntegrationIframe:
		return e.iframeLaunchURL(game, session, req), nil
	default:
		return "", domain.ErrValidation("unsupported integration type: " + string(provider.IntegrationType))
	}
}

func (e *Engine) directLaunchURL(provider *domain.GameProvider, game *domain.Game, session *domain.GameSession, w *domain.Wallet, req domain.LaunchRequest) string {
	signature := signLaunchToken(provider.APISecret, session.Token, game.GameCode, req.Currency, req.PlayerID.String())

	q := url.Values{}
	q.Set("token", session.Token)
	q.Set("gameCode", game.GameCode)
	q.Set("currency", req.Currency)
	q.Set("language", req.Language)
	q.Set("playerId", req.PlayerID.String())
	q.Set("balance", w.Balance.String())
	q.Set("returnUrl", req.ReturnURL)
	q.Set("platform", "web")
	q.Set("signature", signature)

	return provider.APIEndpoint + "?" + q.Encode()
}

type aggregatorLaunchResponse struct {
	Success bool   `json:"success"`
	GameURL string `json:"game_url"`
	Error   string `json:"error,omitempty"`
}

func (e *Engine) aggregatorLaunchURL(ctx context.Context, provider *domain.GameProvider, game *domain.Game, session *domain.GameSession, w *domain.Wallet, req domain.LaunchRequest) (string, error) {
	timestamp := time.Now().Unix()
	signature := signLaunchToken(provider.APISecret, session.Token, game.GameCode, req.Currency, req.PlayerID.String())

	payload := map[string]any{
		"token":     session.Token,
		"gameCode":  game.GameCode,
		"currency":  req.Currency,
		"language":  req.Language,
		"playerId":  req.PlayerID.String(),
		"balance":   w.Balance.String(),
		"returnUrl": req.ReturnURL,
		"platform":  "web",
		"timestamp": timestamp,
		"signature": signature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", domain.ErrInternal("marshal launch payload", err)
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", domain.ErrProviderIntegration("build launch request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", provider.APIKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.ErrProviderIntegration("launch request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.ErrProviderIntegration(fmt.Sprintf("launch request returned status %d", resp.StatusCode), nil)
	}

	var out aggregatorLaunchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.ErrProviderIntegration("decode launch response", err)
	}
	if !out.Success || out.GameURL == "" {
		return "", domain.ErrProviderIntegration(out.Error, nil)
	}
	return out.GameURL, nil
}

func (e *Engine) iframeLaunchURL(game *domain.Game, session *domain.GameSession, req domain.LaunchRequest) string {
	q := url.Values{}
	q.Set("token", session.Token)
	q.Set("gameCode", game.GameCode)
	q.Set("currency", req.Currency)
	q.Set("language", req.Language)
	q.Set("returnUrl", req.ReturnURL)

	return e.iframeHost + "/play?" + q.Encode()
}

// signLaunchToken computes the direct/aggregator launch signature. Distinct
// from verifyCallbackSignature: the launch secret is the provider's own
// api_secret, never the partner's callback shared secret.
func signLaunchToken(secret, token, gameCode, currency, playerID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token + "|" + gameCode + "|" + currency + "|" + playerID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newSessionToken() (string, error) {
	return generateHexToken(32)
}
