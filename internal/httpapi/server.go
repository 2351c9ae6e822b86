// Package httpapi is a thin HTTP surface: routing chrome like OpenAPI
// docs and a generic CORS policy is out of scope, but something has to
// sit in front of the admission pipeline and invoke it before handing
// off to the core components, so this package does the minimum necessary
// wiring — a chi router, JSON request/response coding, and the
// four-stage admission guard around every non-exempt route.
//
// The dependency-assembly and handler shapes generalize from player-JWT
// routes to partner-API-key routes fronting the wallet/game/AML/reporting
// core.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casinobroker/platform/internal/admission"
	"github.com/casinobroker/platform/internal/aml"
	"github.com/casinobroker/platform/internal/config"
	"github.com/casinobroker/platform/internal/gameengine"
	"github.com/casinobroker/platform/internal/httpapi/middleware"
	"github.com/casinobroker/platform/internal/reporting"
	"github.com/casinobroker/platform/internal/repository"
	"github.com/casinobroker/platform/internal/wallet"
)

// Server holds every collaborator a handler might need. Handlers are
// methods on *Server so they share these without a separate DI container.
type Server struct {
	cfg *config.Config

	pipeline *admission.Pipeline
	audit    *admission.AuditLogger

	partners  repository.PartnerRepository
	apiKeys   repository.ApiKeyRepository
	partnerIP repository.PartnerIPRepository
	players   repository.PlayerRepository
	wallets   repository.WalletRepository
	txns      repository.TransactionRepository
	games     repository.GameRepository
	providers repository.GameProviderRepository
	sessions  repository.GameSessionRepository
	alerts    repository.AMLAlertRepository
	reportJobs repository.ReportJobRepository

	walletEngine  *wallet.Engine
	gameEngine    *gameengine.Engine
	amlQueue      *aml.Dispatcher
	scheduler     *reporting.Scheduler
	reportStorage reporting.Storage

	db DBHandle

	logger *zap.Logger
}

// DBHandle is the subset of *pgxpool.Pool the HTTP layer itself queries
// directly (read paths that don't need a transaction).
type DBHandle interface {
	repository.DBTX
}

// Deps bundles every dependency NewServer needs.
type Deps struct {
	Config *config.Config
	DB     DBHandle

	Pipeline *admission.Pipeline
	Audit    *admission.AuditLogger

	Partners  repository.PartnerRepository
	ApiKeys   repository.ApiKeyRepository
	PartnerIP repository.PartnerIPRepository
	Players   repository.PlayerRepository
	Wallets   repository.WalletRepository
	Txns      repository.TransactionRepository
	Games     repository.GameRepository
	Providers repository.GameProviderRepository
	Sessions  repository.GameSessionRepository
	Alerts    repository.AMLAlertRepository
	ReportJobs repository.ReportJobRepository

	WalletEngine  *wallet.Engine
	GameEngine    *gameengine.Engine
	AMLQueue      *aml.Dispatcher
	Scheduler     *reporting.Scheduler
	ReportStorage reporting.Storage

	Logger *zap.Logger
}

// NewServer builds a Server from its dependencies.
func NewServer(d Deps) *Server {
	return &Server{
		cfg: d.Config, db: d.DB, pipeline: d.Pipeline, audit: d.Audit,
		partners: d.Partners, apiKeys: d.ApiKeys, partnerIP: d.PartnerIP,
		players: d.Players, wallets: d.Wallets, txns: d.Txns, games: d.Games,
		providers: d.Providers, sessions: d.Sessions, alerts: d.Alerts,
		reportJobs: d.ReportJobs,
		walletEngine: d.WalletEngine, gameEngine: d.GameEngine,
		amlQueue: d.AMLQueue, scheduler: d.Scheduler, reportStorage: d.ReportStorage,
		logger: d.Logger,
	}
}

// NewRouter assembles the chi.Router with every partner-facing route,
// wrapped in the global middleware stack and, per-route, the admission
// guard.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.CORS(s.cfg.CORSAllowedOrigins))
	r.Use(middleware.JSONContentType)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/keys", s.Guarded("api_keys:manage", s.handleCreateAPIKey))
			r.Delete("/keys/{id}", s.Guarded("api_keys:manage", s.handleRevokeAPIKey))
			r.Post("/ip-whitelist", s.Guarded("api_keys:manage", s.handleAddIPWhitelist))
		})

		r.Route("/wallet/{player_id}", func(r chi.Router) {
			r.Get("/balance", s.Guarded("wallet:read", s.handleWalletBalance))
			r.Get("/transactions", s.Guarded("wallet.transactions:read", s.handleWalletTransactions))
			r.Post("/deposit", s.Guarded("wallet:deposit", s.handleWalletDeposit))
			r.Post("/withdraw", s.Guarded("wallet:withdraw", s.handleWalletWithdraw))
			r.Post("/bet", s.Guarded("wallet:bet", s.handleWalletBet))
			r.Post("/win", s.Guarded("wallet:win", s.handleWalletWin))
			r.Post("/cancel", s.Guarded("wallet:cancel", s.handleWalletCancel))
		})

		r.Get("/games", s.Guarded("games:*", s.handleListGames))
		r.Get("/games/{id}", s.Guarded("games:*", s.handleGetGame))
		r.Post("/games/session", s.Guarded("games.session:create", s.handleLaunchSession))
		// The provider callback authenticates its body via HMAC signature.
		// The route also runs the full admission chain, so the X-API-Key
		// must be valid and must grant games.callback:*.
		r.Post("/games/callback", s.Guarded("games.callback:*", s.handleGameCallback))

		r.Post("/reports", s.Guarded("reports:generate", s.handleScheduleReport))
		r.Get("/reports/{id}/download", s.Guarded("reports:download", s.handleDownloadReport))
		r.Post("/reports/{id}/download-link", s.Guarded("reports:download", s.handleCreateReportDownloadLink))
		// Signed download links authenticate via the JWT in the query
		// string rather than an API key, so this route bypasses Guarded
		// and only carries the global middleware stack.
		r.Get("/reports/download", s.handleDownloadReportByToken)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var ok int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&ok); err != nil {
		RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
