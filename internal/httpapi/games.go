package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/casinobroker/platform/internal/domain"
	"github.com/casinobroker/platform/internal/repository"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	var filters []repository.Filter
	if code := r.URL.Query().Get("provider_id"); code != "" {
		providerID, err := uuid.Parse(code)
		if err != nil {
			RespondError(w, domain.ErrValidation("invalid provider_id"))
			return
		}
		filters = append(filters, repository.Eq("provider_id", providerID))
	}
	if cat := r.URL.Query().Get("category"); cat != "" {
		filters = append(filters, repository.Eq("category", cat))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filters = append(filters, repository.Eq("status", status))
	} else {
		filters = append(filters, repository.Eq("status", domain.GameActive))
	}

	games, err := s.games.List(r.Context(), s.db, filters, paginationFromQuery(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, games)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid game id"))
		return
	}
	game, err := s.games.FindByID(r.Context(), s.db, id)
	if err != nil {
		RespondError(w, err)
		return
	}
	if game == nil {
		RespondError(w, domain.ErrNotFound("game", id.String()))
		return
	}
	RespondJSON(w, http.StatusOK, game)
}

type launchSessionBody struct {
	PlayerExternalRef string `json:"player_external_ref"`
	GameID            uuid.UUID `json:"game_id"`
	Currency          string `json:"currency"`
	Language          string `json:"language"`
	ReturnURL         string `json:"return_url,omitempty"`
}

func (s *Server) handleLaunchSession(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	var body launchSessionBody
	if err := DecodeJSON(r, s.cfg.MaxRequestBodyBytes, &body); err != nil {
		RespondError(w, err)
		return
	}
	if body.PlayerExternalRef == "" {
		RespondError(w, domain.ErrValidation("player_external_ref is required"))
		return
	}
	if err := domain.ValidateCurrency(body.Currency); err != nil {
		RespondError(w, err)
		return
	}

	player, err := s.players.FindOrCreate(r.Context(), s.db, scope.PartnerID, body.PlayerExternalRef)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := s.gameEngine.LaunchGame(r.Context(), domain.LaunchRequest{
		PlayerID: player.ID, GameID: body.GameID, Currency: body.Currency,
		Language: body.Language, ReturnURL: body.ReturnURL,
	}, scope.PartnerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGameCallback(w http.ResponseWriter, r *http.Request) {
	scope := ScopeFromContext(r.Context())

	body, err := readAllLimited(r, s.cfg.MaxRequestBodyBytes)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := s.gameEngine.ProcessCallback(r.Context(), body, r.Header.Get("X-Signature"), scope.PartnerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
