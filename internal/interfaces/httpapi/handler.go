package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/best-odds/internal/domain/league"
	"github.com/riskibarqy/best-odds/internal/domain/odds"
	"github.com/riskibarqy/best-odds/internal/platform/logging"
	"github.com/riskibarqy/best-odds/internal/usecase"
	"go.opentelemetry.io/otel/attribute"
)

const bypassQueryParam = "nocache"

type Handler struct {
	matchdayService *usecase.MatchdayService
	leagueService   *usecase.LeagueService
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	matchdayService *usecase.MatchdayService,
	leagueService *usecase.LeagueService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchdayService: matchdayService,
		leagueService:   leagueService,
		logger:          logger,
		validator:       validator.New(),
	}
}

type matchdayRequest struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type leagueDTO struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type leaguesResponse struct {
	Leagues []leagueDTO `json:"leagues"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagues")
	defer span.End()

	leagues, err := h.leagueService.ListLeagues(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list leagues failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaguesResponse{Leagues: toLeagueDTOs(leagues)})
}

// GetMatchday serves the best 1X2 board for /matches/{date}. A total
// upstream failure is still a full payload, sent with 503 and no-store.
func (h *Handler) GetMatchday(w http.ResponseWriter, r *http.Request) {
	req := matchdayRequest{Date: strings.TrimSpace(r.PathValue("date"))}
	bypass := r.URL.Query().Has(bypassQueryParam)

	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchday",
		attribute.String("matchday.date", req.Date),
		attribute.Bool("matchday.bypass", bypass),
	)
	defer span.End()

	if err := h.validator.Struct(req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	resp, err := h.matchdayService.GetMatchday(ctx, req.Date, bypass)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.ErrorContext(ctx, "get matchday failed", "date", req.Date, "error", err)
		}
		writeError(ctx, w, err)
		return
	}

	cacheResult := cacheHeaderValue(resp.FromCache, bypass)
	w.Header().Set("X-Cache", cacheResult)

	status := http.StatusOK
	if resp.Classification == odds.ClassificationTotalFailure {
		status = http.StatusServiceUnavailable
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", sharedCacheControl(resp.TTL))
	}
	annotateMatchdaySpan(ctx, cacheResult, string(resp.Classification), status)
	writeRaw(w, status, resp.Body)
}

func cacheHeaderValue(fromCache, bypass bool) string {
	switch {
	case fromCache:
		return "HIT"
	case bypass:
		return "BYPASS"
	default:
		return "MISS"
	}
}

func toLeagueDTOs(items []league.League) []leagueDTO {
	out := make([]leagueDTO, 0, len(items))
	for _, item := range items {
		out = append(out, leagueDTO{Key: item.Key, Name: item.Name})
	}
	return out
}
