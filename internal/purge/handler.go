package purge

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-admin/internal/audit"
	"github.com/odyssey-erp/odyssey-admin/internal/identity"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
)

// Handler serves the purge endpoint.
type Handler struct {
	logger    *slog.Logger
	engine    *Engine
	identity  identity.Middleware
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a purge handler allowing perMinute calls per actor.
func NewHandler(logger *slog.Logger, engine *Engine, ident identity.Middleware, perMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if perMinute <= 0 {
		perMinute = 6
	}
	limiter := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if actor := identity.ActorFromContext(r.Context()); actor.Authenticated() {
				return "actor:" + strings.ToLower(actor.Email) + "|" + actor.UID, nil
			}
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				return "ip:" + r.RemoteAddr, nil
			}
			return "ip:" + host, nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusTooManyRequests, httpx.Envelope{Error: &httpx.ErrorBody{
				Code:    "rate-limited",
				Message: "too many purge requests",
			}})
		}),
	)
	return &Handler{logger: logger, engine: engine, identity: ident, rateLimit: limiter}
}

// MountRoutes registers the purge route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(audit.ScopeMiddleware)
		r.Use(h.identity.RequireIdentity)
		r.Use(h.rateLimit)
		r.Post("/purge", h.purge)
	})
}

type purgeResponse struct {
	OK bool `json:"ok"`
	Result
}

func (h *Handler) purge(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mode, err := ParseMode(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := identity.ActorFromContext(r.Context())
	result, err := h.engine.Purge(r.Context(), actor, mode)
	if err != nil {
		if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error("purge request failed", slog.String("mode", mode.Name()), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, purgeResponse{OK: true, Result: result})
}
