package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xpboard/internal/chain"
	"github.com/xpboard/internal/credential"
	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/leaderboard"
	"github.com/xpboard/internal/level"
	"github.com/xpboard/internal/websocket"
)

// Handler provides the HTTP API over the lookup services. Lookup failures
// and an unconfigured indexing service both render as empty results with a
// log entry, the contract existing frontends rely on;
// the one exception is credential verification, which reports its reason.
type Handler struct {
	board       leaderboard.Provider
	credentials *credential.Service
	chain       *chain.Client
	hub         *websocket.Hub
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	board leaderboard.Provider,
	credentials *credential.Service,
	chainClient *chain.Client,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		board:       board,
		credentials: credentials,
		chain:       chainClient,
		hub:         hub,
		logger:      logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.GetLeaderboard)
			r.Get("/rank/{wallet}", h.GetRank)
		})

		r.Route("/wallets/{wallet}", func(r chi.Router) {
			r.Get("/credentials", h.GetCredentials)
			r.Get("/xp", h.GetXP)
		})

		r.Get("/credentials/{mint}/verify", h.VerifyCredential)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetLeaderboard returns the ranking for a timeframe. Unconfigured or
// failed lookups degrade to an empty list.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	tf := domain.Timeframe(r.URL.Query().Get("timeframe"))
	if tf == "" {
		tf = domain.TimeframeAll
	}
	if !tf.Valid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.board.Top(r.Context(), tf)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			h.logger.Error("failed to get leaderboard", "timeframe", tf, "error", err)
		}
		entries = []domain.Entry{}
	}
	if entries == nil {
		entries = []domain.Entry{}
	}

	h.writeSuccess(w, entries)
}

// GetRank returns a wallet's leaderboard position; 0 means unranked.
func (h *Handler) GetRank(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	rank, err := h.board.Rank(r.Context(), wallet)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			h.logger.Error("failed to get rank", "wallet", wallet, "error", err)
		}
		rank = 0
	}

	h.writeSuccess(w, map[string]interface{}{
		"wallet": wallet,
		"rank":   rank,
	})
}

// GetCredentials returns the credentials owned by a wallet. Unconfigured
// or failed lookups degrade to an empty list.
func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	creds, err := h.credentials.ByWallet(r.Context(), wallet)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			h.logger.Error("failed to get credentials", "wallet", wallet, "error", err)
		}
		creds = []domain.Credential{}
	}
	if creds == nil {
		creds = []domain.Credential{}
	}

	h.writeSuccess(w, creds)
}

// GetXP returns the live XP balance plus derived level progress for a
// wallet. Errors degrade to zero with Configured reporting whether the
// mint was set at all.
func (h *Handler) GetXP(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if wallet == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	balance, err := h.chain.XPBalance(r.Context(), wallet)
	if err != nil {
		h.logger.Error("failed to get xp balance", "wallet", wallet, "error", err)
		// balance already carries Configured and zero XP
	}

	h.writeSuccess(w, map[string]interface{}{
		"wallet":     balance.Wallet,
		"configured": balance.Configured,
		"xp":         balance.XP,
		"progress":   level.ProgressForXP(balance.XP),
	})
}

// VerifyCredential checks a single credential mint. The response is 200
// either way; Valid=false carries the reason.
func (h *Handler) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")
	if mint == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result := h.credentials.Verify(r.Context(), mint)
	h.writeSuccess(w, result)
}
