// Package server exposes the service over HTTP and WebSocket: search,
// chat, AI suggestions and the per-city insight reports.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zen-systems/foodgate/pkg/chat"
	"github.com/zen-systems/foodgate/pkg/gen"
	"github.com/zen-systems/foodgate/pkg/search"
	"github.com/zen-systems/foodgate/pkg/storage"
)

// Server holds the transport-facing state. The orchestrator answers chat,
// the search service answers everything data-backed, and the bridge is
// called directly by the suggest and nearby endpoints.
type Server struct {
	search   *search.Service
	orch     *chat.Orchestrator
	bridge   *gen.Service
	light    gen.Target
	logger   *zap.Logger
	metrics  *metrics
	upgrader websocket.Upgrader

	// Now is the clock for meal-time endpoints; tests override it.
	Now func() time.Time
}

// New wires the server. light is the target the suggest and nearby
// endpoints generate with.
func New(searchSvc *search.Service, orch *chat.Orchestrator, bridge *gen.Service, light gen.Target, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:  searchSvc,
		orch:    orch,
		bridge:  bridge,
		light:   light,
		logger:  logger,
		metrics: newMetrics(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		Now: time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.metrics.instrument(name, h))
	}

	route("GET /health", "health", s.handleHealth)
	route("GET /cities", "cities", s.handleCities)
	route("GET /search", "search", s.handleSearch)
	route("POST /food/click", "click", s.handleClick)
	route("POST /chat", "chat", s.handleChat)
	route("GET /suggest", "suggest", s.handleSuggest)
	route("POST /nearby", "nearby", s.handleNearby)

	route("GET /city/{city}/top-clicks", "top_clicks", s.handleTopClicks)
	route("GET /city/{city}/districts", "districts", s.handleDistricts)
	route("GET /city/{city}/price-range", "price_range", s.handlePriceRange)
	route("GET /city/{city}/categories", "categories", s.handleCategories)
	route("GET /city/{city}/trending", "trending", s.handleTrending)
	route("GET /city/{city}/random", "random", s.handleRandom)

	mux.HandleFunc("GET /ws/chat", s.handleWS)
	mux.Handle("GET /metrics", s.metrics.handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes: bad input 400, missing
// records 404, collaborator failures 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrUnknownCity):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
