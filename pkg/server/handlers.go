package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zen-systems/foodgate/pkg/chat"
	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/gen"
	"github.com/zen-systems/foodgate/pkg/router"
)

// suggestFallback is shown when the meal keyword search finds nothing.
const suggestFallback = "Bạn có thể thử các món phổ biến trong vùng."

// mealKeywords maps the current meal label to the search terms the suggest
// endpoint retrieves candidates with.
var mealKeywords = map[string]string{
	"Bữa sáng": "bún phở bánh mì xôi",
	"Bữa trưa": "cơm bún mì",
	"Xế chiều": "ăn vặt chè bánh",
	"Bữa tối":  "lẩu nướng cơm",
	"Ăn đêm":   "cháo mì bún",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.Now().Format(time.RFC3339),
		"cities": s.search.AvailableCities(),
	})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cities": s.search.AvailableCities()})
}

type searchResponse struct {
	Items []food.Place `json:"items"`
	Total int          `json:"total"`
	City  string       `json:"city"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "q is required"})
		return
	}
	city := queryDefault(r, "city", "ha_noi")
	limit := queryInt(r, "limit", 10, 1, 50)

	var (
		items []food.Place
		err   error
	)
	switch r.URL.Query().Get("mode") {
	case "text":
		items, err = s.search.TextSearch(r.Context(), city, q, limit)
	case "semantic":
		items, err = s.search.SemanticSearch(r.Context(), city, q, limit)
	default:
		items, err = s.search.HybridSearch(r.Context(), city, q, limit)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: nonNil(items), Total: len(items), City: city})
}

type clickRequest struct {
	ID   int64  `json:"id"`
	City string `json:"city"`
}

type clickResponse struct {
	ID     int64  `json:"id"`
	City   string `json:"city"`
	Clicks int    `json:"so_lan_click"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if !decodeBody(w, r, &req) {
		return
	}
	clicks, err := s.search.IncrementClick(r.Context(), req.City, req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clickResponse{ID: req.ID, City: req.City, Clicks: clicks})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "message is required"})
		return
	}
	resp, err := s.orch.Ask(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.tiers.WithLabelValues(resp.ModelUsed).Inc()
	resp.Results = nonNil(resp.Results)
	writeJSON(w, http.StatusOK, resp)
}

type suggestResponse struct {
	MealTime    string       `json:"meal_time"`
	Suggestions []food.Place `json:"suggestions"`
	Reply       string       `json:"reply"`
	ModelUsed   string       `json:"model_used"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	city := queryDefault(r, "city", "ha_noi")
	hour := queryInt(r, "hour", s.Now().Hour(), 0, 23)
	meal := food.MealLabel(hour)

	items, err := s.search.HybridSearch(r.Context(), city, mealKeywords[meal], 8)
	if err != nil {
		s.writeError(w, err)
		return
	}
	reply := s.suggestReply(r.Context(), city, hour, meal, items)
	writeJSON(w, http.StatusOK, suggestResponse{
		MealTime:    meal,
		Suggestions: nonNil(items),
		Reply:       reply,
		ModelUsed:   string(router.TierLight),
	})
}

// suggestReply asks the light model to pick from the retrieved dishes, or
// falls back to a fixed phrase when search came back empty.
func (s *Server) suggestReply(ctx context.Context, city string, hour int, meal string, items []food.Place) string {
	if len(items) == 0 {
		return fmt.Sprintf("Hiện tại %s, %s", meal, suggestFallback)
	}
	names := dishNames(items, 5)
	prompt := fmt.Sprintf("Bây giờ %dh (%s). Danh sách: %s. Gợi ý 2-3 món phù hợp nhất, kèm lý do ngắn.",
		hour, meal, strings.Join(names, ", "))
	return s.bridge.Reply(ctx, s.light, gen.PromptContext{
		Tier:        router.TierLight,
		City:        city,
		Hour:        hour,
		Places:      items,
		Message:     prompt,
		TokenBudget: 400,
	})
}

// dishNames collects up to max distinct dish names, preserving order.
func dishNames(items []food.Place, max int) []string {
	seen := make(map[string]bool, max)
	var names []string
	for _, p := range items {
		if len(names) == max {
			break
		}
		if seen[p.Dish] {
			continue
		}
		seen[p.Dish] = true
		names = append(names, p.Dish)
	}
	return names
}

type nearbyRequest struct {
	Query       string `json:"query"`
	City        string `json:"city"`
	UserAddress string `json:"user_address"`
}

type nearbyResponse struct {
	Reply     string       `json:"reply"`
	Results   []food.Place `json:"results"`
	ModelUsed string       `json:"model_used"`
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	var req nearbyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	candidates, err := s.search.HybridSearch(r.Context(), req.City, req.Query, 15)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var reply string
	if len(candidates) == 0 {
		reply = fmt.Sprintf("Không tìm thấy quán **%s** nào trong dữ liệu.", req.Query)
	} else {
		reply = s.bridge.Reply(r.Context(), s.light, gen.PromptContext{
			Tier:        router.TierLight,
			City:        req.City,
			Hour:        s.Now().Hour(),
			UserAddress: req.UserAddress,
			Message:     gen.NearbyPrompt(candidates, req.UserAddress, req.City, req.Query),
			TokenBudget: 800,
		})
	}
	if len(candidates) > 10 {
		candidates = candidates[:10]
	}
	writeJSON(w, http.StatusOK, nearbyResponse{
		Reply:     reply,
		Results:   nonNil(candidates),
		ModelUsed: string(router.TierLight),
	})
}

// decodeBody parses a JSON request body, answering 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return false
	}
	return true
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func queryInt(r *http.Request, key string, fallback, min, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return fallback
	}
	return n
}

func nonNil(items []food.Place) []food.Place {
	if items == nil {
		return []food.Place{}
	}
	return items
}
