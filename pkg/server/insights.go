package server

import (
	"net/http"

	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/storage"
)

func (s *Server) handleTopClicks(w http.ResponseWriter, r *http.Request) {
	store, err := s.search.Store(r.PathValue("city"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	items, err := store.TopClicks(r.Context(), queryInt(r, "limit", 10, 1, 50))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRanked(items))
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	store, err := s.search.Store(r.PathValue("city"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	items, err := store.Trending(r.Context(), queryInt(r, "limit", 10, 1, 50))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilRanked(items))
}

type districtStatsResponse struct {
	City        string                 `json:"city"`
	Districts   []storage.DistrictStat `json:"districts"`
	TotalPlaces int                    `json:"total_places"`
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	store, err := s.search.Store(city)
	if err != nil {
		s.writeError(w, err)
		return
	}
	districts, err := store.DistrictStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	total := 0
	for _, d := range districts {
		total += d.Total
	}
	if districts == nil {
		districts = []storage.DistrictStat{}
	}
	writeJSON(w, http.StatusOK, districtStatsResponse{City: city, Districts: districts, TotalPlaces: total})
}

type priceDistResponse struct {
	City string `json:"city"`
	storage.PriceDistribution
}

func (s *Server) handlePriceRange(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	store, err := s.search.Store(city)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dist, err := store.PriceBands(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priceDistResponse{City: city, PriceDistribution: dist})
}

type categoryStatsResponse struct {
	City       string                 `json:"city"`
	Categories []storage.CategoryStat `json:"categories"`
	Total      int                    `json:"total"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	store, err := s.search.Store(city)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cats, err := store.CategoryStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	total := 0
	for _, c := range cats {
		total += c.Total
	}
	writeJSON(w, http.StatusOK, categoryStatsResponse{City: city, Categories: cats, Total: total})
}

type randomDiscoveryResponse struct {
	City           string         `json:"city"`
	Items          []food.Place   `json:"items"`
	FiltersApplied map[string]any `json:"filters_applied"`
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	store, err := s.search.Store(city)
	if err != nil {
		s.writeError(w, err)
		return
	}
	district := r.URL.Query().Get("district")
	maxPrice := queryInt(r, "max_price", 0, 0, 100000000)
	limit := queryInt(r, "limit", 5, 1, 20)

	items, err := store.RandomDiscovery(r.Context(), district, maxPrice, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	filters := map[string]any{}
	if district != "" {
		filters["district"] = district
	}
	if maxPrice > 0 {
		filters["max_price"] = maxPrice
	}
	writeJSON(w, http.StatusOK, randomDiscoveryResponse{City: city, Items: nonNil(items), FiltersApplied: filters})
}

func nonNilRanked(items []food.RankedPlace) []food.RankedPlace {
	if items == nil {
		return []food.RankedPlace{}
	}
	return items
}
