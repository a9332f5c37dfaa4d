package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/zen-systems/foodgate/pkg/food"
)

// DistrictStat counts places per district.
type DistrictStat struct {
	District string `json:"quan"`
	Total    int    `json:"total"`
}

// PriceDistribution splits a city's places into three price bands.
type PriceDistribution struct {
	Under50k int     `json:"under_50k"`
	MidRange int     `json:"mid_range"`
	Premium  int     `json:"premium"`
	AvgPrice float64 `json:"avg_price"`
	Total    int     `json:"total"`
}

// CategoryStat is one price-band bucket with its share of the city. The
// packs carry no category column, so the buckets are derived from price
// bands.
type CategoryStat struct {
	Category   string  `json:"loai_hinh"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// TopClicks returns the most-clicked places with 1-based ranks.
func (s *Store) TopClicks(ctx context.Context, limit int) ([]food.RankedPlace, error) {
	return s.rankedQuery(ctx, fmt.Sprintf(`SELECT %s, COALESCE(so_lan_click, 0) FROM food
		ORDER BY COALESCE(so_lan_click, 0) DESC
		LIMIT ?`, placeColumns), limit)
}

// Trending is TopClicks restricted to places that were clicked at least
// once.
func (s *Store) Trending(ctx context.Context, limit int) ([]food.RankedPlace, error) {
	return s.rankedQuery(ctx, fmt.Sprintf(`SELECT %s, COALESCE(so_lan_click, 0) FROM food
		WHERE COALESCE(so_lan_click, 0) > 0
		ORDER BY so_lan_click DESC
		LIMIT ?`, placeColumns), limit)
}

func (s *Store) rankedQuery(ctx context.Context, query string, limit int) ([]food.RankedPlace, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ranked query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ranked []food.RankedPlace
	for rows.Next() {
		var r food.RankedPlace
		err := rows.Scan(&r.ID, &r.Shop, &r.Dish, &r.Address, &r.District, &r.City,
			&r.PriceMin, &r.PriceMax, &r.Note, &r.Clicks)
		if err != nil {
			return nil, fmt.Errorf("scan ranked place: %w", err)
		}
		r.Rank = len(ranked) + 1
		ranked = append(ranked, r)
	}
	return ranked, rows.Err()
}

// RandomDiscovery returns random places, optionally filtered by district
// substring and maximum price. Each call shuffles anew.
func (s *Store) RandomDiscovery(ctx context.Context, district string, maxPrice, limit int) ([]food.Place, error) {
	query := fmt.Sprintf("SELECT %s FROM food", placeColumns)
	var args []any
	var where []string
	if district != "" {
		where = append(where, "(quan LIKE ? OR dia_chi LIKE ?)")
		like := "%" + district + "%"
		args = append(args, like, like)
	}
	if maxPrice > 0 {
		where = append(where, "(gia_min <= ? OR (COALESCE(gia_min, 0) = 0 AND gia_max <= ?))")
		args = append(args, maxPrice, maxPrice)
	}
	if len(where) > 0 {
		query += " WHERE " + joinAnd(where)
	}
	query += " ORDER BY RANDOM() LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("random discovery: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var places []food.Place
	for rows.Next() {
		p, err := scanPlace(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

func joinAnd(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

// DistrictStats groups places by district, busiest district first. Blank
// districts are reported under "Chưa phân loại".
func (s *Store) DistrictStats(ctx context.Context) ([]DistrictStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(TRIM(quan), ''), 'Chưa phân loại') AS quan, COUNT(*) AS total
		FROM food
		GROUP BY quan
		ORDER BY total DESC`)
	if err != nil {
		return nil, fmt.Errorf("district stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []DistrictStat
	for rows.Next() {
		var st DistrictStat
		if err := rows.Scan(&st.District, &st.Total); err != nil {
			return nil, fmt.Errorf("scan district stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// PriceBands computes the three-band price distribution and the city-wide
// average price.
func (s *Store) PriceBands(ctx context.Context) (PriceDistribution, error) {
	var d PriceDistribution
	var avg *float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN gia_min < 50000 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN gia_min >= 50000 AND gia_min <= 150000 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN gia_min > 150000 THEN 1 ELSE 0 END), 0),
			AVG(CASE WHEN gia_min > 0 THEN gia_min ELSE gia_max END),
			COUNT(*)
		FROM food`).Scan(&d.Under50k, &d.MidRange, &d.Premium, &avg, &d.Total)
	if err != nil {
		return PriceDistribution{}, fmt.Errorf("price bands: %w", err)
	}
	if avg != nil {
		d.AvgPrice = math.Round(*avg)
	}
	return d, nil
}

// CategoryStats buckets the city by price band, with each bucket's share
// as a percentage of all places.
func (s *Store) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM food").Scan(&total); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	denom := total
	if denom == 0 {
		denom = 1
	}

	buckets := []struct {
		label string
		where string
	}{
		{"Bình dân (< 50k)", "gia_min > 0 AND gia_min < 50000"},
		{"Tầm trung (50k–150k)", "gia_min >= 50000 AND gia_min <= 150000"},
		{"Cao cấp (> 150k)", "gia_min > 150000"},
		{"Chưa có giá", "COALESCE(gia_min, 0) = 0"},
	}

	stats := make([]CategoryStat, 0, len(buckets))
	for _, b := range buckets {
		var count int
		query := "SELECT COUNT(*) FROM food WHERE " + b.where
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("category bucket %q: %w", b.label, err)
		}
		stats = append(stats, CategoryStat{
			Category:   b.label,
			Total:      count,
			Percentage: math.Round(float64(count)/float64(denom)*1000) / 10,
		})
	}
	return stats, nil
}
