package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zen-systems/foodgate/pkg/food"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "food.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, places ...food.Place) []int64 {
	t.Helper()
	ids := make([]int64, len(places))
	for i, p := range places {
		id, err := s.InsertPlace(context.Background(), p)
		if err != nil {
			t.Fatalf("seed place %d: %v", i, err)
		}
		ids[i] = id
	}
	return ids
}

func TestFindByIDsPreservesInputOrder(t *testing.T) {
	s := openTestStore(t)
	ids := seed(t, s,
		food.Place{Shop: "Phở Thìn", Dish: "phở bò"},
		food.Place{Shop: "Bún Đậu", Dish: "bún đậu"},
		food.Place{Shop: "Xôi Yến", Dish: "xôi xéo"},
	)

	got, err := s.FindByIDs(context.Background(), []int64{ids[2], ids[0], 9999})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 places (missing id skipped), got %d", len(got))
	}
	if got[0].Shop != "Xôi Yến" || got[1].Shop != "Phở Thìn" {
		t.Fatalf("input order not preserved: %v, %v", got[0].Shop, got[1].Shop)
	}
}

func TestFindByTextOrdersByClicks(t *testing.T) {
	s := openTestStore(t)
	ids := seed(t, s,
		food.Place{Shop: "Phở Ít Khách", Dish: "phở gà"},
		food.Place{Shop: "Phở Đông Khách", Dish: "phở bò"},
		food.Place{Shop: "Bún Chả", Dish: "bún chả"},
	)
	for i := 0; i < 3; i++ {
		if _, err := s.IncrementClick(context.Background(), ids[1]); err != nil {
			t.Fatalf("click: %v", err)
		}
	}

	got, err := s.FindByText(context.Background(), "phở", 10)
	if err != nil {
		t.Fatalf("find by text: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 phở places, got %d", len(got))
	}
	if got[0].Shop != "Phở Đông Khách" {
		t.Fatalf("expected most clicked first, got %s", got[0].Shop)
	}
}

func TestIncrementClick(t *testing.T) {
	s := openTestStore(t)
	ids := seed(t, s, food.Place{Shop: "Phở Thìn"})

	n, err := s.IncrementClick(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 click, got %d", n)
	}
	n, err = s.IncrementClick(context.Background(), ids[0])
	if err != nil || n != 2 {
		t.Fatalf("expected 2 clicks, got %d (err=%v)", n, err)
	}
}

func TestIncrementClickMissingIDIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.IncrementClick(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentIncrementsDoNotLoseUpdates(t *testing.T) {
	s := openTestStore(t)
	ids := seed(t, s, food.Place{Shop: "Phở Thìn"})

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementClick(context.Background(), ids[0]); err != nil {
				t.Errorf("concurrent increment: %v", err)
			}
		}()
	}
	wg.Wait()

	ranked, err := s.TopClicks(context.Background(), 1)
	if err != nil {
		t.Fatalf("top clicks: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Clicks != workers {
		t.Fatalf("expected %d clicks, got %+v", workers, ranked)
	}
}

func TestTopClicksAndTrending(t *testing.T) {
	s := openTestStore(t)
	ids := seed(t, s,
		food.Place{Shop: "A"},
		food.Place{Shop: "B"},
		food.Place{Shop: "C"},
	)
	for i := 0; i < 2; i++ {
		if _, err := s.IncrementClick(context.Background(), ids[1]); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.IncrementClick(context.Background(), ids[2]); err != nil {
		t.Fatal(err)
	}

	top, err := s.TopClicks(context.Background(), 10)
	if err != nil {
		t.Fatalf("top clicks: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("top clicks includes unclicked places, got %d", len(top))
	}
	if top[0].Shop != "B" || top[0].Rank != 1 || top[0].Clicks != 2 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}

	trending, err := s.Trending(context.Background(), 10)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("trending must exclude unclicked places, got %d", len(trending))
	}
}

func TestDistrictStats(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		food.Place{Shop: "A", District: "Hoàn Kiếm"},
		food.Place{Shop: "B", District: "Hoàn Kiếm"},
		food.Place{Shop: "C", District: "Ba Đình"},
		food.Place{Shop: "D", District: "  "},
	)

	stats, err := s.DistrictStats(context.Background())
	if err != nil {
		t.Fatalf("district stats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected 3 districts, got %+v", stats)
	}
	if stats[0].District != "Hoàn Kiếm" || stats[0].Total != 2 {
		t.Fatalf("expected busiest district first: %+v", stats[0])
	}
	found := false
	for _, st := range stats {
		if st.District == "Chưa phân loại" && st.Total == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("blank district not bucketed: %+v", stats)
	}
}

func TestPriceBandsAndCategories(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		food.Place{Shop: "Rẻ", PriceMin: 30000, PriceMax: 40000},
		food.Place{Shop: "Vừa", PriceMin: 80000, PriceMax: 120000},
		food.Place{Shop: "Đắt", PriceMin: 200000, PriceMax: 500000},
		food.Place{Shop: "Không giá", PriceMin: 0, PriceMax: 0},
	)

	dist, err := s.PriceBands(context.Background())
	if err != nil {
		t.Fatalf("price bands: %v", err)
	}
	if dist.MidRange != 1 || dist.Premium != 1 || dist.Total != 4 {
		t.Fatalf("unexpected distribution: %+v", dist)
	}

	cats, err := s.CategoryStats(context.Background())
	if err != nil {
		t.Fatalf("category stats: %v", err)
	}
	if len(cats) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(cats))
	}
	var sum float64
	for _, c := range cats {
		sum += c.Percentage
	}
	if sum < 99 || sum > 101 {
		t.Fatalf("percentages should sum to ~100, got %.1f", sum)
	}
}

func TestRandomDiscoveryFilters(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		food.Place{Shop: "A", District: "Hoàn Kiếm", PriceMin: 30000, PriceMax: 40000},
		food.Place{Shop: "B", District: "Ba Đình", PriceMin: 200000, PriceMax: 300000},
		food.Place{Shop: "C", Address: "5 Hoàn Kiếm", PriceMin: 0, PriceMax: 20000},
	)

	got, err := s.RandomDiscovery(context.Background(), "Hoàn Kiếm", 50000, 10)
	if err != nil {
		t.Fatalf("random discovery: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches (district via quan or dia_chi, price cap), got %d", len(got))
	}
	for _, p := range got {
		if p.Shop == "B" {
			t.Fatalf("place over price cap returned: %+v", p)
		}
	}
}
