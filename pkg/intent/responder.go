package intent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/foodgate/pkg/food"
)

// SearchFunc is the injected retrieval dependency. It returns up to limit
// places for a keyword, best first.
type SearchFunc func(ctx context.Context, keyword string, limit int) ([]food.Place, error)

// Responder renders template replies for parsed intents.
type Responder struct{}

// NewResponder creates a template responder.
func NewResponder() *Responder {
	return &Responder{}
}

// Handle processes a query on the template path. It returns the reply, the
// places it was rendered from and whether the query was handled at all;
// handled == false means the caller must escalate to the generation path.
// Search failures propagate; the template path never invents an answer.
func (r *Responder) Handle(ctx context.Context, query string, search SearchFunc, hour int) (string, []food.Place, bool, error) {
	parsed := Parse(query)
	switch parsed.Kind {
	case WantToEat:
		items, err := search(ctx, parsed.Keyword, 10)
		if err != nil {
			return "", nil, false, err
		}
		return r.renderWant(parsed.Keyword, items), items, true, nil
	case PriceQuery:
		items, err := search(ctx, parsed.Keyword, 8)
		if err != nil {
			return "", nil, false, err
		}
		return r.renderPrice(parsed.Keyword, items), items, true, nil
	case PriceCompare:
		return r.handleCompare(ctx, parsed.Keyword, parsed.Keyword2, search)
	case Suggest:
		meal := food.MealLabel(hour)
		term := parsed.Keyword
		if term == "" {
			term = meal
		}
		items, err := search(ctx, term, 8)
		if err != nil {
			return "", nil, false, err
		}
		return r.renderSuggest(parsed.Keyword, items, meal), items, true, nil
	default:
		return "", nil, false, nil
	}
}

// handleCompare fetches both keywords concurrently; neither reply half is
// rendered until both lookups return.
func (r *Responder) handleCompare(ctx context.Context, kw1, kw2 string, search SearchFunc) (string, []food.Place, bool, error) {
	var items1, items2 []food.Place
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items1, err = search(gctx, kw1, 5)
		return err
	})
	g.Go(func() error {
		var err error
		items2, err = search(gctx, kw2, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", nil, false, err
	}
	all := append(append([]food.Place{}, items1...), items2...)
	return r.renderCompare(kw1, items1, kw2, items2), all, true, nil
}

// ── Templates ──

func (r *Responder) renderWant(kw string, items []food.Place) string {
	if len(items) == 0 {
		return fmt.Sprintf("Chưa tìm thấy quán **%s** nào. Thử từ khoá khác nhé! 🙏", kw)
	}
	var lines []string
	for i, p := range items {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf(
			"%d. **%s** (%s)\n   📍 %s, %s\n   💰 %s",
			i+1, p.Shop, p.Dish, p.Address, p.District, food.FormatPrice(p.PriceMin, p.PriceMax)))
	}
	return fmt.Sprintf("Tìm được **%d quán %s** 🍽️\n\n%s", len(items), kw, strings.Join(lines, "\n\n"))
}

func (r *Responder) renderPrice(kw string, items []food.Place) string {
	var priced []food.Place
	for _, p := range items {
		if p.HasPrice() {
			priced = append(priced, p)
		}
		if len(priced) == 5 {
			break
		}
	}
	if len(priced) == 0 {
		return fmt.Sprintf("Chưa có thông tin giá của **%s**.", kw)
	}
	var lines []string
	lo, hi := 0, 0
	for _, p := range priced {
		lines = append(lines, fmt.Sprintf("• **%s**: %s đ", p.Shop, food.FormatPrice(p.PriceMin, p.PriceMax)))
		if p.PriceMin > 1 && (lo == 0 || p.PriceMin < lo) {
			lo = p.PriceMin
		}
		if p.PriceMax > 1 && p.PriceMax > hi {
			hi = p.PriceMax
		}
	}
	if lo == 0 {
		lo = hi
	}
	return fmt.Sprintf("💰 **Giá %s:**\n\n%s\n\n*Dao động: %s đ*", kw, strings.Join(lines, "\n"), food.FormatPrice(lo, hi))
}

func (r *Responder) renderCompare(kw1 string, items1 []food.Place, kw2 string, items2 []food.Place) string {
	block := func(kw string, items []food.Place) string {
		if len(items) == 0 {
			return fmt.Sprintf("**%s**: N/A", kw)
		}
		return fmt.Sprintf("**%s**: %s đ", kw, food.FormatPrice(items[0].PriceMin, items[0].PriceMax))
	}

	verdict := ""
	avg1, ok1 := pricedMean(items1)
	avg2, ok2 := pricedMean(items2)
	// The cheaper side is only named when both sides have price evidence.
	switch {
	case ok1 && ok2 && avg1 < avg2:
		verdict = fmt.Sprintf("\n\n👉 **%s** thường rẻ hơn", kw1)
	case ok1 && ok2 && avg2 < avg1:
		verdict = fmt.Sprintf("\n\n👉 **%s** thường rẻ hơn", kw2)
	case ok1 && ok2:
		verdict = "\n\n👉 Giá hai món tương đương nhau"
	}
	return fmt.Sprintf("💰 So sánh giá:\n\n%s\n%s%s", block(kw1, items1), block(kw2, items2), verdict)
}

// pricedMean averages (min+max)/2 over priced places only. ok is false when
// no place carries a usable price.
func pricedMean(items []food.Place) (float64, bool) {
	sum, n := 0.0, 0
	for _, p := range items {
		if p.HasPrice() {
			sum += float64(p.PriceMin+p.PriceMax) / 2
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func (r *Responder) renderSuggest(kw string, items []food.Place, meal string) string {
	if len(items) == 0 {
		return "Không tìm được gợi ý phù hợp."
	}
	var lines []string
	for i, p := range items {
		if i == 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. **%s** – %s – %s đ",
			i+1, p.Dish, p.Shop, food.FormatPrice(p.PriceMin, p.PriceMax)))
	}
	label := ""
	if kw != "" {
		label = " " + kw
	}
	return fmt.Sprintf("🍽️ Gợi ý%s %s:\n\n%s", label, meal, strings.Join(lines, "\n"))
}
