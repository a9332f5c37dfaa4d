// Package food holds the domain model shared by search, templates and
// generation: places, conversation turns and the small formatting helpers
// the rest of the system agrees on.
package food

import "fmt"

// Place is one row of a city's food pack. IDs are assigned by storage and
// stable for the lifetime of a pack; a price bound of 1 or less means the
// price is unknown.
type Place struct {
	ID       int64  `json:"id"`
	Shop     string `json:"ten_quan"`
	Dish     string `json:"ten_mon"`
	Address  string `json:"dia_chi"`
	District string `json:"quan"`
	City     string `json:"thanh_pho"`
	PriceMin int    `json:"gia_min"`
	PriceMax int    `json:"gia_max"`
	Note     string `json:"note"`
}

// HasPrice reports whether the place carries a usable price.
func (p Place) HasPrice() bool {
	return p.PriceMin > 1 || p.PriceMax > 1
}

// RankedPlace is a Place annotated with its click count and a 1-based rank,
// used by the top-clicks and trending reports.
type RankedPlace struct {
	Place
	Clicks int `json:"so_lan_click"`
	Rank   int `json:"rank"`
}

// Turn is one message of a conversation, as stored by the caller's session.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FormatPrice renders a price range the way every reply template does:
// both bounds unknown → "Chưa có giá", equal bounds → "60k", otherwise
// "50k–80k". Values are VND, truncated to thousands.
func FormatPrice(min, max int) string {
	if min <= 1 && max <= 1 {
		return "Chưa có giá"
	}
	if min == max {
		return fmt.Sprintf("%dk", max/1000)
	}
	return fmt.Sprintf("%dk–%dk", min/1000, max/1000)
}

// MealLabel maps an hour of day to the Vietnamese meal period name.
func MealLabel(hour int) string {
	switch {
	case hour >= 6 && hour < 10:
		return "Bữa sáng"
	case hour >= 10 && hour < 14:
		return "Bữa trưa"
	case hour >= 14 && hour < 17:
		return "Xế chiều"
	case hour >= 17 && hour < 21:
		return "Bữa tối"
	default:
		return "Ăn đêm"
	}
}

// TrimHistory keeps the last max turns whose role is user or assistant and
// whose text is non-empty, preserving order. Generation always receives at
// most MaxHistoryTurns turns.
func TrimHistory(history []Turn, max int) []Turn {
	if max <= 0 {
		return nil
	}
	if len(history) > max {
		history = history[len(history)-max:]
	}
	kept := make([]Turn, 0, len(history))
	for _, t := range history {
		if (t.Role == RoleUser || t.Role == RoleAssistant) && t.Text != "" {
			kept = append(kept, t)
		}
	}
	return kept
}

// MaxHistoryTurns is the hard cap on conversation turns handed to a model.
const MaxHistoryTurns = 6
