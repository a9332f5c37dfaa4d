// Package gen builds generation prompts and bridges the blocking provider
// calls into cancellable streams.
package gen

import (
	"fmt"
	"strings"

	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/router"
)

// foodContextCap bounds how many places are rendered into the prompt.
const foodContextCap = 10

// PromptContext bundles everything one generation call needs: the routing
// tier, the scene (city, hour, optional user address), supporting places
// from search, the conversation so far and the new message. TokenBudget is
// clamped to the tier's ceiling before the call.
type PromptContext struct {
	Tier        router.Tier
	City        string
	Hour        int
	UserAddress string
	Places      []food.Place
	History     []food.Turn
	Message     string
	TokenBudget int
}

// SystemInstruction renders the tier-selected system prompt, with the food
// context block appended when places are present.
func (pc PromptContext) SystemInstruction() string {
	system := buildSystem(pc.Tier, pc.City, pc.Hour, pc.UserAddress)
	if ctx := FoodContext(pc.Places); ctx != "" {
		system += "\n\n" + ctx
	}
	return system
}

// buildSystem picks the persona by tier: a stub for the local tier, a
// terse assistant for the light tier, a fuller expert for the heavy tier.
func buildSystem(tier router.Tier, city string, hour int, userAddress string) string {
	meal := food.MealLabel(hour)
	loc := "Không có địa chỉ."
	if userAddress != "" {
		loc = fmt.Sprintf("User ở: %s.", userAddress)
	}
	switch tier {
	case router.TierLocal:
		return fmt.Sprintf("AI ẩm thực – %s – %dh (%s).", city, hour, meal)
	case router.TierLight:
		return fmt.Sprintf(
			"Bạn là trợ lý ẩm thực AI cho %s. Hiện tại: %dh (%s). %s Trả lời ngắn gọn, chính xác, tiếng Việt.",
			city, hour, meal, loc)
	default:
		return fmt.Sprintf(
			"Bạn là chuyên gia ẩm thực AI cho %s.\nThời gian: %dh (%s). %s\nTư vấn món ăn, tìm quán gần user, gợi ý phù hợp.\nLuôn trả lời tiếng Việt, thân thiện, cụ thể.",
			city, hour, meal, loc)
	}
}

// FoodContext renders places into the data block the model grounds its
// answer on. Empty input renders nothing.
func FoodContext(places []food.Place) string {
	if len(places) == 0 {
		return ""
	}
	if len(places) > foodContextCap {
		places = places[:foodContextCap]
	}
	lines := make([]string, len(places))
	for i, p := range places {
		lines[i] = formatPlaceLine(p)
	}
	return "Dữ liệu quán ăn:\n" + strings.Join(lines, "\n")
}

func formatPlaceLine(p food.Place) string {
	price := ""
	if p.PriceMin > 1 || p.PriceMax > 1 {
		price = fmt.Sprintf(", %dk–%dk đ", p.PriceMin/1000, p.PriceMax/1000)
	}
	note := ""
	if p.Note != "" {
		note = ", " + p.Note
	}
	return fmt.Sprintf("- %s (%s) | %s, %s%s%s", p.Shop, p.Dish, p.Address, p.District, price, note)
}

// NearbyPrompt asks the model to rank candidate places by proximity to a
// textual address. Up to 15 candidates are considered.
func NearbyPrompt(places []food.Place, userAddress, city, foodType string) string {
	if len(places) > 15 {
		places = places[:15]
	}
	return fmt.Sprintf(
		"User ở: **%s**, thành phố %s.\nTìm **%s** gần nhất.\n\n%s\n\nXếp hạng TOP 5 quán gần user nhất theo địa chỉ. Ưu tiên quán cùng quận/đường. Kèm lý do ngắn.",
		userAddress, city, foodType, FoodContext(places))
}
