package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zen-systems/foodgate/pkg/adapter"
	"github.com/zen-systems/foodgate/pkg/chat"
	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/gen"
	"github.com/zen-systems/foodgate/pkg/intent"
	"github.com/zen-systems/foodgate/pkg/router"
	"github.com/zen-systems/foodgate/pkg/search"
	"github.com/zen-systems/foodgate/pkg/storage"
	"github.com/zen-systems/foodgate/pkg/vector"
)

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *adapter.MockAdapter) {
	t.Helper()
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "ha_noi")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.Open(filepath.Join(dir, "food.db"))
	if err != nil {
		t.Fatal(err)
	}
	places := []food.Place{
		{Shop: "Phở Thìn", Dish: "phở bò", Address: "13 Lò Đúc", District: "Hai Bà Trưng", PriceMin: 50000, PriceMax: 70000},
		{Shop: "Bún Chả Hương Liên", Dish: "bún chả", Address: "24 Lê Văn Hưu", District: "Hai Bà Trưng", PriceMin: 40000, PriceMax: 60000},
		{Shop: "Xôi Yến", Dish: "xôi xéo", Address: "35B Nguyễn Hữu Huân", District: "Hoàn Kiếm"},
	}
	for _, p := range places {
		if _, err := store.InsertPlace(context.Background(), p); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	idx, err := vector.NewIndex([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.WriteTo(filepath.Join(dir, "index.vec")); err != nil {
		t.Fatal(err)
	}

	searchSvc := search.NewService(search.NewRegistry(dataDir), fixedEmbedder{}, nil)
	bridge, err := gen.NewService(4, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(bridge.Close)

	mock := adapter.NewMockAdapter()
	target := gen.Target{Adapter: mock, Model: "mock-1"}
	orch := chat.NewOrchestrator(router.NewClassifier(), searchSvc, intent.NewResponder(), bridge,
		chat.Targets{Light: target, Heavy: target}, nil)
	orch.Now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	srv := New(searchSvc, orch, bridge, target, nil)
	srv.Now = orch.Now
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, mock
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func postJSON(t *testing.T, url string, body any, v any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestHealthAndCities(t *testing.T) {
	ts, _ := newTestServer(t)

	var health struct {
		Status string   `json:"status"`
		Cities []string `json:"cities"`
	}
	if resp := getJSON(t, ts.URL+"/health", &health); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
	if health.Status != "ok" || len(health.Cities) != 1 || health.Cities[0] != "ha_noi" {
		t.Fatalf("unexpected health: %+v", health)
	}

	var cities struct {
		Cities []string `json:"cities"`
	}
	getJSON(t, ts.URL+"/cities", &cities)
	if len(cities.Cities) != 1 {
		t.Fatalf("unexpected cities: %+v", cities)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var out searchResponse
	if resp := getJSON(t, ts.URL+"/search?q=ph%E1%BB%9F&city=ha_noi", &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("search status %d", resp.StatusCode)
	}
	if out.Total == 0 || out.City != "ha_noi" {
		t.Fatalf("unexpected search result: %+v", out)
	}

	if resp := getJSON(t, ts.URL+"/search?q=ph%E1%BB%9F&city=narnia", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown city must be 400, got %d", resp.StatusCode)
	}
	if resp := getJSON(t, ts.URL+"/search?city=ha_noi", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing q must be 400, got %d", resp.StatusCode)
	}
}

func TestSearchTextMode(t *testing.T) {
	ts, _ := newTestServer(t)
	var out searchResponse
	getJSON(t, ts.URL+"/search?q=b%C3%BAn&city=ha_noi&mode=text", &out)
	if out.Total != 1 || out.Items[0].Dish != "bún chả" {
		t.Fatalf("unexpected text search result: %+v", out)
	}
}

func TestClickEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var out clickResponse
	if resp := postJSON(t, ts.URL+"/food/click", clickRequest{ID: 1, City: "ha_noi"}, &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("click status %d", resp.StatusCode)
	}
	if out.Clicks != 1 || out.ID != 1 {
		t.Fatalf("unexpected click response: %+v", out)
	}

	if resp := postJSON(t, ts.URL+"/food/click", clickRequest{ID: 999, City: "ha_noi"}, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing id must be 404, got %d", resp.StatusCode)
	}
}

func TestChatEndpointTemplatePath(t *testing.T) {
	ts, _ := newTestServer(t)

	var out chat.Response
	resp := postJSON(t, ts.URL+"/chat", chat.Request{Message: "tôi muốn ăn phở", City: "ha_noi"}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status %d", resp.StatusCode)
	}
	if out.ModelUsed != "local" || out.QueryType != "simple" {
		t.Fatalf("expected the template path: %+v", out)
	}

	if resp := postJSON(t, ts.URL+"/chat", chat.Request{Message: "", City: "ha_noi"}, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message must be 400, got %d", resp.StatusCode)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var out suggestResponse
	if resp := getJSON(t, ts.URL+"/suggest?city=ha_noi&hour=12", &out); resp.StatusCode != http.StatusOK {
		t.Fatalf("suggest status %d", resp.StatusCode)
	}
	if out.MealTime != "Bữa trưa" {
		t.Fatalf("unexpected meal time: %q", out.MealTime)
	}
	if out.Reply == "" {
		t.Fatal("suggest reply must not be empty")
	}
}

func TestNearbyEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var out nearbyResponse
	resp := postJSON(t, ts.URL+"/nearby",
		nearbyRequest{Query: "phở", City: "ha_noi", UserAddress: "12 Tràng Thi"}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby status %d", resp.StatusCode)
	}
	if out.Reply == "" || len(out.Results) == 0 {
		t.Fatalf("unexpected nearby response: %+v", out)
	}
	if len(out.Results) > 10 {
		t.Fatalf("nearby must cap results at 10, got %d", len(out.Results))
	}
}

func TestInsightEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/food/click", clickRequest{ID: 2, City: "ha_noi"}, nil)

	var top []food.RankedPlace
	getJSON(t, ts.URL+"/city/ha_noi/top-clicks", &top)
	if len(top) != 3 || top[0].ID != 2 || top[0].Rank != 1 {
		t.Fatalf("unexpected top clicks: %+v", top)
	}

	var trending []food.RankedPlace
	getJSON(t, ts.URL+"/city/ha_noi/trending", &trending)
	if len(trending) != 1 || trending[0].ID != 2 {
		t.Fatalf("trending must only list clicked places: %+v", trending)
	}

	var districts districtStatsResponse
	getJSON(t, ts.URL+"/city/ha_noi/districts", &districts)
	if districts.TotalPlaces != 3 || len(districts.Districts) != 2 {
		t.Fatalf("unexpected districts: %+v", districts)
	}
	if districts.Districts[0].District != "Hai Bà Trưng" {
		t.Fatalf("districts must be sorted by count: %+v", districts)
	}

	var prices priceDistResponse
	getJSON(t, ts.URL+"/city/ha_noi/price-range", &prices)
	if prices.Total != 3 || prices.Under50k != 2 || prices.MidRange != 1 {
		t.Fatalf("unexpected price bands: %+v", prices)
	}

	var cats categoryStatsResponse
	getJSON(t, ts.URL+"/city/ha_noi/categories", &cats)
	if cats.Total != 3 || len(cats.Categories) != 4 {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	var random randomDiscoveryResponse
	getJSON(t, ts.URL+"/city/ha_noi/random?district=Hai+B%C3%A0+Tr%C6%B0ng&limit=5", &random)
	if len(random.Items) != 2 {
		t.Fatalf("district filter must keep 2 places: %+v", random)
	}

	if resp := getJSON(t, ts.URL+"/city/narnia/top-clicks", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown city must be 400, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	getJSON(t, ts.URL+"/health", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWSChatTemplatePath(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(chat.Request{Message: "tôi muốn ăn phở", City: "ha_noi"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read chunk: %v", err)
	}
	if msgType != websocket.TextMessage || !strings.Contains(string(data), "phở") {
		t.Fatalf("unexpected first frame: %q", data)
	}

	var done wsDone
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read terminal frame: %v", err)
	}
	if !done.Done || done.Model != "local" || done.Type != "simple" {
		t.Fatalf("unexpected terminal frame: %+v", done)
	}
}

func TestWSChatEmptyMessage(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(map[string]string{"message": ""}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out map[string]string
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out["error"] != "Empty message" {
		t.Fatalf("unexpected frame: %+v", out)
	}
}

func TestWSChatGenerationPath(t *testing.T) {
	ts, mock := newTestServer(t)
	mock.Script("tìm quán phở ngon", "Quán ", "Phở Thìn nhé.")
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(chat.Request{Message: "tìm quán phở ngon", City: "ha_noi"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var text strings.Builder
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if msgType == websocket.TextMessage && !bytes.HasPrefix(data, []byte("{")) {
			text.Write(data)
			continue
		}
		var done wsDone
		if err := json.Unmarshal(data, &done); err != nil {
			t.Fatalf("terminal frame: %v (%q)", err, data)
		}
		if !done.Done || done.Model != "gemini-flash" || done.Type != "complex" {
			t.Fatalf("unexpected terminal frame: %+v", done)
		}
		break
	}
	if text.String() != "Quán Phở Thìn nhé." {
		t.Fatalf("unexpected streamed text: %q", text.String())
	}
}
