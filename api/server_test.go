package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/mediamix/auth"
	"github.com/jonwraymond/mediamix/cache"
	"github.com/jonwraymond/mediamix/health"
	"github.com/jonwraymond/mediamix/mix"
	"github.com/jonwraymond/mediamix/model"
)

const geoCSV = `geo,time,conversions,revenue_per_conversion,competitor_sales_control,sentiment_score_control,promo,population,channel0_spend,channel0_impression,organic_channel0_impression,channel1_spend,channel1_impression,channel2_spend,channel2_impression,channel3_spend,channel3_impression,channel4_spend,channel4_impression
geo_a,2024-01-07,60,50,700,0.6,0,500000,60,6000,1500,120,12000,180,18000,0,0,240,24000
geo_a,2024-01-14,72,50,690,0.65,1,500000,60,6600,1560,120,12600,180,18600,0,0,240,24600
geo_b,2024-01-07,40,50,500,0.6,0,300000,40,4000,1000,80,8000,120,12000,0,0,160,16000
`

const nationalCSV = `time,conversions,revenue_per_conversion,competitor_sales_control,sentiment_score_control,promo,channel0_spend,channel0_impression,organic_channel0_impression,channel1_spend,channel1_impression,channel2_spend,channel2_impression,channel3_spend,channel3_impression,channel4_spend,channel4_impression
2024-01-07,100,50,1200,0.6,0,100,10000,2500,200,20000,300,30000,0,0,400,40000
2024-01-14,120,50,1150,0.65,1,100,11000,2600,200,21000,300,31000,0,0,400,41000
2024-01-21,150,50,1100,0.7,0,100,12000,2700,200,22000,300,32000,0,0,400,42000
`

func writeFixtures(t *testing.T) (dataDir, modelPath string) {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, mix.GeoFileName), []byte(geoCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, mix.NationalFileName), []byte(nationalCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	m := &model.Model{
		Version: 1,
		Channels: []model.Channel{
			{ID: "channel0", Name: "Channel 0"},
			{ID: "channel1", Name: "Channel 1"},
		},
		Times:         []string{"2024-01-07", "2024-01-14", "2024-01-21"},
		BaselineSpend: []float64{1000, 2000},
		Posterior: model.Posterior{
			Saturation: [][]float64{{0.5, 0.7}, {0.6, 0.8}},
			Slope:      [][]float64{{1.2, 1.0}, {1.1, 0.9}},
			Beta:       [][]float64{{100, 200}, {110, 190}},
			Contributions: [][][]float64{
				{{10, 20}, {12, 22}, {14, 24}},
				{{11, 19}, {13, 21}, {15, 23}},
			},
		},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	modelPath = filepath.Join(dir, "mmm_model.json")
	if err := os.WriteFile(modelPath, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return dir, modelPath
}

func newTestServer(t *testing.T, verifier *auth.Verifier) *Server {
	t.Helper()
	dataDir, modelPath := writeFixtures(t)

	dataset, err := mix.Load(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	provider := model.NewProvider(modelPath)

	agg := health.NewAggregator(time.Second)
	agg.Register(health.ModelChecker(provider))
	agg.Register(health.DatasetChecker(dataset))

	return NewServer(Config{
		Provider: provider,
		Dataset:  dataset,
		Cache:    cache.New(cache.Config{}),
		Verifier: verifier,
		Health:   agg,
	})
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			body = nil
		}
	}
	return rec, body
}

func TestHealthRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}
	if body["status"] != "alive" {
		t.Errorf("/healthz status field = %v, want alive", body["status"])
	}

	rec, body = get(t, s, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("/readyz status = %d, want 200", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("/readyz status field = %v, want healthy", body["status"])
	}

	rec, body = get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", rec.Code)
	}
	if _, ok := body["components"].(map[string]any); !ok {
		t.Errorf("/health missing components map: %v", body)
	}
}

func TestModelHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/mmm/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	channels, ok := body["channels"].([]any)
	if !ok || len(channels) != 2 {
		t.Errorf("channels = %v, want 2 entries", body["channels"])
	}
}

func TestResponseCurve(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/mmm/response-curve?channel=channel1&points=20&credible_interval=0.8")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if body["channel"] != "channel1" {
		t.Errorf("channel = %v, want channel1", body["channel"])
	}
	spend, ok := body["spend"].([]any)
	if !ok || len(spend) != 20 {
		t.Fatalf("spend = %v, want 20 points", body["spend"])
	}
	for _, field := range []string{"mean", "lower", "upper"} {
		arr, ok := body[field].([]any)
		if !ok || len(arr) != 20 {
			t.Errorf("%s has %d points, want 20", field, len(arr))
		}
	}
	if body["credible_interval"] != 0.8 {
		t.Errorf("credible_interval = %v, want 0.8", body["credible_interval"])
	}

	// Defaults to the model's first channel.
	rec, body = get(t, s, "/api/mmm/response-curve")
	if rec.Code != http.StatusOK {
		t.Fatalf("default request status = %d, want 200", rec.Code)
	}
	if body["channel"] != "channel0" {
		t.Errorf("default channel = %v, want channel0", body["channel"])
	}
}

func TestResponseCurve_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown channel", "/api/mmm/response-curve?channel=tv", http.StatusBadRequest},
		{"points too low", "/api/mmm/response-curve?points=5", http.StatusBadRequest},
		{"points too high", "/api/mmm/response-curve?points=500", http.StatusBadRequest},
		{"points not a number", "/api/mmm/response-curve?points=many", http.StatusBadRequest},
		{"interval too low", "/api/mmm/response-curve?credible_interval=0.3", http.StatusBadRequest},
		{"interval too high", "/api/mmm/response-curve?credible_interval=0.999", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, s, tt.path)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if body["error"] == "" {
				t.Error("missing error field")
			}
		})
	}
}

func TestResponseCurves(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/mmm/response-curves?spend_steps=15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	channels, ok := body["channels"].([]any)
	if !ok || len(channels) != 2 {
		t.Fatalf("channels = %v, want 2 curves", body["channels"])
	}
	first, ok := channels[0].(map[string]any)
	if !ok {
		t.Fatal("channel entry is not an object")
	}
	points, ok := first["points"].([]any)
	if !ok || len(points) != 15 {
		t.Errorf("curve has %d points, want 15", len(points))
	}

	// Subset selection.
	rec, body = get(t, s, "/api/mmm/response-curves?channels=channel1")
	if rec.Code != http.StatusOK {
		t.Fatalf("subset status = %d, want 200", rec.Code)
	}
	channels, _ = body["channels"].([]any)
	if len(channels) != 1 {
		t.Errorf("subset returned %d curves, want 1", len(channels))
	}
}

func TestResponseCurves_UnknownChannelRejected(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/mmm/response-curves?channels=channel0,tv")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body)
	}
	if body["error"] == "" {
		t.Error("missing error field")
	}
	// Rejected before the cache: nothing is computed or stored.
	if got := s.cache.Len(); got != 0 {
		t.Errorf("cache Len() = %d, want 0", got)
	}

	rec, _ = get(t, s, "/api/mmm/response-curve?channel=tv")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("single-curve status = %d, want 400; body %s", rec.Code, rec.Body)
	}
	if got := s.cache.Len(); got != 0 {
		t.Errorf("cache Len() after single-curve = %d, want 0", got)
	}

	// A known channel in a different case normalizes to the same key and
	// still resolves.
	rec, body = get(t, s, "/api/mmm/response-curve?channel=Channel1")
	if rec.Code != http.StatusOK {
		t.Fatalf("mixed-case status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if body["channel"] != "channel1" {
		t.Errorf("channel = %v, want channel1", body["channel"])
	}
}

func TestContributions(t *testing.T) {
	s := newTestServer(t, nil)

	rec, body := get(t, s, "/api/mmm/contributions?start=2024-01-14")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	points, ok := body["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("points = %v, want 2 entries", body["points"])
	}
	if body["start"] != "2024-01-14" {
		t.Errorf("start = %v, want 2024-01-14", body["start"])
	}

	rec, _ = get(t, s, "/api/mmm/contributions?start=not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}

	rec, _ = get(t, s, "/api/mmm/contributions?start=2030-01-01")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("empty window status = %d, want 500", rec.Code)
	}
}

func TestPreload(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mmm/preload", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := len(cache.DefaultWarmKeys())
	if body["requested"] != want || body["warmed"] != want {
		t.Errorf("warmed/requested = %d/%d, want %d/%d",
			body["warmed"], body["requested"], want, want)
	}
	if got := s.cache.Len(); got != want {
		t.Errorf("cache Len() = %d, want %d", got, want)
	}
}
