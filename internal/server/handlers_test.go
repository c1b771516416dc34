package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hyperjump/pillbox/internal/config"
	"github.com/hyperjump/pillbox/internal/druginfo"
	"github.com/hyperjump/pillbox/internal/keyword"
	"github.com/hyperjump/pillbox/internal/lexicon"
	"github.com/hyperjump/pillbox/internal/metrics"
	"github.com/hyperjump/pillbox/internal/models"
	"github.com/hyperjump/pillbox/internal/prescription"
	"go.uber.org/zap"
)

type stubClient struct {
	usage map[string]string
	err   error
}

func (c *stubClient) Lookup(_ context.Context, name string) (*models.DrugInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	text, ok := c.usage[name]
	if !ok {
		return nil, druginfo.ErrNotFound
	}
	return &models.DrugInfo{Name: name, Usage: text, Classification: "일반의약품"}, nil
}

type testEnv struct {
	handler http.Handler
	metrics *metrics.Metrics
	index   *keyword.LexiconIndex
}

func newTestEnv(t *testing.T, client druginfo.Client) *testEnv {
	t.Helper()
	store := lexicon.NewStore(lexicon.Build([]string{
		"타이레놀 | 타이레놀정",
		"게보린 | 게보린정",
	}))
	idx, err := keyword.NewLexiconIndex(store.Current())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	idx.Attach(store)

	m := metrics.New()
	svc := prescription.NewService(store, client, prescription.WithMetrics(m))
	srv := NewServer(svc, &config.ServerConfig{CORSOrigins: []string{"*"}}, zap.NewNop(),
		WithLexiconIndex(idx, keyword.NewSpellChecker(idx)),
		WithMetrics(m))
	return &testEnv{handler: srv.Handler(), metrics: m, index: idx}
}

func tylenolClient() *stubClient {
	return &stubClient{usage: map[string]string{
		"타이레놀": "성인: 1회 1~2정, 1일 3회 식후 30분에 복용",
	}}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestRequestID_propagated(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id: got %q, want abc-123", got)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestHandleParse(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	w := env.do(t, http.MethodPost, "/api/v1/medicine/parse", map[string]interface{}{
		"texts":  []string{"타이레놀정 500mg", "14일분"},
		"scores": []float64{0.98, 0.9},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	var out parseResponse
	decodeBody(t, w, &out)
	if len(out.Medicines) != 1 {
		t.Fatalf("medicines: got %+v", out.Medicines)
	}
	rec := out.Medicines[0]
	if rec.Name != "타이레놀 500mg" || rec.PerDose != 2 || rec.Frequency != 3 || rec.DurationDays != 14 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(out.Candidates) != 1 || out.Candidates[0].Canonical != "타이레놀" {
		t.Errorf("candidates: got %+v", out.Candidates)
	}
	wantTimes := []string{"08:30", "12:30", "19:30"}
	if len(out.Alarms) != len(wantTimes) {
		t.Fatalf("alarms: got %+v", out.Alarms)
	}
	for i, want := range wantTimes {
		if out.Alarms[i].Time != want {
			t.Errorf("alarm %d: got %s, want %s", i, out.Alarms[i].Time, want)
		}
	}
}

func TestHandleParse_nullScoreKeepsLine(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	w := env.do(t, http.MethodPost, "/api/v1/medicine/parse",
		`{"texts":["타이레놀정500mg","게보린"],"scores":[null,0.9]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", w.Code, w.Body.String())
	}
	var out parseResponse
	decodeBody(t, w, &out)
	found := false
	for _, c := range out.Candidates {
		if c.Canonical == "타이레놀" {
			found = true
		}
	}
	if !found {
		t.Errorf("unscored line was dropped: candidates %+v", out.Candidates)
	}
	if len(out.Candidates) != 2 {
		t.Errorf("candidates: got %+v", out.Candidates)
	}
}

func TestHandleParse_mealOverride(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	w := env.do(t, http.MethodPost, "/api/v1/medicine/parse", map[string]interface{}{
		"texts": []string{"타이레놀정"},
		"meals": map[string]string{"breakfast": "07:00"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out parseResponse
	decodeBody(t, w, &out)
	if len(out.Alarms) != 3 || out.Alarms[0].Time != "07:30" || out.Alarms[1].Time != "12:30" {
		t.Errorf("alarms: got %+v", out.Alarms)
	}
}

func TestHandleParse_noMedicine(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	w := env.do(t, http.MethodPost, "/api/v1/medicine/parse", map[string]interface{}{
		"texts": []string{"영수증번호", "12,000원"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out parseResponse
	decodeBody(t, w, &out)
	if len(out.Medicines) != 1 || out.Medicines[0].Name != prescription.NoMedicineName {
		t.Errorf("medicines: got %+v", out.Medicines)
	}
	if len(out.Alarms) != 0 {
		t.Errorf("sentinel record should not schedule alarms: %+v", out.Alarms)
	}
}

func TestHandleParse_badRequests(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid json", "{"},
		{"missing texts", map[string]interface{}{}},
		{"score out of range", map[string]interface{}{"texts": []string{"a"}, "scores": []float64{1.5}}},
		{"bad meal time", map[string]interface{}{"texts": []string{"a"}, "meals": map[string]string{"lunch": "25:00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/medicine/parse", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", w.Code)
			}
			var out map[string]string
			decodeBody(t, w, &out)
			if out["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleMatch(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	w := env.do(t, http.MethodPost, "/api/v1/medicine/match", models.OCRBatch{
		Texts: []string{"게보린정", "20240101"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out prescription.MatchResult
	decodeBody(t, w, &out)
	if len(out.Candidates) != 1 || out.Candidates[0].Canonical != "게보린" {
		t.Errorf("candidates: got %+v", out.Candidates)
	}
	if out.Stats.Noise != 1 {
		t.Errorf("stats: got %+v", out.Stats)
	}
}

func TestHandleInfo(t *testing.T) {
	tests := []struct {
		name   string
		client druginfo.Client
		body   interface{}
		want   int
	}{
		{"found", druginfo.DummyClient{}, infoRequest{MedicineName: "타이레놀"}, http.StatusOK},
		{"not found", &stubClient{}, infoRequest{MedicineName: "없는약"}, http.StatusNotFound},
		{"upstream error", &stubClient{err: errors.New("connection refused")}, infoRequest{MedicineName: "타이레놀"}, http.StatusBadGateway},
		{"missing name", druginfo.DummyClient{}, infoRequest{MedicineName: "  "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.client)
			w := env.do(t, http.MethodPost, "/api/v1/medicine/info", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status: got %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				var info models.DrugInfo
				decodeBody(t, w, &info)
				if info.Name != "타이레놀" {
					t.Errorf("name: got %q", info.Name)
				}
			}
		})
	}
}

func TestHandleAlarms(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	w := env.do(t, http.MethodPost, "/api/v1/alarms", alarmsRequest{
		Medicines: []models.MedicineRecord{
			{Name: "게보린", PerDose: 1, Frequency: 2, Timing: models.TimingAfterMeal},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Alarms []models.AlarmEvent `json:"alarms"`
	}
	decodeBody(t, w, &out)
	if len(out.Alarms) != 2 || out.Alarms[0].Time != "08:30" || out.Alarms[1].Time != "12:30" {
		t.Errorf("alarms: got %+v", out.Alarms)
	}
	if out.Alarms[0].Condition != "아침 식후" {
		t.Errorf("condition: got %q", out.Alarms[0].Condition)
	}
}

func TestHandleLexiconSearch(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	w := env.do(t, http.MethodGet, "/api/v1/lexicon/search?q="+url.QueryEscape("게보린"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out searchResponse
	decodeBody(t, w, &out)
	if len(out.Results) == 0 || out.Results[0].Canonical != "게보린" {
		t.Errorf("results: got %+v", out.Results)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/lexicon/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: got %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/lexicon/search?q=a&limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want 400", w.Code)
	}
}

func TestHandleLexiconSearch_notEnabled(t *testing.T) {
	svc := prescription.NewService(nil, druginfo.DummyClient{})
	srv := NewServer(svc, nil, nil)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/lexicon/search?q=x", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, druginfo.DummyClient{})
	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Lexicon        lexicon.Stats     `json:"lexicon"`
		Meals          map[string]string `json:"meals"`
		IndexedEntries uint64            `json:"indexed_entries"`
	}
	decodeBody(t, w, &out)
	if out.Lexicon.Entries != 2 || out.IndexedEntries != 2 {
		t.Errorf("unexpected status: %+v", out)
	}
	if out.Meals["dinner"] != "19:00" {
		t.Errorf("meals: got %v", out.Meals)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, tylenolClient())
	env.do(t, http.MethodPost, "/api/v1/medicine/parse", map[string]interface{}{"texts": []string{"타이레놀정"}})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`pillbox_http_requests_total{method="POST",route="/api/v1/medicine/parse",status_code="200"} 1`,
		`pillbox_parse_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
