package pricingenv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/semiotic-ai/autoagora-go/internal/costmodel"
	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/metricsendpoints"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

func mustSubgraph(t *testing.T) subgraphid.ID {
	t.Helper()
	id, err := subgraphid.ParseBase58("Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	if err != nil {
		t.Fatalf("ParseBase58: %v", err)
	}
	return id
}

// fakeClock lets tests step time.Now() deterministically without real sleeps.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func instantSleep(_ context.Context, _ time.Duration) error { return nil }

func TestSetCostMultiplierPreservesModelAndWritesVariables(t *testing.T) {
	var gotMutationVars map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case req.Variables["model"] != nil || req.Variables["variables"] != nil:
			gotMutationVars = req.Variables
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"setCostModel": map[string]any{"__typename": "CostModel"}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"costModel": map[string]any{"variables": ""}},
			})
		}
	}))
	defer srv.Close()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	env := New(mustSubgraph(t), indexeragent.New(srv.URL), metricsendpoints.NewStaticEndpoints("http://unused"))
	env.TimeNow = clock.now
	env.Sleep = instantSleep

	if err := env.SetCostMultiplier(context.Background(), 1.5); err != nil {
		t.Fatalf("SetCostMultiplier(): %v", err)
	}

	if gotMutationVars == nil {
		t.Fatal("setCostModel mutation was never sent")
	}
	if gotMutationVars["model"] != nil {
		t.Fatalf("model document should be left untouched, got %v", gotMutationVars["model"])
	}
	var vars costmodel.Variables
	if err := json.Unmarshal([]byte(gotMutationVars["variables"].(string)), &vars); err != nil {
		t.Fatalf("decoding written variables: %v", err)
	}
	if vars[costmodel.GlobalCostMultiplierKey] != 1.5 {
		t.Fatalf("GLOBAL_COST_MULTIPLIER = %v, want 1.5", vars[costmodel.GlobalCostMultiplierKey])
	}
	if !env.hasChanged {
		t.Fatal("hasChanged should be true after a successful SetCostMultiplier")
	}
}

func TestQueriesPerSecondComputesRateAcrossWindow(t *testing.T) {
	const deployment = "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH"
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		count := 1000
		if calls > 1 {
			count = 1200
		}
		w.Write([]byte(`indexer_service_queries_ok{deployment="` + deployment + `"} ` +
			strconv.Itoa(count) + "\n"))
	}))
	defer srv.Close()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	env := New(mustSubgraph(t), indexeragent.New("http://unused"), metricsendpoints.NewStaticEndpoints(srv.URL))
	env.TimeNow = clock.now
	// hasChanged starts false, so QueriesPerSecond should not wait out the
	// gateway settle delay; Sleep is still stubbed so the 100s window wait
	// doesn't actually block the test.
	env.Sleep = func(_ context.Context, d time.Duration) error {
		clock.t = clock.t.Add(d)
		return nil
	}

	qps, err := env.QueriesPerSecond(context.Background(), 100*time.Second)
	if err != nil {
		t.Fatalf("QueriesPerSecond(): %v", err)
	}
	if qps != 2 {
		t.Fatalf("QueriesPerSecond() = %v, want 2 (200 queries / 100s)", qps)
	}
}
