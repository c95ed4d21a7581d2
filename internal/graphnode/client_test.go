package graphnode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQueryDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if req.Variables["_0"] != "Qm123" {
			t.Fatalf("variables = %v, want _0=Qm123", req.Variables)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"subgraph": map[string]any{"id": "Qm123"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)

	var resp struct {
		Subgraph struct {
			ID string `json:"id"`
		} `json:"subgraph"`
	}
	if err := c.Query(context.Background(), "query { subgraph(id: $_0) { id } }", map[string]any{"_0": "Qm123"}, &resp); err != nil {
		t.Fatalf("Query(): %v", err)
	}
	if resp.Subgraph.ID != "Qm123" {
		t.Fatalf("resp.Subgraph.ID = %q, want Qm123", resp.Subgraph.ID)
	}
}

func TestQueryWrapsTransportErrorsAsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var into map[string]any
	err := c.Query(ctx, "query { a }", nil, &into)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}
