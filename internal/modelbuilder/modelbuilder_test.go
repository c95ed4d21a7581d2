package modelbuilder

import (
	"strings"
	"testing"

	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

func mustSubgraph(t *testing.T) subgraphid.ID {
	t.Helper()
	id, err := subgraphid.ParseBase58("Qmaz1R8vcv9v3gUfksqiS9JUz7K9G8S5By3JYn8kTiiP5K")
	if err != nil {
		t.Fatalf("ParseBase58: %v", err)
	}
	return id
}

func TestBuildDefaultHasNoQueriesAndEndsWithDefaultRule(t *testing.T) {
	text := BuildDefault()
	if !strings.Contains(string(text), "default => $DEFAULT_COST * $GLOBAL_COST_MULTIPLIER;") {
		t.Fatalf("BuildDefault() missing default rule: %q", text)
	}
	if strings.Contains(string(text), "# count:") {
		t.Fatalf("BuildDefault() should have no query entries: %q", text)
	}
}

func TestBuildEmitsQueriesInGivenOrderWithStats(t *testing.T) {
	// Two query skeletons with counts 2 and 1, already in count-descending
	// order (the caller, GetMostFrequentQueries, is responsible for the
	// ordering; Build just renders what it's given).
	queries := []logsdb.QueryStats{
		{Query: "query { a }", Count: 2, MinTimeMs: 10, MaxTimeMs: 20, AvgTimeMs: 15, StddevTimeMs: 5},
		{Query: "query { b }", Count: 1, MinTimeMs: 30, MaxTimeMs: 30, AvgTimeMs: 30, StddevTimeMs: 0},
	}

	text, err := Build("", queries)
	if err != nil {
		t.Fatalf("Build(): %v", err)
	}

	s := string(text)
	aIdx := strings.Index(s, "query { a }")
	bIdx := strings.Index(s, "query { b }")
	if aIdx == -1 || bIdx == -1 || aIdx > bIdx {
		t.Fatalf("expected query a before query b in:\n%s", s)
	}
	if !strings.Contains(s, "query { a } => 15") {
		t.Fatalf("expected query a's avg_time rule in:\n%s", s)
	}
	if !strings.HasSuffix(strings.TrimRight(s, "\n"), "default => $DEFAULT_COST * $GLOBAL_COST_MULTIPLIER;") {
		t.Fatalf("expected document to end with the default rule:\n%s", s)
	}
}

func TestBuildIncludesManualEntry(t *testing.T) {
	text, err := Build("custom => 1;", nil)
	if err != nil {
		t.Fatalf("Build(): %v", err)
	}
	if !strings.Contains(string(text), "custom => 1;") {
		t.Fatalf("expected manual entry in document:\n%s", text)
	}
}

func TestManualEntryMissingPathIsNotAnError(t *testing.T) {
	content, ok, err := ManualEntry("", mustSubgraph(t))
	if err != nil || ok || content != "" {
		t.Fatalf("ManualEntry with empty path = (%q, %v, %v), want (\"\", false, nil)", content, ok, err)
	}
}
