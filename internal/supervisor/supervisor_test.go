package supervisor

import (
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/semiotic-ai/autoagora-go/internal/metricsserver"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

func mustSubgraph(t *testing.T, base58 string) subgraphid.ID {
	t.Helper()
	id, err := subgraphid.ParseBase58(base58)
	if err != nil {
		t.Fatalf("ParseBase58(%q): %v", base58, err)
	}
	return id
}

func sortedBase58(ids []subgraphid.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Base58()
	}
	sort.Strings(out)
	return out
}

func TestDiffAllocationsStartsNewAndStopsDropped(t *testing.T) {
	a := mustSubgraph(t, "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	b := mustSubgraph(t, "Qmaz1R8vcv9v3gUfksqiS9JUz7K9G8S5By3JYn8kTiiP5K")

	current := map[subgraphid.ID]struct{}{a: {}}
	toStart, toStop := diffAllocations([]subgraphid.ID{b}, nil, current)

	if got := sortedBase58(toStart); len(got) != 1 || got[0] != b.Base58() {
		t.Fatalf("toStart = %v, want [%s]", got, b.Base58())
	}
	if got := sortedBase58(toStop); len(got) != 1 || got[0] != a.Base58() {
		t.Fatalf("toStop = %v, want [%s]", got, a.Base58())
	}
}

func TestDiffAllocationsRespectsExclusions(t *testing.T) {
	a := mustSubgraph(t, "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")

	toStart, toStop := diffAllocations([]subgraphid.ID{a}, map[subgraphid.ID]struct{}{a: {}}, nil)
	if len(toStart) != 0 {
		t.Fatalf("toStart = %v, want none (subgraph is excluded)", toStart)
	}
	if len(toStop) != 0 {
		t.Fatalf("toStop = %v, want none", toStop)
	}
}

func TestDiffAllocationsNoChange(t *testing.T) {
	a := mustSubgraph(t, "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	current := map[subgraphid.ID]struct{}{a: {}}

	toStart, toStop := diffAllocations([]subgraphid.ID{a}, nil, current)
	if len(toStart) != 0 || len(toStop) != 0 {
		t.Fatalf("diffAllocations() = (%v, %v), want (nil, nil)", toStart, toStop)
	}
}

func TestStopRemovesTaskAndDropsGauges(t *testing.T) {
	gauges := metricsserver.NewGauges(prometheus.NewRegistry())
	s := New(Config{Gauges: gauges})

	a := mustSubgraph(t, "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	cancelled := false
	s.tasks[a] = &subgraphTasks{cancel: func() { cancelled = true }}

	s.stop(a)

	if _, ok := s.tasks[a]; ok {
		t.Fatal("stop() did not remove the subgraph from tasks")
	}
	if !cancelled {
		t.Fatal("stop() did not invoke the task's cancel function")
	}
}

func TestStopAllClearsEveryTask(t *testing.T) {
	gauges := metricsserver.NewGauges(prometheus.NewRegistry())
	s := New(Config{Gauges: gauges})

	a := mustSubgraph(t, "Qmadj8x9km1YEyKmRnJ6EkC2zpJZFCfTyTZpuqC3j6e1QH")
	b := mustSubgraph(t, "Qmaz1R8vcv9v3gUfksqiS9JUz7K9G8S5By3JYn8kTiiP5K")
	s.tasks[a] = &subgraphTasks{cancel: func() {}}
	s.tasks[b] = &subgraphTasks{cancel: func() {}}

	s.stopAll()

	if len(s.tasks) != 0 {
		t.Fatalf("stopAll() left %d tasks behind, want 0", len(s.tasks))
	}
}
