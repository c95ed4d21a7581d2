package metricsendpoints

import (
	"reflect"
	"testing"
)

func TestNewStaticEndpointsTrimsAndDropsEmpty(t *testing.T) {
	got := NewStaticEndpoints(" http://a:9090/metrics ,http://b:9090/metrics,,").Call()
	want := []string{"http://a:9090/metrics", "http://b:9090/metrics"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Call() = %v, want %v", got, want)
	}
}

func TestNewPicksStaticForCommaSeparatedList(t *testing.T) {
	e, err := New("http://a:9090/metrics,http://b:9090/metrics")
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if _, ok := e.(*StaticEndpoints); !ok {
		t.Fatalf("New() = %T, want *StaticEndpoints", e)
	}
}

func TestNewPicksStaticForBareHostname(t *testing.T) {
	e, err := New("indexer-service-metrics")
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if _, ok := e.(*StaticEndpoints); !ok {
		t.Fatalf("New() = %T, want *StaticEndpoints", e)
	}
}

func TestNewRejectsEmptyConfiguration(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected an error for empty configuration, got nil")
	}
}
