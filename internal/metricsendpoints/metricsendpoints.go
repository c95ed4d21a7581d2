// Package metricsendpoints resolves the set of indexer-service Prometheus
// scrape URLs: either a static, comma-separated list, or a
// continuously-updated set discovered from a Kubernetes service's backing
// pod IPs.
package metricsendpoints

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints resolves the current set of Prometheus scrape URLs.
type Endpoints interface {
	Call() []string
}

// StaticEndpoints is a fixed list parsed once from a comma-separated string.
type StaticEndpoints struct {
	endpoints []string
}

// NewStaticEndpoints splits commaSeparated into a fixed endpoint list.
func NewStaticEndpoints(commaSeparated string) *StaticEndpoints {
	parts := strings.Split(commaSeparated, ",")
	endpoints := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			endpoints = append(endpoints, p)
		}
	}
	return &StaticEndpoints{endpoints: endpoints}
}

// Call returns the fixed endpoint list.
func (s *StaticEndpoints) Call() []string {
	return s.endpoints
}

// New picks StaticEndpoints or a Kubernetes-backed Endpoints depending on
// the shape of raw: a bare comma-separated list of URLs is static; a single
// "scheme://service:port/path" URL is resolved against the Kubernetes
// Endpoints object named "service".
func New(raw string) (Endpoints, error) {
	if raw == "" {
		return nil, fmt.Errorf("metricsendpoints: empty endpoint configuration")
	}
	if strings.Contains(raw, ",") || !strings.Contains(raw, "://") {
		return NewStaticEndpoints(raw), nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("metricsendpoints: invalid URL %q: %w", raw, err)
	}
	return NewK8sServiceEndpoints(parsed)
}
