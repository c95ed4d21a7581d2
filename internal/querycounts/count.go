// Package querycounts scrapes indexer-service's Prometheus endpoint(s) and
// sums the `indexer_service_queries_ok{deployment="..."}` counter for one
// subgraph across every endpoint.
package querycounts

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/semiotic-ai/autoagora-go/internal/autoerr"
	"github.com/semiotic-ai/autoagora-go/internal/metricsendpoints"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

const metricName = "indexer_service_queries_ok"

// Count scrapes every endpoint currently resolved by endpoints and sums the
// indexer_service_queries_ok counter labeled for subgraph. A subgraph with
// no queries yet is simply absent from the metric, which sums to 0, not an
// error.
func Count(ctx context.Context, httpClient *http.Client, endpoints metricsendpoints.Endpoints, subgraph subgraphid.ID) (int64, error) {
	deployment := subgraph.Base58()

	var total int64
	var matched bool
	for _, endpoint := range endpoints.Call() {
		n, found, err := scrapeOne(ctx, httpClient, endpoint, deployment)
		if err != nil {
			return 0, autoerr.WrapRecoverable(fmt.Sprintf("querycounts.Count: scraping %s", endpoint), err)
		}
		if found {
			matched = true
			total += n
		}
	}
	if !matched {
		return 0, nil
	}
	return total, nil
}

func scrapeOne(ctx context.Context, httpClient *http.Client, endpoint, deployment string) (count int64, found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("querycounts: %s returned HTTP %d", endpoint, resp.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return 0, false, fmt.Errorf("querycounts: parsing exposition from %s: %w", endpoint, err)
	}

	family, ok := families[metricName]
	if !ok {
		return 0, false, nil
	}

	var sum int64
	for _, m := range family.GetMetric() {
		if !hasDeploymentLabel(m, deployment) {
			continue
		}
		found = true
		sum += int64(m.GetCounter().GetValue())
	}
	return sum, found, nil
}

func hasDeploymentLabel(m *dto.Metric, deployment string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == "deployment" && strings.EqualFold(lp.GetValue(), deployment) {
			return true
		}
	}
	return false
}
