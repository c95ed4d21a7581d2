// Package indexeragent is the GraphQL client for the indexer-agent
// management endpoint: reading allocated subgraphs and a subgraph's current
// cost model, and writing a new cost model and/or variables.
package indexeragent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sapcc/go-bits/retry"

	"github.com/semiotic-ai/autoagora-go/internal/autoerr"
	"github.com/semiotic-ai/autoagora-go/internal/costmodel"
	"github.com/semiotic-ai/autoagora-go/internal/retryutil"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
	"github.com/semiotic-ai/autoagora-go/internal/util"
)

// Client talks to the indexer-agent's management GraphQL API.
type Client struct {
	gql *graphql.Client

	// Backoff controls the retry policy for every request; overridable in
	// tests. Requests retry until they succeed or ctx is done, since an
	// unreachable indexer-agent is always worth waiting out rather than
	// giving up on a control loop permanently.
	Backoff retry.ExponentialBackoff
}

// New constructs a Client pointed at endpoint. The underlying HTTP
// transport logs round trips that take excessively long, so a degraded
// indexer-agent shows up in logs before it starts timing out requests.
func New(endpoint string) *Client {
	httpClient := &http.Client{Transport: util.AddLoggingRoundTripper(http.DefaultTransport)}
	return &Client{
		gql:     graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		Backoff: defaultBackoff(),
	}
}

func defaultBackoff() retry.ExponentialBackoff {
	return retry.ExponentialBackoff{
		Factor:      2,
		MaxInterval: 30 * time.Second,
	}
}

// GetAllocatedSubgraphs returns the indexer's currently allocated subgraph
// deployments.
func (c *Client) GetAllocatedSubgraphs(ctx context.Context) ([]subgraphid.ID, error) {
	const query = `{
		indexerAllocations {
			subgraphDeployment
		}
	}`

	var resp struct {
		IndexerAllocations []struct {
			SubgraphDeployment string `json:"subgraphDeployment"`
		} `json:"indexerAllocations"`
	}

	if err := c.run(ctx, query, nil, &resp); err != nil {
		return nil, autoerr.WrapRecoverable("indexeragent.GetAllocatedSubgraphs", err)
	}

	ids := make([]subgraphid.ID, 0, len(resp.IndexerAllocations))
	seen := make(map[subgraphid.ID]struct{}, len(resp.IndexerAllocations))
	for _, a := range resp.IndexerAllocations {
		// indexerAllocations.subgraphDeployment comes back as the base58
		// "Qm..." IPFS form; only costModel/setCostModel's "deployment" GraphQL
		// argument wants the hex form (see subgraph.String() below).
		id, err := subgraphid.ParseBase58(a.SubgraphDeployment)
		if err != nil {
			return nil, autoerr.WrapFatal("indexeragent.GetAllocatedSubgraphs", err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetCostVariables reads the current cost-model variables for a subgraph.
func (c *Client) GetCostVariables(ctx context.Context, subgraph subgraphid.ID) (costmodel.Variables, error) {
	const query = `query ($deployment: String!) {
		costModel(deployment: $deployment) {
			variables
		}
	}`

	var resp struct {
		CostModel struct {
			Variables string `json:"variables"`
		} `json:"costModel"`
	}

	if err := c.run(ctx, query, map[string]any{"deployment": subgraph.String()}, &resp); err != nil {
		return nil, autoerr.WrapRecoverable("indexeragent.GetCostVariables", err)
	}

	if resp.CostModel.Variables == "" {
		return costmodel.Variables{}, nil
	}
	var vars costmodel.Variables
	if err := json.Unmarshal([]byte(resp.CostModel.Variables), &vars); err != nil {
		return nil, autoerr.WrapRecoverable("indexeragent.GetCostVariables: decode variables", err)
	}
	return vars, nil
}

// SetCostModel pushes model and/or variables for subgraph. Sending only
// variables keeps the model document untouched and vice versa. Passing both
// nil is a programming error.
func (c *Client) SetCostModel(ctx context.Context, subgraph subgraphid.ID, model *costmodel.Text, variables costmodel.Variables) error {
	if model == nil && variables == nil {
		return autoerr.WrapFatal("indexeragent.SetCostModel", fmt.Errorf("model and variables are both nil"))
	}

	const mutation = `mutation ($deployment: String!, $model: String, $variables: String) {
		setCostModel(costModel: {deployment: $deployment, model: $model, variables: $variables}) {
			__typename
		}
	}`

	vars := map[string]any{
		"deployment": subgraph.String(),
	}
	if model != nil {
		vars["model"] = string(*model)
	}
	if variables != nil {
		encoded, err := json.Marshal(variables)
		if err != nil {
			return autoerr.WrapFatal("indexeragent.SetCostModel: encode variables", err)
		}
		vars["variables"] = string(encoded)
	}

	if err := c.run(ctx, mutation, vars, nil); err != nil {
		return autoerr.WrapRecoverable("indexeragent.SetCostModel", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, query string, vars map[string]any, into any) error {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}

	return retryutil.Forever(ctx, c.Backoff, func() error {
		return c.gql.Run(ctx, req, into)
	})
}
