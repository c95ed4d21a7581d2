// Package graphnode is the GraphQL client MRQLoop uses to actively probe
// graph-node with sample query bindings.
package graphnode

import (
	"context"
	"net/http"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sapcc/go-bits/retry"

	"github.com/semiotic-ai/autoagora-go/internal/autoerr"
	"github.com/semiotic-ai/autoagora-go/internal/retryutil"
	"github.com/semiotic-ai/autoagora-go/internal/util"
)

// Client executes queries against a graph-node GraphQL endpoint.
type Client struct {
	gql *graphql.Client

	// Backoff reuses the same exponential shape as the indexer-agent and
	// indexer-service clients, since graph-node probing failures are just
	// as likely to be transient network blips.
	Backoff retry.ExponentialBackoff
}

// New constructs a Client pointed at endpoint.
func New(endpoint string) *Client {
	httpClient := &http.Client{Transport: util.AddLoggingRoundTripper(http.DefaultTransport)}
	return &Client{
		gql: graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		Backoff: retry.ExponentialBackoff{
			Factor:      2,
			MaxInterval: 30 * time.Second,
		},
	}
}

// Query executes body (a reformatted "query { ... }" selection set) with the
// given positional variables (named "_0", "_1", ...) and decodes the
// response into into.
func (c *Client) Query(ctx context.Context, body string, variables map[string]any, into any) error {
	req := graphql.NewRequest(body)
	for k, v := range variables {
		req.Var(k, v)
	}

	err := retryutil.Forever(ctx, c.Backoff, func() error {
		return c.gql.Run(ctx, req, into)
	})
	if err != nil {
		return autoerr.WrapRecoverable("graphnode.Query", err)
	}
	return nil
}
