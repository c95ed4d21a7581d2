// Package metricsserver exposes the four per-subgraph bandit gauges and
// serves them over a gorilla/mux-routed Prometheus /metrics handler.
package metricsserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// Gauges is the registered set of bandit_* gauge vectors, each labeled by
// subgraph: bandit_mean, bandit_stddev, bandit_price_multiplier and
// bandit_reward.
type Gauges struct {
	Mean            *prometheus.GaugeVec
	Stddev          *prometheus.GaugeVec
	PriceMultiplier *prometheus.GaugeVec
	Reward          *prometheus.GaugeVec
}

// NewGauges constructs and registers the gauge vectors against registry.
func NewGauges(registry *prometheus.Registry) *Gauges {
	g := &Gauges{
		Mean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bandit_mean",
			Help: "Current scaled mean of the price-multiplier policy.",
		}, []string{"subgraph"}),
		Stddev: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bandit_stddev",
			Help: "Current stddev of the price-multiplier policy.",
		}, []string{"subgraph"}),
		PriceMultiplier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bandit_price_multiplier",
			Help: "Most recently sampled price multiplier.",
		}, []string{"subgraph"}),
		Reward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bandit_reward",
			Help: "Most recently observed reward (queries-per-second times price multiplier).",
		}, []string{"subgraph"}),
	}
	registry.MustRegister(g.Mean, g.Stddev, g.PriceMultiplier, g.Reward)
	return g
}

// Publish updates all four gauges for one subgraph in one call, the shape
// every PriceBanditLoop cycle needs.
func (g *Gauges) Publish(subgraph subgraphid.ID, mean, stddev, priceMultiplier, reward float64) {
	label := prometheus.Labels{"subgraph": subgraph.Base58()}
	g.Mean.With(label).Set(mean)
	g.Stddev.With(label).Set(stddev)
	g.PriceMultiplier.With(label).Set(priceMultiplier)
	g.Reward.With(label).Set(reward)
}

// Drop removes a deallocated subgraph's label set from every gauge, so
// stale series don't linger after AllocationSupervisor cancels its loops.
func (g *Gauges) Drop(subgraph subgraphid.ID) {
	label := prometheus.Labels{"subgraph": subgraph.Base58()}
	g.Mean.Delete(label)
	g.Stddev.Delete(label)
	g.PriceMultiplier.Delete(label)
	g.Reward.Delete(label)
}

// Serve runs the metrics HTTP server on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, registry *prometheus.Registry) error {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("metricsserver: listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return server.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
