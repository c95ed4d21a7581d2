// Package supervisor implements the AllocationSupervisor: reconciles the
// indexer's allocation set on a fixed tick, starting and stopping each
// subgraph's PriceBanditLoop (and, optionally, ModelBuilderLoop/MRQLoop) as
// allocations come and go.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/semiotic-ai/autoagora-go/internal/autoerr"
	"github.com/semiotic-ai/autoagora-go/internal/banditloop"
	"github.com/semiotic-ai/autoagora-go/internal/costmodel"
	"github.com/semiotic-ai/autoagora-go/internal/graphnode"
	"github.com/semiotic-ai/autoagora-go/internal/indexeragent"
	"github.com/semiotic-ai/autoagora-go/internal/logsdb"
	"github.com/semiotic-ai/autoagora-go/internal/metricsendpoints"
	"github.com/semiotic-ai/autoagora-go/internal/metricsserver"
	"github.com/semiotic-ai/autoagora-go/internal/modelbuilder"
	"github.com/semiotic-ai/autoagora-go/internal/mrq"
	"github.com/semiotic-ai/autoagora-go/internal/pricingenv"
	"github.com/semiotic-ai/autoagora-go/internal/savestate"
	"github.com/semiotic-ai/autoagora-go/internal/subgraphid"
)

// reconcileInterval is the supervisor's fixed tick.
const reconcileInterval = 30 * time.Second

// Config bundles everything a Supervisor needs to bring a subgraph's tasks
// up, independent of internal/config so this package stays testable
// without a real flag set.
type Config struct {
	Indexer                *indexeragent.Client
	GraphNode              *graphnode.Client
	Endpoints              metricsendpoints.Endpoints
	Logs                   *logsdb.Store
	SaveState              *savestate.Store
	Gauges                 *metricsserver.Gauges
	ExcludeSubgraphs       map[subgraphid.ID]struct{}
	RelativeQueryCosts     bool
	MultiRootQueries       bool
	RefreshInterval        time.Duration
	QPSObservationDuration time.Duration
	ManualEntryPath        string
}

type subgraphTasks struct {
	cancel context.CancelFunc
}

// Supervisor is the AllocationSupervisor.
type Supervisor struct {
	cfg Config

	mu    sync.Mutex
	tasks map[subgraphid.ID]*subgraphTasks

	TimeNow func() time.Time
	Sleep   func(context.Context, time.Duration) error
}

// New constructs a Supervisor.
func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		tasks:   make(map[subgraphid.ID]*subgraphTasks),
		TimeNow: time.Now,
		Sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run reconciles on every tick until ctx is cancelled; a failed allocation
// query is logged and retried next tick without disturbing existing loops.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		if err := s.reconcile(ctx); err != nil {
			logg.Error("supervisor: reconciling allocations: %s", err.Error())
		}
		if err := s.Sleep(ctx, reconcileInterval); err != nil {
			s.stopAll()
			return
		}
	}
}

func (s *Supervisor) reconcile(ctx context.Context) error {
	allocated, err := s.cfg.Indexer.GetAllocatedSubgraphs(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	current := make(map[subgraphid.ID]struct{}, len(s.tasks))
	for id := range s.tasks {
		current[id] = struct{}{}
	}
	s.mu.Unlock()

	toStart, toStop := diffAllocations(allocated, s.cfg.ExcludeSubgraphs, current)

	for _, id := range toStop {
		s.stop(id)
	}
	for _, id := range toStart {
		if err := s.start(ctx, id); err != nil {
			logg.Error("supervisor: starting loops for subgraph %s: %s", id.Base58(), err.Error())
		}
	}
	return nil
}

// diffAllocations compares the indexer's currently allocated subgraphs
// (minus any excluded ones) against the subgraphs already running tasks,
// and reports which need starting and which need stopping.
func diffAllocations(allocated []subgraphid.ID, excluded map[subgraphid.ID]struct{}, current map[subgraphid.ID]struct{}) (toStart, toStop []subgraphid.ID) {
	wanted := make(map[subgraphid.ID]struct{}, len(allocated))
	for _, id := range allocated {
		if _, ok := excluded[id]; ok {
			continue
		}
		wanted[id] = struct{}{}
	}

	for id := range wanted {
		if _, ok := current[id]; !ok {
			toStart = append(toStart, id)
		}
	}
	for id := range current {
		if _, ok := wanted[id]; !ok {
			toStop = append(toStop, id)
		}
	}
	return toStart, toStop
}

// start seeds a freshly-allocated subgraph with a default cost model and
// variables, then spawns its task trio. Default variables and default model
// are both written once up front; ModelBuilderLoop, if enabled, then
// overwrites the model with a relative-cost one on its own cadence.
func (s *Supervisor) start(ctx context.Context, id subgraphid.ID) error {
	vars := costmodel.Default()
	if err := s.cfg.Indexer.SetCostModel(ctx, id, nil, vars); err != nil {
		return err
	}
	defaultModel := modelbuilder.BuildDefault()
	if err := s.cfg.Indexer.SetCostModel(ctx, id, &defaultModel, nil); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)

	env := pricingenv.New(id, s.cfg.Indexer, s.cfg.Endpoints)
	loop, err := banditloop.New(taskCtx, id, env, s.cfg.SaveState, s.cfg.Gauges, s.cfg.QPSObservationDuration)
	if err != nil {
		cancel()
		return err
	}
	go func() {
		if err := loop.Run(taskCtx); err != nil {
			if autoerr.IsFatal(err) {
				logg.Fatal("supervisor: PriceBanditLoop for subgraph %s hit a fatal error: %s", id.Base58(), err.Error())
			}
			logg.Error("supervisor: PriceBanditLoop for subgraph %s terminated: %s", id.Base58(), err.Error())
		}
	}()

	if s.cfg.RelativeQueryCosts {
		mb := modelbuilder.NewLoop(id, s.cfg.Indexer, s.cfg.Logs, s.cfg.ManualEntryPath, s.cfg.RefreshInterval)
		go mb.Run(taskCtx)
	}

	if s.cfg.MultiRootQueries {
		ml := mrq.NewLoop(id, s.cfg.Indexer, s.cfg.GraphNode, s.cfg.Logs, s.cfg.ManualEntryPath)
		go ml.Run(taskCtx)
	}

	s.mu.Lock()
	s.tasks[id] = &subgraphTasks{cancel: cancel}
	s.mu.Unlock()

	logg.Info("supervisor: started loops for newly allocated subgraph %s", id.Base58())
	return nil
}

func (s *Supervisor) stop(id subgraphid.ID) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	s.cfg.Gauges.Drop(id)
	logg.Info("supervisor: stopped loops for deallocated subgraph %s", id.Base58())
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	ids := make([]subgraphid.ID, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.stop(id)
	}
}
