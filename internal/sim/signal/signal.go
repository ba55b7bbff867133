package signal

import (
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
)

// Source is a device that drives a signal route.
type Source interface {
	// Context selects which outputs of the route this source talks to.
	Context() int
	// PreSignal may veto the propagation, e.g. when the source is unpowered.
	PreSignal(r *routes.Route) bool
	HandleOutput(target grid.Coord) bool
	// PostSignal is called when not every connected output accepted.
	PostSignal(r *routes.Route, successes int)
}

type Engine struct {
	cache *routes.Cache
}

func NewEngine(cache *routes.Cache) *Engine {
	return &Engine{cache: cache}
}

// Propagate resolves the signal route at start and delivers src to every
// output of its context. It reports whether any output accepted.
func (e *Engine) Propagate(start grid.Coord, src Source) bool {
	r := e.cache.GetOrBuild(routes.Signal, start)
	if !src.PreSignal(r) {
		return false
	}

	outs := r.Outputs(src.Context())
	successes := 0
	for _, o := range outs {
		if o.Variant != routes.SignalOutput {
			continue
		}
		if src.HandleOutput(o.Target) {
			successes++
		}
	}
	if len(outs) == 0 || successes < len(outs) {
		src.PostSignal(r, successes)
	}
	return successes > 0
}

// Load is the share of connected outputs of ctx that accepted. A route with
// no outputs reports zero.
func (e *Engine) Load(r *routes.Route, ctx, successes int) float64 {
	n := r.OutputCount(ctx)
	if n == 0 {
		return 0
	}
	if successes > n {
		successes = n
	}
	return float64(successes) / float64(n)
}
