package transfer

import (
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
)

// Collection is the moving side of a transfer. Units leave it only through
// Take.
type Collection interface {
	Has(match func(item string) bool) bool
	// Take removes up to max units and returns how many actually left.
	Take(max int) int
	IsTransferEmpty() bool
	Offered() string
	MaxTransfer() int
	TransferEnergyCost() float64
}

// Container is the receiving side of a transfer.
type Container interface {
	Accepts(c Collection) bool
	PipePut(c Collection, e *PutEvent)
}

// PutEvent is raised once per pipe output during a push.
type PutEvent struct {
	Target     grid.Coord
	Via        grid.Coord
	Collection Collection

	transferred bool
	moved       int
}

func (e *PutEvent) MarkTransferred(moved int) {
	if moved <= 0 {
		return
	}
	e.transferred = true
	e.moved += moved
}

func (e *PutEvent) Transferred() bool { return e.transferred }
func (e *PutEvent) Moved() int        { return e.moved }

type PutListener interface {
	OnPipePut(e *PutEvent)
}

type PullListener interface {
	OnPipePull(at grid.Coord) (Collection, bool)
}

type Report struct {
	Transferred bool
	Deliveries  int
	Moved       int
	EnergyCost  float64
}

// Engine drives pushes over cached pipe routes.
type Engine struct {
	cache *routes.Cache
	put   []PutListener
	pull  []PullListener
}

func NewEngine(cache *routes.Cache) *Engine {
	return &Engine{cache: cache}
}

func (e *Engine) OnPut(l PutListener) {
	if l != nil {
		e.put = append(e.put, l)
	}
}

func (e *Engine) OnPull(l PullListener) {
	if l != nil {
		e.pull = append(e.pull, l)
	}
}

// Push offers c to every default-context output of the pipe route at start,
// in discovery order, and reports whether any output accepted.
func (e *Engine) Push(start grid.Coord, c Collection) bool {
	return e.PushReport(start, c).Transferred
}

func (e *Engine) PushReport(start grid.Coord, c Collection) Report {
	return e.PushLimit(start, c, 0)
}

// PushLimit is PushReport stopping after maxDeliveries accepted outputs.
// Zero or less means no limit.
func (e *Engine) PushLimit(start grid.Coord, c Collection, maxDeliveries int) Report {
	var rep Report
	if c == nil || c.IsTransferEmpty() {
		return rep
	}
	r := e.cache.GetOrBuild(routes.Pipe, start)
	for _, o := range r.Outputs(routes.DefaultContext) {
		if o.Variant != routes.PipeOutput {
			continue
		}
		ev := e.handle(o, c)
		if ev.Transferred() {
			rep.Transferred = true
			rep.Deliveries++
			rep.Moved += ev.Moved()
		}
		if c.IsTransferEmpty() || (maxDeliveries > 0 && rep.Deliveries >= maxDeliveries) {
			break
		}
	}
	rep.EnergyCost = float64(rep.Deliveries) * c.TransferEnergyCost()
	return rep
}

func (e *Engine) handle(o routes.Output, c Collection) *PutEvent {
	ev := &PutEvent{Target: o.Target, Via: o.Via, Collection: c}
	for _, l := range e.put {
		l.OnPipePut(ev)
	}
	return ev
}

// Pull asks the pull listeners, in registration order, for a collection at
// the given cell.
func (e *Engine) Pull(at grid.Coord) (Collection, bool) {
	for _, l := range e.pull {
		if c, ok := l.OnPipePull(at); ok && c != nil {
			return c, true
		}
	}
	return nil, false
}
