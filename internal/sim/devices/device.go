package devices

import (
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/signal"
	"factorycraft.ai/internal/sim/transfer"
)

// Device is anything that occupies a cell and takes part in routes.
type Device interface {
	Pos() grid.Coord
	Name() string
	Capabilities() Capabilities
}

// Capabilities is the set of roles a device plays. Nil fields are roles the
// device does not implement.
type Capabilities struct {
	Container  transfer.Container
	Collection transfer.Collection
	Source     signal.Source
	Consumer   Consumer
	Energy     EnergyStore
	Thinker    Thinker

	// Throttle, when set, refuses a second transfer in the same tick.
	Throttle *TickThrottle
}

// Consumer draws energy delivered over signal routes.
type Consumer interface {
	EnergyDemand() float64
	// AcceptEnergy stores up to amount and returns what was taken.
	AcceptEnergy(amount float64) float64
}

// EnergyStore holds energy received from generators.
type EnergyStore interface {
	Energy() float64
	EnergyCapacity() float64
	AddEnergy(amount float64) float64
}

// Thinker is called by the tick driver.
type Thinker interface {
	Delay() *DelayHandler
	Think(now uint64)
}

// TickThrottle remembers the last tick a device was touched.
type TickThrottle struct {
	last   uint64
	marked bool
}

func (t *TickThrottle) Throttled(now uint64) bool { return t.marked && t.last == now }

func (t *TickThrottle) Mark(now uint64) {
	t.last = now
	t.marked = true
}

// DelayHandler lets a thinker run once every Every ticks.
type DelayHandler struct {
	Every uint64

	last    uint64
	started bool
}

func NoDelay() *DelayHandler { return &DelayHandler{} }

func NewDelay(every int) *DelayHandler {
	if every < 0 {
		every = 0
	}
	return &DelayHandler{Every: uint64(every)}
}

func (d *DelayHandler) Ready(now uint64) bool {
	if d.Every <= 1 {
		return true
	}
	if d.started && now-d.last < d.Every {
		return false
	}
	d.last = now
	d.started = true
	return true
}

// Env is what reference devices need from their world.
type Env struct {
	Clock    func() uint64
	Registry *Registry
	Transfer *transfer.Engine
	Signal   *signal.Engine
}

func (e Env) now() uint64 {
	if e.Clock == nil {
		return 0
	}
	return e.Clock()
}
