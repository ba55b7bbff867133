package devices

import (
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
)

// Generator burns fuel and sends the energy to power centrals reached
// through comparators on its output route.
type Generator struct {
	env Env
	pos grid.Coord

	Output        grid.Coord
	Fuel          int
	EnergyPerFuel float64
	BufferCap     float64
	buffer        float64

	Delivered float64
	LastLoad  float64

	delay *DelayHandler
}

func NewGenerator(env Env, pos, output grid.Coord, delayTicks int) *Generator {
	return &Generator{
		env:           env,
		pos:           pos,
		Output:        output,
		EnergyPerFuel: 8,
		BufferCap:     32,
		delay:         NewDelay(delayTicks),
	}
}

func (g *Generator) Pos() grid.Coord { return g.pos }
func (g *Generator) Name() string    { return "GENERATOR" }

func (g *Generator) Capabilities() Capabilities {
	return Capabilities{Source: g, Thinker: g}
}

func (g *Generator) Buffer() float64 { return g.buffer }

func (g *Generator) Delay() *DelayHandler { return g.delay }

func (g *Generator) Think(now uint64) {
	if g.Fuel > 0 && g.buffer+g.EnergyPerFuel <= g.BufferCap {
		g.Fuel--
		g.buffer += g.EnergyPerFuel
	}
	if g.env.Signal != nil {
		g.env.Signal.Propagate(g.Output, g)
	}
}

func (g *Generator) Context() int { return routes.ContextSinkToSource }

func (g *Generator) PreSignal(r *routes.Route) bool {
	g.LastLoad = 1
	return g.buffer > 0
}

func (g *Generator) HandleOutput(target grid.Coord) bool {
	d, ok := g.env.Registry.Resolve(target)
	if !ok {
		return false
	}
	store := d.Capabilities().Energy
	if store == nil {
		return false
	}
	got := store.AddEnergy(g.buffer)
	g.buffer -= got
	g.Delivered += got
	return got > 0
}

func (g *Generator) PostSignal(r *routes.Route, successes int) {
	g.LastLoad = g.env.Signal.Load(r, g.Context(), successes)
}

// PowerCentral stores energy and hands it to consumers reached through
// amplifiers facing sticky actuators.
type PowerCentral struct {
	env Env
	pos grid.Coord

	Output    grid.Coord
	Capacity  float64
	PerOutput float64
	energy    float64

	LastLoad float64

	delay *DelayHandler
}

func NewPowerCentral(env Env, pos, output grid.Coord, delayTicks int) *PowerCentral {
	return &PowerCentral{
		env:       env,
		pos:       pos,
		Output:    output,
		Capacity:  1000,
		PerOutput: 4,
		delay:     NewDelay(delayTicks),
	}
}

func (c *PowerCentral) Pos() grid.Coord { return c.pos }
func (c *PowerCentral) Name() string    { return "POWER_CENTRAL" }

func (c *PowerCentral) Capabilities() Capabilities {
	return Capabilities{Energy: c, Source: c, Thinker: c}
}

func (c *PowerCentral) Energy() float64         { return c.energy }
func (c *PowerCentral) EnergyCapacity() float64 { return c.Capacity }

func (c *PowerCentral) AddEnergy(amount float64) float64 {
	n := min(amount, c.Capacity-c.energy)
	if n <= 0 {
		return 0
	}
	c.energy += n
	return n
}

func (c *PowerCentral) Delay() *DelayHandler { return c.delay }

func (c *PowerCentral) Think(now uint64) {
	if c.energy > 0 && c.env.Signal != nil {
		c.env.Signal.Propagate(c.Output, c)
	}
}

func (c *PowerCentral) Context() int { return routes.ContextSourceToSink }

func (c *PowerCentral) PreSignal(r *routes.Route) bool {
	c.LastLoad = 1
	return c.energy > 0
}

func (c *PowerCentral) HandleOutput(target grid.Coord) bool {
	d, ok := c.env.Registry.Resolve(target)
	if !ok {
		return false
	}
	cons := d.Capabilities().Consumer
	if cons == nil {
		return false
	}
	give := min(cons.EnergyDemand(), c.energy, c.PerOutput)
	if give <= 0 {
		return false
	}
	got := cons.AcceptEnergy(give)
	c.energy -= got
	return got > 0
}

func (c *PowerCentral) PostSignal(r *routes.Route, successes int) {
	c.LastLoad = c.env.Signal.Load(r, c.Context(), successes)
}
