package devices

import (
	"factorycraft.ai/internal/sim/grid"
)

// Pump pulls from the collection at Input and pushes it along the pipe
// route starting at Output. Every delivery costs energy.
type Pump struct {
	env Env
	pos grid.Coord

	Input  grid.Coord
	Output grid.Coord

	EnergyCap float64
	energy    float64
	Moved     int

	delay    *DelayHandler
	throttle TickThrottle
}

func NewPump(env Env, pos, input, output grid.Coord, delayTicks int) *Pump {
	return &Pump{
		env:       env,
		pos:       pos,
		Input:     input,
		Output:    output,
		EnergyCap: 16,
		delay:     NewDelay(delayTicks),
	}
}

func (p *Pump) Pos() grid.Coord { return p.pos }
func (p *Pump) Name() string    { return "PUMP" }

func (p *Pump) Capabilities() Capabilities {
	return Capabilities{Consumer: p, Thinker: p, Throttle: &p.throttle}
}

func (p *Pump) Energy() float64 { return p.energy }

func (p *Pump) EnergyDemand() float64 { return p.EnergyCap - p.energy }

func (p *Pump) AcceptEnergy(amount float64) float64 {
	n := min(amount, p.EnergyDemand())
	if n <= 0 {
		return 0
	}
	p.energy += n
	return n
}

func (p *Pump) Delay() *DelayHandler { return p.delay }

func (p *Pump) Think(now uint64) {
	if p.env.Transfer == nil {
		return
	}
	c, ok := p.env.Transfer.Pull(p.Input)
	if !ok || c.IsTransferEmpty() {
		return
	}
	cost := c.TransferEnergyCost()
	if p.energy < cost {
		return
	}
	// never deliver more than the energy pays for
	limit := 0
	if cost > 0 {
		limit = int(p.energy / cost)
	}
	rep := p.env.Transfer.PushLimit(p.Output, c, limit)
	if !rep.Transferred {
		return
	}
	p.energy = max(0, p.energy-rep.EnergyCost)
	p.Moved += rep.Moved
	p.throttle.Mark(now)
}
