package devices

import (
	"fmt"
	"sort"

	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/transfer"
)

// Registry resolves devices by cell for one world and drives thinkers.
type Registry struct {
	world string
	clock func() uint64
	// Grid is optional; when set, output targets pointing at an oriented
	// cell also resolve to the device that cell faces.
	Grid grid.Adapter

	byPos    map[grid.Coord]Device
	thinkers []Device
	onRemove []func(Device)
}

func NewRegistry(world string, clock func() uint64) *Registry {
	return &Registry{
		world: world,
		clock: clock,
		byPos: map[grid.Coord]Device{},
	}
}

func (r *Registry) now() uint64 {
	if r.clock == nil {
		return 0
	}
	return r.clock()
}

func (r *Registry) OnRemove(fn func(Device)) {
	if fn != nil {
		r.onRemove = append(r.onRemove, fn)
	}
}

func (r *Registry) Add(d Device) error {
	pos := d.Pos()
	if pos.World != r.world {
		return fmt.Errorf("device %s at %s: not in world %s", d.Name(), pos, r.world)
	}
	if other, ok := r.byPos[pos]; ok {
		return fmt.Errorf("device %s at %s: occupied by %s", d.Name(), pos, other.Name())
	}
	r.byPos[pos] = d
	if d.Capabilities().Thinker != nil {
		r.thinkers = append(r.thinkers, d)
	}
	return nil
}

func (r *Registry) Remove(pos grid.Coord) (Device, bool) {
	d, ok := r.byPos[pos]
	if !ok {
		return nil, false
	}
	delete(r.byPos, pos)
	for i, t := range r.thinkers {
		if t == d {
			r.thinkers = append(r.thinkers[:i], r.thinkers[i+1:]...)
			break
		}
	}
	for _, fn := range r.onRemove {
		fn(d)
	}
	return d, true
}

func (r *Registry) At(pos grid.Coord) (Device, bool) {
	d, ok := r.byPos[pos]
	return d, ok
}

// Resolve finds the device an output target addresses: the device on the
// target cell, or the device the target cell faces.
func (r *Registry) Resolve(target grid.Coord) (Device, bool) {
	if d, ok := r.byPos[target]; ok {
		return d, true
	}
	if r.Grid == nil {
		return nil, false
	}
	if f, ok := r.Grid.Orientation(target); ok {
		d, ok := r.byPos[target.Step(f)]
		return d, ok
	}
	return nil, false
}

func (r *Registry) Len() int { return len(r.byPos) }

func (r *Registry) All() []Device {
	out := make([]Device, 0, len(r.byPos))
	for _, d := range r.byPos {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos().Less(out[j].Pos()) })
	return out
}

// Tick runs every thinker in registration order, skipping throttled ones and
// ones whose delay has not elapsed. It returns how many thought.
func (r *Registry) Tick(now uint64) int {
	ran := 0
	thinkers := append([]Device(nil), r.thinkers...)
	for _, d := range thinkers {
		if r.byPos[d.Pos()] != d {
			continue
		}
		caps := d.Capabilities()
		if caps.Throttle != nil && caps.Throttle.Throttled(now) {
			continue
		}
		if !caps.Thinker.Delay().Ready(now) {
			continue
		}
		caps.Thinker.Think(now)
		ran++
	}
	return ran
}

// OnPipePut delivers a pipe output to the container at its target.
func (r *Registry) OnPipePut(e *transfer.PutEvent) {
	d, ok := r.byPos[e.Target]
	if !ok {
		return
	}
	caps := d.Capabilities()
	if caps.Container == nil {
		return
	}
	if caps.Collection != nil && caps.Collection == e.Collection {
		return
	}
	if !caps.Container.Accepts(e.Collection) {
		return
	}
	caps.Container.PipePut(e.Collection, e)
}

// OnPipePull hands out the collection at a cell unless it was already
// touched this tick.
func (r *Registry) OnPipePull(at grid.Coord) (transfer.Collection, bool) {
	d, ok := r.byPos[at]
	if !ok {
		return nil, false
	}
	caps := d.Capabilities()
	if caps.Collection == nil {
		return nil, false
	}
	if caps.Throttle != nil && caps.Throttle.Throttled(r.now()) {
		return nil, false
	}
	return caps.Collection, true
}
