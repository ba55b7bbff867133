package devices

import (
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/transfer"
)

// StorageBox holds a single item type up to a capacity. It is both a pipe
// container and a collection pumps can pull from.
type StorageBox struct {
	env Env
	pos grid.Coord

	Item       string
	Amount     int
	Capacity   int
	MaxPerMove int
	EnergyCost float64
	throttle   TickThrottle
}

func NewStorageBox(env Env, pos grid.Coord, capacity int) *StorageBox {
	return &StorageBox{
		env:        env,
		pos:        pos,
		Capacity:   capacity,
		MaxPerMove: 64,
		EnergyCost: 0.5,
	}
}

func (b *StorageBox) Pos() grid.Coord { return b.pos }
func (b *StorageBox) Name() string    { return "STORAGE_BOX" }

func (b *StorageBox) Capabilities() Capabilities {
	return Capabilities{Container: b, Collection: b, Throttle: &b.throttle}
}

func (b *StorageBox) Has(match func(item string) bool) bool {
	return b.Amount > 0 && match(b.Item)
}

func (b *StorageBox) Take(max int) int {
	now := b.env.now()
	if b.throttle.Throttled(now) || b.Amount == 0 || max <= 0 {
		return 0
	}
	n := min(max, b.Amount, b.MaxPerMove)
	b.Amount -= n
	if b.Amount == 0 {
		b.Item = ""
	}
	b.throttle.Mark(now)
	return n
}

func (b *StorageBox) IsTransferEmpty() bool       { return b.Amount == 0 }
func (b *StorageBox) Offered() string             { return b.Item }
func (b *StorageBox) MaxTransfer() int            { return b.MaxPerMove }
func (b *StorageBox) TransferEnergyCost() float64 { return b.EnergyCost }

func (b *StorageBox) Accepts(c transfer.Collection) bool {
	if b.throttle.Throttled(b.env.now()) || b.Amount >= b.Capacity {
		return false
	}
	if b.Amount == 0 {
		return !c.IsTransferEmpty()
	}
	return c.Has(func(item string) bool { return item == b.Item })
}

// PipePut takes at most the free space from c; the rest stays in c.
func (b *StorageBox) PipePut(c transfer.Collection, e *transfer.PutEvent) {
	now := b.env.now()
	if b.throttle.Throttled(now) {
		return
	}
	item := c.Offered()
	if b.Amount > 0 && item != b.Item {
		return
	}
	moved := c.Take(min(b.Capacity-b.Amount, b.MaxPerMove, c.MaxTransfer()))
	if moved <= 0 {
		return
	}
	b.Item = item
	b.Amount += moved
	b.throttle.Mark(now)
	e.MarkTransferred(moved)
}

// Tank is a fluid collection drained by pumps.
type Tank struct {
	pos grid.Coord

	Fluid      string
	Amount     int
	MaxPerMove int
}

func NewTank(pos grid.Coord, fluid string, amount int) *Tank {
	t := &Tank{pos: pos, Fluid: fluid, Amount: amount, MaxPerMove: 1}
	if amount <= 0 {
		t.Fluid = ""
		t.Amount = 0
	}
	return t
}

func (t *Tank) Pos() grid.Coord { return t.pos }
func (t *Tank) Name() string    { return "TANK" }

func (t *Tank) Capabilities() Capabilities {
	return Capabilities{Collection: t}
}

func (t *Tank) Has(match func(item string) bool) bool {
	return t.Fluid != "" && match(t.Fluid)
}

func (t *Tank) Take(max int) int {
	n := min(t.Amount, max)
	if n <= 0 {
		return 0
	}
	t.Amount -= n
	if t.Amount == 0 {
		t.Fluid = ""
	}
	return n
}

func (t *Tank) IsTransferEmpty() bool       { return t.Fluid == "" }
func (t *Tank) Offered() string             { return t.Fluid }
func (t *Tank) MaxTransfer() int            { return t.MaxPerMove }
func (t *Tank) TransferEnergyCost() float64 { return 1.0 / 4.0 }
