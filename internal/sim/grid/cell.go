package grid

import (
	"fmt"
	"strings"
)

// Kind is a block palette id. Zero is AIR.
type Kind uint16

const Air Kind = 0

// Cell is the stored state of one grid position.
type Cell struct {
	Kind      Kind
	Facing    Direction
	HasFacing bool
}

func Plain(k Kind) Cell { return Cell{Kind: k} }

func Facing(k Kind, d Direction) Cell { return Cell{Kind: k, Facing: d, HasFacing: true} }

// Class is the role a kind plays for route discovery.
type Class uint8

const (
	ClassNone Class = iota
	ClassConduit
	ClassActuator
	ClassStickyActuator
	ClassWire
	ClassAmplifier
	ClassComparator
)

var classNames = map[Class]string{
	ClassNone:           "",
	ClassConduit:        "CONDUIT",
	ClassActuator:       "ACTUATOR",
	ClassStickyActuator: "STICKY_ACTUATOR",
	ClassWire:           "WIRE",
	ClassAmplifier:      "AMPLIFIER",
	ClassComparator:     "COMPARATOR",
}

func (c Class) String() string { return classNames[c] }

func ParseClass(s string) (Class, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for c, n := range classNames {
		if n == u {
			return c, nil
		}
	}
	return ClassNone, fmt.Errorf("unknown block class %q", s)
}

// Traits describes a kind as seen by the route rules.
type Traits struct {
	Class     Class
	Tint      string
	Solid     bool
	Occluding bool
}

func (t Traits) SolidOccluding() bool { return t.Solid && t.Occluding }

// PlainConduit reports a plain (untinted) conduit.
func (t Traits) PlainConduit() bool { return t.Class == ClassConduit && t.Tint == "" }

// Adapter is the read-only view of a world's cells used during route builds.
type Adapter interface {
	CellKind(c Coord) Kind
	Orientation(c Coord) (Direction, bool)
}

// Palette resolves kind traits. Unknown kinds must yield zero Traits.
type Palette interface {
	Traits(k Kind) Traits
}
