package grid

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord addresses a single cell in a named world.
type Coord struct {
	World string
	X     int
	Y     int
	Z     int
}

func At(world string, x, y, z int) Coord { return Coord{World: world, X: x, Y: y, Z: z} }

func (c Coord) Step(d Direction) Coord {
	o := d.Offset()
	return Coord{World: c.World, X: c.X + o[0], Y: c.Y + o[1], Z: c.Z + o[2]}
}

func (c Coord) Up() Coord   { return c.Step(Up) }
func (c Coord) Down() Coord { return c.Step(Down) }

// Neighbors returns the six adjacent cells in AllDirections order.
func (c Coord) Neighbors() []Coord {
	out := make([]Coord, 0, len(AllDirections))
	for _, d := range AllDirections {
		out = append(out, c.Step(d))
	}
	return out
}

// Adjacent reports whether o shares a face with c.
func (c Coord) Adjacent(o Coord) bool {
	if c.World != o.World {
		return false
	}
	return absInt(c.X-o.X)+absInt(c.Y-o.Y)+absInt(c.Z-o.Z) == 1
}

func (c Coord) Chunk() ChunkKey {
	return ChunkKey{
		CX: floorDiv(c.X, ChunkSize),
		CY: floorDiv(c.Y, ChunkSize),
		CZ: floorDiv(c.Z, ChunkSize),
	}
}

func (c Coord) ToArray() [3]int { return [3]int{c.X, c.Y, c.Z} }

func (c Coord) String() string {
	return fmt.Sprintf("%s:%d,%d,%d", c.World, c.X, c.Y, c.Z)
}

// Less orders coordinates by world, then X, Y, Z.
func (c Coord) Less(o Coord) bool {
	if c.World != o.World {
		return c.World < o.World
	}
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// ParseCoord parses "x,y,z" into a coordinate of the given world.
func ParseCoord(world, s string) (Coord, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return Coord{}, fmt.Errorf("coord %q: want x,y,z", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Coord{}, fmt.Errorf("coord %q: %w", s, err)
		}
		v[i] = n
	}
	return Coord{World: world, X: v[0], Y: v[1], Z: v[2]}, nil
}

// Direction is one of the six axis-aligned unit steps.
type Direction uint8

const (
	East Direction = iota
	West
	Up
	Down
	South
	North
)

// AllDirections is the fixed enumeration order used for every expansion.
var AllDirections = []Direction{East, West, Up, Down, South, North}

// LateralDirections excludes the vertical axis.
var LateralDirections = []Direction{East, West, South, North}

var dirOffsets = [6][3]int{
	East:  {1, 0, 0},
	West:  {-1, 0, 0},
	Up:    {0, 1, 0},
	Down:  {0, -1, 0},
	South: {0, 0, 1},
	North: {0, 0, -1},
}

var dirNames = [6]string{
	East:  "EAST",
	West:  "WEST",
	Up:    "UP",
	Down:  "DOWN",
	South: "SOUTH",
	North: "NORTH",
}

func (d Direction) Valid() bool { return d <= North }

func (d Direction) Offset() [3]int {
	if !d.Valid() {
		return [3]int{}
	}
	return dirOffsets[d]
}

func (d Direction) Opposite() Direction {
	switch d {
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	case South:
		return North
	default:
		return South
	}
}

func (d Direction) Vertical() bool { return d == Up || d == Down }

func (d Direction) String() string {
	if !d.Valid() {
		return "?"
	}
	return dirNames[d]
}

func ParseDirection(s string) (Direction, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range dirNames {
		if n == u {
			return Direction(i), nil
		}
	}
	switch u {
	case "+X":
		return East, nil
	case "-X":
		return West, nil
	case "+Y":
		return Up, nil
	case "-Y":
		return Down, nil
	case "+Z":
		return South, nil
	case "-Z":
		return North, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
