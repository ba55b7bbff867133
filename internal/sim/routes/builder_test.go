package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/sim/grid"
)

func TestPipeNetworkEndsAtActuator(t *testing.T) {
	f := newFixture(t)
	f.set("STONE", 0, 0, 0)
	f.set("CONDUIT", 0, 0, 1)
	f.set("CONDUIT", 0, 0, 2)
	f.setFacing("ACTUATOR", grid.South, 0, 0, 3)

	r := f.builder.Build(Pipe, at(0, 0, 1), nil)

	assert.Equal(t, []grid.Coord{at(0, 0, 1), at(0, 0, 2)}, r.Locations())
	outs := r.Outputs(DefaultContext)
	require.Len(t, outs, 1)
	assert.Equal(t, PipeOutput, outs[0].Variant)
	assert.Equal(t, at(0, 0, 3), outs[0].Via)
	assert.Equal(t, at(0, 0, 4), outs[0].Target)
	assert.False(t, r.Contains(at(0, 0, 3)))
}

func TestPipeActuatorFacingBackIsDeadEnd(t *testing.T) {
	f := newFixture(t)
	f.set("CONDUIT", 0, 0, 1)
	f.setFacing("ACTUATOR", grid.North, 0, 0, 2)

	r := f.builder.Build(Pipe, at(0, 0, 1), nil)
	assert.Empty(t, r.Outputs(DefaultContext))
	assert.Equal(t, 1, r.Len())
}

func TestPipeActuatorWithoutFacingIsDeadEnd(t *testing.T) {
	f := newFixture(t)
	f.set("CONDUIT", 0, 0, 1)
	f.set("ACTUATOR", 0, 0, 2)

	r := f.builder.Build(Pipe, at(0, 0, 1), nil)
	assert.Empty(t, r.Outputs(DefaultContext))
}

func TestPipeTintedConduitRules(t *testing.T) {
	f := newFixture(t)
	// plain -> red -> red -> blue
	f.set("CONDUIT", 0, 0, 0)
	f.set("CONDUIT_RED", 1, 0, 0)
	f.set("CONDUIT_RED", 2, 0, 0)
	f.set("CONDUIT_BLUE", 3, 0, 0)

	r := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.True(t, r.Contains(at(1, 0, 0)), "red entered from plain")
	assert.True(t, r.Contains(at(2, 0, 0)), "red entered from red")
	assert.False(t, r.Contains(at(3, 0, 0)), "blue entered from red")
}

func TestPipeTintedConduitFromStickyActuator(t *testing.T) {
	f := newFixture(t)
	f.setFacing("STICKY_ACTUATOR", grid.East, 0, 0, 0)
	f.set("CONDUIT_BLUE", 1, 0, 0)
	f.set("CONDUIT_BLUE", 2, 0, 0)

	r := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.Equal(t, []grid.Coord{at(1, 0, 0), at(2, 0, 0)}, r.Locations())
}

func TestPipeCycleTerminates(t *testing.T) {
	f := newFixture(t)
	for _, c := range [][3]int{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}} {
		f.set("CONDUIT", c[0], c[1], c[2])
	}
	f.setFacing("ACTUATOR", grid.West, -1, 0, 0)

	r := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.Equal(t, 4, r.Len())
	require.Len(t, r.Outputs(DefaultContext), 1)
	assert.Equal(t, at(-2, 0, 0), r.Outputs(DefaultContext)[0].Target)
	assert.True(t, r.HasVisited(at(0, 0, 0), grid.West))
}

func TestBuildIsDeterministic(t *testing.T) {
	f := newFixture(t)
	for x := 0; x < 4; x++ {
		for z := 0; z < 4; z++ {
			if (x+z)%3 != 0 {
				f.set("CONDUIT", x, 0, z)
			}
		}
	}
	f.set("CONDUIT", 0, 0, 0)
	f.setFacing("ACTUATOR", grid.West, -1, 0, 0)
	f.setFacing("ACTUATOR", grid.East, 3, 0, 0)
	f.setFacing("ACTUATOR", grid.Up, 1, 1, 1)

	a := f.builder.Build(Pipe, at(0, 0, 0), nil)
	b := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.Equal(t, a.Locations(), b.Locations())
	assert.Equal(t, a.VisitedEdges(), b.VisitedEdges())
	assert.Equal(t, a.Outputs(DefaultContext), b.Outputs(DefaultContext))
	assert.Len(t, a.Outputs(DefaultContext), 3)
}

func TestBuildVisitsEachEdgeOnce(t *testing.T) {
	f := newFixture(t)
	f.line("CONDUIT", 0, 5, 0, 0)
	f.line("CONDUIT", 0, 5, 0, 1)

	r := f.builder.Build(Pipe, at(0, 0, 0), nil)
	seen := map[Edge]bool{}
	for _, e := range r.VisitedEdges() {
		require.False(t, seen[e], "edge %v visited twice", e)
		seen[e] = true
	}
	assert.Equal(t, 12, r.Len())
}

func TestBuildMaxNodesTruncates(t *testing.T) {
	f := newFixture(t)
	f.line("CONDUIT", 0, 50, 0, 0)
	f.builder.MaxNodes = 20

	r := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.True(t, r.Truncated())
	assert.Len(t, r.VisitedEdges(), 20)

	again := f.builder.Build(Pipe, at(0, 0, 0), nil)
	assert.Equal(t, r.Locations(), again.Locations())
}

func TestSignalDecayBoundary(t *testing.T) {
	f := newFixture(t)
	f.line("WIRE", 0, 20, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.True(t, r.Contains(at(15, 0, 0)), "15 hops reach the 16th cell")
	assert.False(t, r.Contains(at(16, 0, 0)))
	assert.Equal(t, 16, r.Len())

	s, ok := r.Strength(at(15, 0, 0))
	require.True(t, ok)
	assert.Equal(t, 1, s)
	s, _ = r.Strength(at(0, 0, 0))
	assert.Equal(t, MaxStrength, s)
}

func TestSignalAmplifierResetsStrength(t *testing.T) {
	f := newFixture(t)
	f.line("WIRE", 0, 20, 0, 0)
	f.setFacing("AMPLIFIER", grid.East, 10, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.True(t, r.Contains(at(20, 0, 0)))
	s, _ := r.Strength(at(11, 0, 0))
	assert.Equal(t, MaxStrength, s)
	s, _ = r.Strength(at(20, 0, 0))
	assert.Equal(t, 7, s)
}

func TestSignalAmplifierFacingBackIsDeadEnd(t *testing.T) {
	f := newFixture(t)
	f.set("WIRE", 0, 0, 0)
	f.setFacing("AMPLIFIER", grid.West, 1, 0, 0)
	f.set("WIRE", 2, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.Equal(t, []grid.Coord{at(0, 0, 0)}, r.Locations())
}

func TestSignalAmplifierIntoStickyActuatorIsOutput(t *testing.T) {
	f := newFixture(t)
	f.set("WIRE", 0, 0, 0)
	f.setFacing("AMPLIFIER", grid.East, 1, 0, 0)
	f.setFacing("STICKY_ACTUATOR", grid.East, 2, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	outs := r.Outputs(ContextSourceToSink)
	require.Len(t, outs, 1)
	assert.Equal(t, SignalOutput, outs[0].Variant)
	assert.Equal(t, at(2, 0, 0), outs[0].Target)
	assert.Equal(t, at(1, 0, 0), outs[0].Via)
	assert.True(t, r.Contains(at(1, 0, 0)))
	assert.False(t, r.Contains(at(2, 0, 0)))
	assert.Empty(t, r.Outputs(DefaultContext))
}

func TestSignalComparatorIsSinkToSourceOutput(t *testing.T) {
	f := newFixture(t)
	f.set("WIRE", 0, 0, 0)
	f.setFacing("COMPARATOR", grid.East, 1, 0, 0)
	f.set("STONE", 2, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	outs := r.Outputs(ContextSinkToSource)
	require.Len(t, outs, 1)
	assert.Equal(t, at(2, 0, 0), outs[0].Target)
	assert.Equal(t, []grid.Coord{at(0, 0, 0), at(1, 0, 0), at(2, 0, 0)}, r.Locations())
	assert.Equal(t, []int{ContextSinkToSource}, r.Contexts())
}

func TestSignalStepUpAndInsulation(t *testing.T) {
	f := newFixture(t)
	f.set("WIRE", 0, 0, 0)
	f.set("WIRE", 1, 1, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	require.True(t, r.Contains(at(1, 1, 0)))
	s, _ := r.Strength(at(1, 1, 0))
	assert.Equal(t, 15, s)

	f.set("STONE", 0, 1, 0)
	r = f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.False(t, r.Contains(at(1, 1, 0)), "solid block above the source wire insulates")
}

func TestSignalStepDown(t *testing.T) {
	f := newFixture(t)
	f.set("STONE", 0, 0, 0)
	f.set("WIRE", 0, 1, 0)
	f.set("WIRE", 1, 0, 0)

	r := f.builder.Build(Signal, at(0, 1, 0), nil)
	require.True(t, r.Contains(at(1, 0, 0)))
	s, _ := r.Strength(at(1, 0, 0))
	assert.Equal(t, 15, s)
}

func TestSignalAmplifierIntoSolidFansOut(t *testing.T) {
	f := newFixture(t)
	f.setFacing("AMPLIFIER", grid.East, 0, 0, 0)
	f.set("STONE", 1, 0, 0)
	f.set("WIRE", 1, 0, 1)
	f.set("WIRE", 1, 0, -1)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.True(t, r.Contains(at(1, 0, 0)))
	for _, c := range []grid.Coord{at(1, 0, 1), at(1, 0, -1)} {
		require.True(t, r.Contains(c), "%s", c)
		s, _ := r.Strength(c)
		assert.Equal(t, MaxStrength, s)
	}
	assert.Equal(t, []Edge{{From: at(0, 0, 0), Dir: grid.East}}, r.VisitedEdges()[:1])
}

func TestSignalStartOnAmplifierExpandsOnlyForward(t *testing.T) {
	f := newFixture(t)
	f.setFacing("AMPLIFIER", grid.East, 0, 0, 0)
	f.set("WIRE", -1, 0, 0)
	f.set("WIRE", 1, 0, 0)

	r := f.builder.Build(Signal, at(0, 0, 0), nil)
	assert.True(t, r.Contains(at(1, 0, 0)))
	assert.False(t, r.Contains(at(-1, 0, 0)))
}

func TestEmptyNeighborhoodYieldsEmptyRoute(t *testing.T) {
	f := newFixture(t)
	r := f.builder.Build(Pipe, at(5, 5, 5), nil)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Contexts())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("signal")
	require.NoError(t, err)
	assert.Equal(t, Signal, k)
	_, err = ParseKind("steam")
	assert.Error(t, err)
}
