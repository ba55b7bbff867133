package routes

import (
	"factorycraft.ai/internal/sim/grid"
)

func (st *build) pipeRule(from, rel grid.Coord) []op {
	rt := st.traits(rel)
	switch rt.Class {
	case grid.ClassActuator:
		target, _, ok := st.faced(rel)
		if !ok || target == from {
			return nil
		}
		return []op{outputOp(Output{Variant: PipeOutput, Via: rel, Target: target, Context: DefaultContext})}

	case grid.ClassConduit:
		if rt.Tint != "" {
			fromKind := st.b.Grid.CellKind(from)
			ft := st.b.Palette.Traits(fromKind)
			sameKind := fromKind == st.b.Grid.CellKind(rel)
			if !sameKind && !ft.PlainConduit() && ft.Class != grid.ClassStickyActuator {
				return nil
			}
		}
		return []op{admitOp(rel), expandOp(rel, from, grid.AllDirections)}
	}
	return nil
}

func (st *build) signalRule(from, rel grid.Coord) []op {
	s := st.strengthAt(from)
	rt := st.traits(rel)

	if rt.Class == grid.ClassAmplifier {
		in, ok := st.input(rel)
		if !ok || in != from {
			return nil
		}
		ops := []op{admitOp(rel)}
		faced, facing, _ := st.faced(rel)
		if st.class(faced) == grid.ClassStickyActuator {
			return append(ops, outputOp(Output{Variant: SignalOutput, Via: rel, Target: faced, Context: ContextSourceToSink}))
		}
		cont, into := st.expandInto(faced, rel, MaxStrength)
		ops = append(ops, into...)
		if !cont && st.traits(faced).SolidOccluding() {
			ops = append(ops, strengthOp(rel, MaxStrength), expandOnlyOp(rel, facing))
		}
		return ops
	}

	if rt.Class == grid.ClassComparator {
		if in, ok := st.input(rel); ok && in == from {
			faced, _, _ := st.faced(rel)
			if faced == from {
				return nil
			}
			ops := []op{
				admitOp(rel),
				outputOp(Output{Variant: SignalOutput, Via: rel, Target: faced, Context: ContextSinkToSource}),
			}
			_, into := st.expandInto(faced, rel, MaxStrength)
			return append(ops, into...)
		}
	}

	if s <= 1 {
		return nil
	}
	if rt.Class == grid.ClassWire {
		return []op{admitOp(rel), strengthOp(rel, s-1), expandOp(rel, from, grid.LateralDirections)}
	}

	var ops []op
	ft := st.traits(from)
	fromWire := ft.Class == grid.ClassWire
	fromAmp := ft.Class == grid.ClassAmplifier

	if fromAmp && rt.SolidOccluding() {
		ops = append(ops, admitOp(rel))
		for _, d := range grid.LateralDirections {
			side := rel.Step(d)
			if side == from {
				continue
			}
			_, into := st.expandInto(side, rel, MaxStrength)
			ops = append(ops, into...)
		}
	}

	up, down := rel.Up(), rel.Down()
	insulator := st.traits(from.Up())
	ampFacesRel := false
	if fromAmp {
		if f, _, ok := st.faced(from); ok && f == rel {
			ampFacesRel = true
		}
	}

	if st.class(up) == grid.ClassWire &&
		(fromWire && !insulator.Solid && !insulator.Occluding || fromAmp && ampFacesRel) {
		next := s - 1
		if fromAmp {
			next = MaxStrength
		}
		_, into := st.expandInto(up, from, next)
		ops = append(ops, into...)
	}

	downClass := st.class(down)
	downAmpFed := false
	if downClass == grid.ClassAmplifier {
		if in, ok := st.input(down); ok && in == from.Down() {
			downAmpFed = true
		}
	}
	switch {
	case fromWire && (downClass == grid.ClassWire && !rt.Solid && !rt.Occluding || downAmpFed):
		_, into := st.expandInto(down, from, s-1)
		ops = append(ops, into...)
	case fromAmp && rt.SolidOccluding() && downClass == grid.ClassWire:
		ops = append(ops, admitOp(down), strengthOp(down, s-1), expandOp(down, from, grid.LateralDirections))
	}
	return ops
}

// expandInto admits b and continues the walk through it when b is a wire or
// an amplifier fed by from. It reports whether the walk continued.
func (st *build) expandInto(b, from grid.Coord, s int) (bool, []op) {
	ops := []op{admitOp(b)}
	switch st.class(b) {
	case grid.ClassWire:
		return true, append(ops, strengthOp(b, s), expandOp(b, from, grid.LateralDirections))
	case grid.ClassAmplifier:
		in, ok := st.input(b)
		if !ok || in != from {
			return false, ops
		}
		_, facing, _ := st.faced(b)
		return true, append(ops, strengthOp(b, MaxStrength), expandOnlyOp(b, facing))
	}
	return false, ops
}
