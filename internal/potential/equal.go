package potential

import "math"

// Equal reports whether a and b describe the same force field: the same
// instance, or the same class, unit system and parameters. Composites are
// compared component by component, in order.
func Equal(a, b Potential) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Name() != b.Name() || !a.Units().Equal(b.Units()) {
		return false
	}

	switch ca := a.(type) {
	case *Composite:
		cb, ok := b.(*Composite)
		if !ok || len(ca.components) != len(cb.components) {
			return false
		}
		for i := range ca.components {
			if ca.components[i].Name != cb.components[i].Name ||
				!Equal(ca.components[i].Potential, cb.components[i].Potential) {
				return false
			}
		}
		return true
	case Offset:
		ob, ok := b.(Offset)
		return ok && ca.Origin == ob.Origin && Equal(ca.Potential, ob.Potential)
	}

	pa, pb := a.Parameters(), b.Parameters()
	if len(pa) != len(pb) {
		return false
	}
	for k, va := range pa {
		vb, ok := pb[k]
		if !ok || !closeEnough(va, vb) {
			return false
		}
	}
	return true
}

func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(math.Abs(a), math.Abs(b))
}
