package evolution

// Flatten lays a result out as generations, base forms first. The root sits
// at the index equal to the depth of its deepest reverse branch, followed by
// its forward evolutions. Empty generations are dropped.
func Flatten(r *Result) [][]SpeciesRef {
	if r == nil {
		return nil
	}

	rootLevel := MaxPathDepth(r.Reverse)
	levels := make([][]SpeciesRef, rootLevel+MaxPathDepth(r.Forward)+1)

	var addReverse func(nodes []Node, level int)
	addReverse = func(nodes []Node, level int) {
		for _, n := range nodes {
			if len(n.Children) > 0 {
				addReverse(n.Children, level-1)
			}
			levels[level] = append(levels[level], n.Species)
		}
	}

	var addForward func(nodes []Node, level int)
	addForward = func(nodes []Node, level int) {
		for _, n := range nodes {
			levels[level] = append(levels[level], n.Species)
			if len(n.Children) > 0 {
				addForward(n.Children, level+1)
			}
		}
	}

	addReverse(r.Reverse, rootLevel-1)
	levels[rootLevel] = append(levels[rootLevel], r.Species)
	addForward(r.Forward, rootLevel+1)

	out := make([][]SpeciesRef, 0, len(levels))
	for _, l := range levels {
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}
