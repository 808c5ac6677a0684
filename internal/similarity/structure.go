package similarity

// StructuralUnit is one function or class definition: its canonicalized
// name, its kind, the brace-nesting depth it was declared at, and the
// multiset of control-construct keywords in its body.
type StructuralUnit struct {
	Name       string         `json:"name" bson:"name"`
	Kind       string         `json:"kind" bson:"kind"` // "function" or "class"
	Depth      int            `json:"depth" bson:"depth"`
	Constructs map[string]int `json:"constructs" bson:"constructs"`
}

// StructuralProfile is the ordered unit sequence of one document plus its
// whole-document control-construct totals.
type StructuralProfile struct {
	Units  []StructuralUnit `json:"units" bson:"units"`
	Totals map[string]int   `json:"totals" bson:"totals"`
}

// ProfileStructure scans the token stream for function and class signature
// patterns and counts control constructs. A function signature is an
// identifier followed by a balanced parameter list and an opening brace; a
// class is the class/struct keyword followed by an identifier. Constructs
// inside a body are attributed to the innermost enclosing unit; the totals
// count every occurrence regardless of enclosure.
func ProfileStructure(tokens []Token, controlKeywords []string) StructuralProfile {
	controls := make(map[string]struct{}, len(controlKeywords))
	for _, kw := range controlKeywords {
		controls[kw] = struct{}{}
	}

	profile := StructuralProfile{Totals: make(map[string]int)}

	// Frames index into profile.Units: the slice reallocates as units are
	// appended, so a pointer would go stale.
	type frame struct {
		unit  int
		depth int
	}
	var open []frame
	var pending *StructuralUnit
	depth := 0

	for i, tok := range tokens {
		switch {
		case tok.Text == "{":
			depth++
			if pending != nil {
				profile.Units = append(profile.Units, *pending)
				open = append(open, frame{
					unit:  len(profile.Units) - 1,
					depth: depth,
				})
				pending = nil
			}

		case tok.Text == "}":
			if len(open) > 0 && open[len(open)-1].depth == depth {
				open = open[:len(open)-1]
			}
			depth--

		case tok.Text == ";":
			// Declaration without a body.
			pending = nil

		case tok.Kind == KindKeyword && (tok.Text == "class" || tok.Text == "struct"):
			if i+1 < len(tokens) && tokens[i+1].Kind == KindIdentifier {
				pending = &StructuralUnit{
					Name:       tokens[i+1].Text,
					Kind:       "class",
					Depth:      len(open),
					Constructs: make(map[string]int),
				}
			}

		case tok.Kind == KindKeyword:
			if _, ok := controls[tok.Text]; ok {
				profile.Totals[tok.Text]++
				if len(open) > 0 {
					profile.Units[open[len(open)-1].unit].Constructs[tok.Text]++
				}
			}

		case tok.Kind == KindIdentifier && pending == nil:
			if isFunctionSignature(tokens, i) {
				pending = &StructuralUnit{
					Name:       tok.Text,
					Kind:       "function",
					Depth:      len(open),
					Constructs: make(map[string]int),
				}
			}
		}
	}

	return profile
}

// isFunctionSignature reports whether the identifier at index i starts a
// parameter list whose matching close paren is immediately followed by an
// opening brace.
func isFunctionSignature(tokens []Token, i int) bool {
	if i+1 >= len(tokens) || tokens[i+1].Text != "(" {
		return false
	}
	parens := 0
	for j := i + 1; j < len(tokens); j++ {
		switch tokens[j].Text {
		case "(":
			parens++
		case ")":
			parens--
			if parens == 0 {
				return j+1 < len(tokens) && tokens[j+1].Text == "{"
			}
		case "{", "}", ";":
			return false
		}
	}
	return false
}

// structureSignal scores two profiles by treating the whole-document
// control-construct totals as multisets: summed min-count overlap over
// summed max-count union. Two documents with no constructs at all are
// trivially identical in shape.
func structureSignal(a, b StructuralProfile) float64 {
	kinds := make(map[string]struct{}, len(a.Totals)+len(b.Totals))
	for kind := range a.Totals {
		kinds[kind] = struct{}{}
	}
	for kind := range b.Totals {
		kinds[kind] = struct{}{}
	}

	overlap, union := 0, 0
	for kind := range kinds {
		ca, cb := a.Totals[kind], b.Totals[kind]
		overlap += min(ca, cb)
		union += max(ca, cb)
	}
	if union == 0 {
		return 1.0
	}
	return float64(overlap) / float64(union)
}

// differingUnits lists the units of each profile that have no
// shape-equivalent counterpart in the other. Units are matched greedily by
// kind and construct counts; names are excluded since placeholder numbering
// is independent across documents.
func differingUnits(a, b StructuralProfile) (onlyA, onlyB []StructuralUnit) {
	used := make([]bool, len(b.Units))
	for _, ua := range a.Units {
		matched := false
		for j, ub := range b.Units {
			if !used[j] && sameShape(ua, ub) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			onlyA = append(onlyA, ua)
		}
	}
	for j, ub := range b.Units {
		if !used[j] {
			onlyB = append(onlyB, ub)
		}
	}
	return onlyA, onlyB
}

func sameShape(a, b StructuralUnit) bool {
	if a.Kind != b.Kind || len(a.Constructs) != len(b.Constructs) {
		return false
	}
	for kind, count := range a.Constructs {
		if b.Constructs[kind] != count {
			return false
		}
	}
	return true
}
