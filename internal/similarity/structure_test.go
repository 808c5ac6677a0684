package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileOf(t *testing.T, src string) StructuralProfile {
	t.Helper()
	cfg := DefaultConfig()
	normalized := Normalize(src, testKeywords())
	return ProfileStructure(Tokenize(normalized, testKeywords()), cfg.ControlKeywords)
}

func TestProfileStructure_Function(t *testing.T) {
	profile := profileOf(t, `
int main() {
	if (x > 0) { y = 1; }
	while (z) { z = z - 1; }
	return 0;
}`)

	require.Len(t, profile.Units, 1)
	unit := profile.Units[0]
	assert.Equal(t, "function", unit.Kind)
	assert.Equal(t, 0, unit.Depth)
	assert.Equal(t, map[string]int{"if": 1, "while": 1}, unit.Constructs)
	assert.Equal(t, map[string]int{"if": 1, "while": 1}, profile.Totals)
}

func TestProfileStructure_ClassWithMethod(t *testing.T) {
	profile := profileOf(t, `
class Counter {
	void bump() {
		if (ready) { total = total + 1; }
	}
};`)

	require.Len(t, profile.Units, 2)
	assert.Equal(t, "class", profile.Units[0].Kind)
	assert.Equal(t, 0, profile.Units[0].Depth)
	assert.Equal(t, "function", profile.Units[1].Kind)
	assert.Equal(t, 1, profile.Units[1].Depth)
	assert.Equal(t, map[string]int{"if": 1}, profile.Units[1].Constructs)
	assert.Equal(t, map[string]int{"if": 1}, profile.Totals)
}

func TestProfileStructure_DeclarationIsNotAUnit(t *testing.T) {
	profile := profileOf(t, "void f();\nint g(int a);")
	assert.Empty(t, profile.Units)
	assert.Empty(t, profile.Totals)
}

func TestProfileStructure_NestedConstructsGoToInnermostUnit(t *testing.T) {
	profile := profileOf(t, `
int outer() {
	for (i = 0; i < n; i = i + 1) {
		if (a) { b = 1; }
	}
	return b;
}`)

	require.Len(t, profile.Units, 1)
	assert.Equal(t, map[string]int{"for": 1, "if": 1}, profile.Units[0].Constructs)
}

func TestStructureSignal(t *testing.T) {
	t.Run("identical totals score one", func(t *testing.T) {
		a := StructuralProfile{Totals: map[string]int{"if": 2, "for": 1}}
		b := StructuralProfile{Totals: map[string]int{"if": 2, "for": 1}}
		assert.Equal(t, 1.0, structureSignal(a, b))
	})

	t.Run("partial overlap", func(t *testing.T) {
		a := StructuralProfile{Totals: map[string]int{"if": 2, "for": 1}}
		b := StructuralProfile{Totals: map[string]int{"if": 1, "for": 1, "while": 1}}
		// overlap = 1 + 1, union = 2 + 1 + 1.
		assert.InDelta(t, 0.5, structureSignal(a, b), 1e-12)
	})

	t.Run("disjoint constructs score zero", func(t *testing.T) {
		a := StructuralProfile{Totals: map[string]int{"if": 3}}
		b := StructuralProfile{Totals: map[string]int{"while": 3}}
		assert.Equal(t, 0.0, structureSignal(a, b))
	})

	t.Run("both without constructs score one", func(t *testing.T) {
		a := StructuralProfile{Totals: map[string]int{}}
		b := StructuralProfile{Totals: map[string]int{}}
		assert.Equal(t, 1.0, structureSignal(a, b))
	})

	t.Run("one without constructs scores zero", func(t *testing.T) {
		a := StructuralProfile{Totals: map[string]int{"if": 1}}
		b := StructuralProfile{Totals: map[string]int{}}
		assert.Equal(t, 0.0, structureSignal(a, b))
	})
}

func TestDifferingUnits(t *testing.T) {
	unit := func(kind string, constructs map[string]int) StructuralUnit {
		return StructuralUnit{Kind: kind, Constructs: constructs}
	}

	t.Run("shape match ignores names", func(t *testing.T) {
		a := StructuralProfile{Units: []StructuralUnit{
			{Name: "VAR_0", Kind: "function", Constructs: map[string]int{"if": 1}},
		}}
		b := StructuralProfile{Units: []StructuralUnit{
			{Name: "VAR_7", Kind: "function", Constructs: map[string]int{"if": 1}},
		}}
		onlyA, onlyB := differingUnits(a, b)
		assert.Empty(t, onlyA)
		assert.Empty(t, onlyB)
	})

	t.Run("unmatched units reported on both sides", func(t *testing.T) {
		a := StructuralProfile{Units: []StructuralUnit{
			unit("function", map[string]int{"if": 1}),
			unit("function", map[string]int{"while": 2}),
		}}
		b := StructuralProfile{Units: []StructuralUnit{
			unit("function", map[string]int{"if": 1}),
			unit("class", map[string]int{}),
		}}
		onlyA, onlyB := differingUnits(a, b)
		require.Len(t, onlyA, 1)
		require.Len(t, onlyB, 1)
		assert.Equal(t, map[string]int{"while": 2}, onlyA[0].Constructs)
		assert.Equal(t, "class", onlyB[0].Kind)
	})

	t.Run("counts are multiset matched", func(t *testing.T) {
		a := StructuralProfile{Units: []StructuralUnit{
			unit("function", map[string]int{"if": 1}),
			unit("function", map[string]int{"if": 1}),
		}}
		b := StructuralProfile{Units: []StructuralUnit{
			unit("function", map[string]int{"if": 1}),
		}}
		onlyA, onlyB := differingUnits(a, b)
		assert.Len(t, onlyA, 1)
		assert.Empty(t, onlyB)
	})
}
