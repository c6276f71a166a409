package tile

import (
	"math/rand"
	"testing"
)

func TestNewSetComposition(t *testing.T) {
	tiles := NewSet()
	if len(tiles) != SetSize {
		t.Fatalf("set size = %d, want %d", len(tiles), SetSize)
	}

	seen := map[int]bool{}
	type cn struct {
		c Color
		n int
	}
	counts := map[cn]int{}
	fakes := 0
	for _, tl := range tiles {
		if seen[tl.ID] {
			t.Fatalf("duplicate id %d", tl.ID)
		}
		seen[tl.ID] = true
		if tl.FakePrint {
			fakes++
			continue
		}
		if tl.Number < 1 || tl.Number > 13 {
			t.Fatalf("tile %v has number out of range", tl)
		}
		counts[cn{tl.Color, tl.Number}]++
	}
	if fakes != 2 {
		t.Fatalf("fake prints = %d, want 2", fakes)
	}
	if len(counts) != 52 {
		t.Fatalf("distinct color-number pairs = %d, want 52", len(counts))
	}
	for k, v := range counts {
		if v != 2 {
			t.Fatalf("pair %v-%d appears %d times, want 2", k.c, k.n, v)
		}
	}
}

func TestShuffleDeterministic(t *testing.T) {
	a := NewSet()
	b := NewSet()
	Shuffle(a, rand.New(rand.NewSource(42)))
	Shuffle(b, rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("shuffle not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestListRemove(t *testing.T) {
	l := List{{ID: 1, Number: 3, Color: Red}, {ID: 2, Number: 4, Color: Red}}
	out, removed, ok := l.Remove(2)
	if !ok || removed.ID != 2 || len(out) != 1 {
		t.Fatalf("remove failed: %v %v %v", out, removed, ok)
	}
	if _, _, ok := out.Remove(99); ok {
		t.Fatal("remove of missing id should miss")
	}
}
