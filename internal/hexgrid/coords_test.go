package hexgrid

import "testing"

func TestNeighborsAreSixDistinctAdjacentCoords(t *testing.T) {
	c := Coord{Q: 2, R: -1}
	ns := Neighbors(c)

	seen := make(map[Coord]bool, 6)
	for _, n := range ns {
		if Distance(c, n) != 1 {
			t.Fatalf("neighbor %v is not distance 1 from %v", n, c)
		}
		if seen[n] {
			t.Fatalf("duplicate neighbor %v", n)
		}
		seen[n] = true
	}
}

func TestOppositeIndexIsInvolution(t *testing.T) {
	for i := 0; i < 6; i++ {
		opp := OppositeIndex(i)
		if OppositeIndex(opp) != i {
			t.Fatalf("OppositeIndex(OppositeIndex(%d)) = %d, want %d", i, OppositeIndex(opp), i)
		}
		if opp == i {
			t.Fatalf("direction %d should not be its own opposite", i)
		}
	}
}

func TestDirectionsSumToOrigin(t *testing.T) {
	// the six directions form a closed hexagon, so they must cancel out
	var sum Coord
	for _, d := range Directions() {
		sum = Add(sum, d)
	}
	if sum != (Coord{0, 0}) {
		t.Fatalf("directions do not sum to origin: %v", sum)
	}
}

func TestDistanceToSelfIsZero(t *testing.T) {
	c := Coord{Q: 5, R: -3}
	if Distance(c, c) != 0 {
		t.Fatalf("Distance(c, c) = %d, want 0", Distance(c, c))
	}
}

func TestKeyFormat(t *testing.T) {
	c := Coord{Q: -3, R: 7}
	if got := c.Key(); got != "-3:7" {
		t.Fatalf("Key() = %q, want %q", got, "-3:7")
	}
}
