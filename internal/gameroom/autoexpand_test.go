package gameroom

import (
	"testing"

	"hexterritory/internal/data"
	"hexterritory/internal/hexgrid"
)

func TestNeighborMajorityPicksStrictWinner(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		ns[0]: {PlayerID: "alice"},
		ns[1]: {PlayerID: "alice"},
		ns[2]: {PlayerID: "alice"},
		ns[3]: {PlayerID: "bob"},
	}

	player, count, strict := neighborMajority(all, c)
	if player != "alice" || count != 3 || !strict {
		t.Fatalf("neighborMajority = (%q, %d, %v), want (alice, 3, true)", player, count, strict)
	}
}

func TestNeighborMajorityTiedIsNotStrict(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		ns[0]: {PlayerID: "alice"},
		ns[1]: {PlayerID: "alice"},
		ns[2]: {PlayerID: "bob"},
		ns[3]: {PlayerID: "bob"},
	}

	_, count, strict := neighborMajority(all, c)
	if strict {
		t.Fatalf("a 2-2 tie must not be reported as strict (count=%d)", count)
	}
}

func TestNeighborMajorityTwoNeighborsDoesNotTrigger(t *testing.T) {
	// Auto-expansion with exactly two same-owner neighbors does nothing;
	// neighborMajority still reports the count accurately and leaves the
	// threshold decision to the caller.
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		ns[0]: {PlayerID: "alice"},
		ns[1]: {PlayerID: "alice"},
	}

	player, count, strict := neighborMajority(all, c)
	if player != "alice" || count != 2 || !strict {
		t.Fatalf("neighborMajority = (%q, %d, %v), want (alice, 2, true)", player, count, strict)
	}
	if count >= 3 {
		t.Fatal("this scenario should be below any reasonable auto-capture threshold")
	}
}

func TestNeighborMajorityIgnoresUnownedNeighbors(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		ns[0]: {PlayerID: "alice"},
		ns[1]: {PlayerID: ""},
	}

	player, count, _ := neighborMajority(all, c)
	if player != "alice" || count != 1 {
		t.Fatalf("neighborMajority = (%q, %d), want (alice, 1)", player, count)
	}
}

func TestAllNeighborsOwnedByRequiresEverySlotFilled(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)

	all := make(map[hexgrid.Coord]data.Hex, 6)
	for _, n := range ns {
		all[n] = data.Hex{PlayerID: "alice"}
	}
	if !allNeighborsOwnedBy(all, c, "alice") {
		t.Fatal("all six neighbors owned by alice should satisfy allNeighborsOwnedBy")
	}

	delete(all, ns[0])
	if allNeighborsOwnedBy(all, c, "alice") {
		t.Fatal("a missing neighbor must fail allNeighborsOwnedBy")
	}
}

func TestAllNeighborsOwnedByRejectsMixedOwnership(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)

	all := make(map[hexgrid.Coord]data.Hex, 6)
	for i, n := range ns {
		if i == 0 {
			all[n] = data.Hex{PlayerID: "bob"}
		} else {
			all[n] = data.Hex{PlayerID: "alice"}
		}
	}
	if allNeighborsOwnedBy(all, c, "alice") {
		t.Fatal("one neighbor owned by a different player must fail allNeighborsOwnedBy")
	}
}

func TestFortProtectedByTargetItself(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	all := map[hexgrid.Coord]data.Hex{
		c: {PlayerID: "bob", Upgrade: "fort"},
	}
	if !fortProtected(all, c, "alice") {
		t.Fatal("a fort on the target tile itself should protect it from a different new owner")
	}
}

func TestFortProtectedByNeighboringFort(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		ns[0]: {PlayerID: "bob", Upgrade: "fort"},
	}
	if !fortProtected(all, c, "alice") {
		t.Fatal("a neighboring fort owned by someone else should protect the target")
	}
}

func TestFortProtectedDoesNotApplyToTheFortOwnersOwnCapture(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	all := map[hexgrid.Coord]data.Hex{
		c: {PlayerID: "alice", Upgrade: "fort"},
	}
	if fortProtected(all, c, "alice") {
		t.Fatal("a fort should not block its own owner from claiming the tile")
	}
}

func TestFortProtectedFalseWithoutAnyFort(t *testing.T) {
	c := hexgrid.Coord{Q: 0, R: 0}
	ns := hexgrid.Neighbors(c)
	all := map[hexgrid.Coord]data.Hex{
		c:     {PlayerID: "bob"},
		ns[0]: {PlayerID: "bob"},
	}
	if fortProtected(all, c, "alice") {
		t.Fatal("no fort anywhere near the target should never be reported as protected")
	}
}
