package gameroom

import (
	"testing"

	"hexterritory/internal/data"
	"hexterritory/internal/economy"
	"hexterritory/internal/hexgrid"
)

func testCostParams() economy.Params {
	return economy.Params{
		HexValue:      10,
		ExpGrowth:     5,
		OccupiedBase:  5,
		AttackMult:    2.5,
		RiverDiscount: 0.7,
	}
}

func TestRiverAdjacentDetectsNeighboringRiver(t *testing.T) {
	target := hexgrid.Coord{Q: 0, R: 0}
	riverNeighbor := hexgrid.Neighbors(target)[0]

	all := map[hexgrid.Coord]data.Hex{
		riverNeighbor: {Terrain: string(hexgrid.TerrainRiver)},
	}
	if !riverAdjacent(all, target) {
		t.Fatal("expected target to be river-adjacent")
	}

	delete(all, riverNeighbor)
	if riverAdjacent(all, target) {
		t.Fatal("expected target not to be river-adjacent once the river tile is gone")
	}
}

func TestHasRiverAccessRequiresOwnedTileNextToRiver(t *testing.T) {
	owned := hexgrid.Coord{Q: 2, R: 2}
	riverNeighbor := hexgrid.Neighbors(owned)[0]

	all := map[hexgrid.Coord]data.Hex{
		owned:         {PlayerID: "alice"},
		riverNeighbor: {Terrain: string(hexgrid.TerrainRiver)},
	}
	if !hasRiverAccess(all, "alice") {
		t.Fatal("expected alice to have river access")
	}
	if hasRiverAccess(all, "bob") {
		t.Fatal("bob owns nothing, should have no river access")
	}
}

func TestIsAdjacentToOwnerChecksAllSixNeighbors(t *testing.T) {
	target := hexgrid.Coord{Q: 0, R: 0}
	for i, n := range hexgrid.Neighbors(target) {
		all := map[hexgrid.Coord]data.Hex{n: {PlayerID: "alice"}}
		if !isAdjacentToOwner(all, target, "alice") {
			t.Fatalf("neighbor index %d: expected adjacency", i)
		}
		if isAdjacentToOwner(all, target, "bob") {
			t.Fatalf("neighbor index %d: bob should not be adjacent", i)
		}
	}
}

func TestComputeCostUnoccupiedTarget(t *testing.T) {
	r := &Room{cfg: Config{Cost: testCostParams()}}
	target := hexgrid.Coord{Q: 5, R: 5}
	all := map[hexgrid.Coord]data.Hex{
		{Q: 0, R: 0}: {PlayerID: "alice"}, // attacker's lone start tile, not adjacent to target
	}

	cost := r.computeCost(all, "alice", target, 0)
	// ExpansionCost(attackerTiles=1) = 10 + floor(5*log2(3)) = 17
	if cost != 17 {
		t.Fatalf("cost = %d, want 17", cost)
	}
}

func TestComputeCostRiverDiscountAppliesWhenAttackerHasAccess(t *testing.T) {
	r := &Room{cfg: Config{Cost: testCostParams()}}
	target := hexgrid.Coord{Q: 5, R: 5}
	riverNeighbor := hexgrid.Neighbors(target)[0]
	ownedNextToRiver := hexgrid.Coord{Q: 1, R: 1}
	riverNeighborOfOwned := hexgrid.Neighbors(ownedNextToRiver)[0]

	all := map[hexgrid.Coord]data.Hex{
		riverNeighbor:        {Terrain: string(hexgrid.TerrainRiver)},
		ownedNextToRiver:     {PlayerID: "alice"},
		riverNeighborOfOwned: {Terrain: string(hexgrid.TerrainRiver)},
	}

	discounted := r.computeCost(all, "alice", target, 0)
	full := 17 // same attackerTiles=1 expansion baseline as above

	if discounted >= full {
		t.Fatalf("river-discounted cost %d should be less than undiscounted %d", discounted, full)
	}
}

func TestComputeCostDefenderStrengthAndFortDoubling(t *testing.T) {
	target := hexgrid.Coord{Q: 5, R: 5}
	all := map[hexgrid.Coord]data.Hex{
		{Q: 0, R: 0}: {PlayerID: "alice"},
		target:       {PlayerID: "bob"},
		{Q: 6, R: 5}: {PlayerID: "bob"},
		{Q: 7, R: 5}: {PlayerID: "bob"},
	}

	r := &Room{cfg: Config{Cost: testCostParams()}}
	noFort := r.computeCost(all, "alice", target, 200)
	if noFort != 137 {
		t.Fatalf("attack cost = %d, want 137", noFort)
	}

	fortified := all[target]
	fortified.Upgrade = "fort"
	all[target] = fortified

	withFort := r.computeCost(all, "alice", target, 200)
	if withFort != 185 {
		t.Fatalf("fort-doubled attack cost = %d, want 185", withFort)
	}
	if withFort <= noFort {
		t.Fatal("a fort-protected target must cost more to attack")
	}
}

func TestComputeCostDetectsFortOnNeighboringDefenderTile(t *testing.T) {
	target := hexgrid.Coord{Q: 5, R: 5}
	fortNeighbor := hexgrid.Neighbors(target)[0]

	all := map[hexgrid.Coord]data.Hex{
		{Q: 0, R: 0}: {PlayerID: "alice"},
		target:       {PlayerID: "bob"},
		fortNeighbor: {PlayerID: "bob", Upgrade: "fort"},
	}

	r := &Room{cfg: Config{Cost: testCostParams()}}
	withNeighborFort := r.computeCost(all, "alice", target, 200)
	// bob holds 2 tiles here: strength = (1+200/2)*2*10.5*2 = 4242,
	// 17 + 5 + floor(2.5*sqrt(4242)) = 17 + 5 + 162 = 184.
	if withNeighborFort != 184 {
		t.Fatalf("cost = %d, want 184 (fort doubling from an adjacent fort)", withNeighborFort)
	}
}
