package data

import (
	"testing"

	"hexterritory/internal/hexgrid"
)

func TestParseHexFieldRoundTripsCoordKey(t *testing.T) {
	c := hexgrid.Coord{Q: -4, R: 11}
	got, ok := parseHexField(c.Key())
	if !ok {
		t.Fatalf("parseHexField(%q) failed to parse", c.Key())
	}
	if got != c {
		t.Fatalf("parseHexField(%q) = %v, want %v", c.Key(), got, c)
	}
}

func TestParseHexFieldRejectsGarbage(t *testing.T) {
	for _, field := range []string{"", "abc", "1", "1:", ":1"} {
		if _, ok := parseHexField(field); ok {
			t.Fatalf("parseHexField(%q) should have failed", field)
		}
	}
}

func TestIsHexPassableNilIsPassable(t *testing.T) {
	if !IsHexPassable(nil) {
		t.Fatal("an unwritten hex must be passable")
	}
}

func TestIsHexPassableMountainIsImpassable(t *testing.T) {
	h := &Hex{Terrain: string(hexgrid.TerrainMountain)}
	if IsHexPassable(h) {
		t.Fatal("a mountain hex must not be passable")
	}
}

func TestIsHexPassableNonMountainIsPassable(t *testing.T) {
	for _, terrain := range []string{"", string(hexgrid.TerrainRiver)} {
		h := &Hex{Terrain: terrain}
		if !IsHexPassable(h) {
			t.Fatalf("terrain %q should be passable", terrain)
		}
	}
}

func TestTilesOfCountsOnlyMatchingOwner(t *testing.T) {
	all := map[hexgrid.Coord]Hex{
		{Q: 0, R: 0}: {PlayerID: "alice"},
		{Q: 1, R: 0}: {PlayerID: "alice"},
		{Q: 2, R: 0}: {PlayerID: "bob"},
		{Q: 3, R: 0}: {PlayerID: ""},
	}
	if got := TilesOf(all, "alice"); got != 2 {
		t.Fatalf("TilesOf(alice) = %d, want 2", got)
	}
	if got := TilesOf(all, "bob"); got != 1 {
		t.Fatalf("TilesOf(bob) = %d, want 1", got)
	}
	if got := TilesOf(all, "carol"); got != 0 {
		t.Fatalf("TilesOf(carol) = %d, want 0", got)
	}
}

func TestUpgradeCountsTalliesLowercasePluralKeys(t *testing.T) {
	all := map[hexgrid.Coord]Hex{
		{Q: 0, R: 0}: {PlayerID: "alice", Upgrade: "bank"},
		{Q: 1, R: 0}: {PlayerID: "alice", Upgrade: "bank"},
		{Q: 2, R: 0}: {PlayerID: "alice", Upgrade: "fort"},
		{Q: 3, R: 0}: {PlayerID: "alice", Upgrade: "city"},
		{Q: 4, R: 0}: {PlayerID: "alice", Upgrade: ""},
		{Q: 5, R: 0}: {PlayerID: "bob", Upgrade: "bank"},
	}
	counts := UpgradeCounts(all, "alice")
	if counts["banks"] != 2 || counts["forts"] != 1 || counts["cities"] != 1 {
		t.Fatalf("counts = %v, want banks=2 forts=1 cities=1", counts)
	}
}

func TestUpgradeCountsEmptyForPlayerWithNoUpgrades(t *testing.T) {
	all := map[hexgrid.Coord]Hex{
		{Q: 0, R: 0}: {PlayerID: "alice"},
	}
	counts := UpgradeCounts(all, "alice")
	if counts["banks"] != 0 || counts["forts"] != 0 || counts["cities"] != 0 {
		t.Fatalf("counts = %v, want all zero", counts)
	}
}
