package hexgrid

import "testing"

func testParams() TerrainParams {
	return TerrainParams{
		MountainChainsMin:    3,
		MountainChainsMax:    5,
		MountainChainLength:  9,
		MountainChainSpacing: 12,
		MountainAreaSize:     120,
		MountainDensity:      0.15,
		MountainZigzagChance: 0.2,
		RiverCount:           4,
		RiverLength:          20,
		RiverMinSpacing:      15,
		RiverForkChance:      0.35,
		RiverForkLength:      8,
	}
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	p := testParams()
	a := Generate(42, p)
	b := Generate(42, p)

	if len(a) != len(b) {
		t.Fatalf("len(a)=%d, len(b)=%d for same seed", len(a), len(b))
	}
	for c, terrain := range a {
		if b[c] != terrain {
			t.Fatalf("terrain at %v differs: %q vs %q", c, terrain, b[c])
		}
	}
}

func TestGenerateDiffersAcrossSeeds(t *testing.T) {
	p := testParams()
	a := Generate(1, p)
	b := Generate(2, p)

	identical := len(a) == len(b)
	if identical {
		for c, terrain := range a {
			if b[c] != terrain {
				identical = false
				break
			}
		}
	}
	if identical {
		t.Fatalf("different seeds produced identical terrain maps")
	}
}

func TestGenerateOnlyEmitsKnownTerrainKinds(t *testing.T) {
	out := Generate(7, testParams())
	for c, terrain := range out {
		if terrain != TerrainMountain && terrain != TerrainRiver {
			t.Fatalf("unexpected terrain %q at %v", terrain, c)
		}
	}
}

func TestGenerateProducesNonEmptyMap(t *testing.T) {
	if out := Generate(99, testParams()); len(out) == 0 {
		t.Fatal("expected terrain generation to produce at least one tile")
	}
}
