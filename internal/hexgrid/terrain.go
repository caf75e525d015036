package hexgrid

import (
	"encoding/binary"
	"math/rand"

	"golang.org/x/crypto/blake2b"
)

// Terrain is the kind written onto a generated tile.
type Terrain string

const (
	TerrainMountain Terrain = "mountain"
	TerrainRiver    Terrain = "river"
)

// TerrainParams mirrors the configuration knobs in §6/§4.4: chain counts,
// lengths, spacing, density and the zigzag/fork probabilities.
type TerrainParams struct {
	MountainChainsMin    int
	MountainChainsMax    int
	MountainChainLength  int
	MountainChainSpacing int
	MountainAreaSize     int
	MountainDensity      float64
	MountainZigzagChance float64

	RiverCount      int
	RiverLength     int
	RiverMinSpacing int
	RiverForkChance float64
	RiverForkLength int
}

// Generate is a pure function of seed and params: the same inputs always
// produce the same terrain map, so replaying a game's event log against a
// fresh instance with the same seed reproduces its geography.
func Generate(seed int64, p TerrainParams) map[Coord]Terrain {
	rng := rand.New(rand.NewSource(deriveInt64Seed(seed)))
	out := make(map[Coord]Terrain)

	generateMountains(rng, p, out)
	generateRivers(rng, p, out)

	return out
}

// deriveInt64Seed hashes seed through blake2b so the rand.Source is seeded
// from a well-mixed value rather than the raw, possibly-sequential seed.
func deriveInt64Seed(seed int64) int64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	sum := blake2b.Sum256(buf[:])
	return int64(binary.LittleEndian.Uint64(sum[:8]))
}

func generateMountains(rng *rand.Rand, p TerrainParams, out map[Coord]Terrain) {
	span := p.MountainChainsMax - p.MountainChainsMin
	count := p.MountainChainsMin
	if span > 0 {
		count += rng.Intn(span + 1)
	}

	half := p.MountainAreaSize / 2
	var seeds []Coord

	for i := 0; i < count; i++ {
		seed, ok := pickSpacedSeed(rng, half, p.MountainChainSpacing, seeds, 50)
		if !ok {
			continue
		}
		seeds = append(seeds, seed)
		walkChain(rng, seed, p.MountainChainLength, p.MountainDensity, p.MountainZigzagChance, TerrainMountain, out)
	}
}

func generateRivers(rng *rand.Rand, p TerrainParams, out map[Coord]Terrain) {
	half := (p.RiverLength + p.RiverCount*p.RiverMinSpacing) / 2
	if half < p.RiverMinSpacing {
		half = p.RiverMinSpacing * p.RiverCount
	}
	var seeds []Coord

	for i := 0; i < p.RiverCount; i++ {
		seed, ok := pickSpacedSeed(rng, half, p.RiverMinSpacing, seeds, 50)
		if !ok {
			continue
		}
		seeds = append(seeds, seed)

		primary := rng.Intn(6)
		cur := seed
		dirs := Directions()

		for step := 0; step < p.RiverLength; step++ {
			if _, occupied := out[cur]; !occupied {
				out[cur] = TerrainRiver
			}

			if step == p.RiverLength/3 && rng.Float64() < p.RiverForkChance {
				forkDir := nonReverseDirection(rng, primary)
				walkStraightFork(cur, forkDir, p.RiverForkLength, out)
			}

			cur = Add(cur, dirs[primary])
		}
	}
}

// walkChain advances mountainChainLength steps from seed along a primary
// direction, occasionally branching (density) or zigzagging to a
// non-reverse direction instead of continuing straight.
func walkChain(rng *rand.Rand, seed Coord, length int, density, zigzag float64, terrain Terrain, out map[Coord]Terrain) {
	primary := rng.Intn(6)
	cur := seed
	dirs := Directions()

	for step := 0; step < length; step++ {
		out[cur] = terrain

		if rng.Float64() < density {
			branchDir := nonReverseDirection(rng, primary)
			out[Add(cur, dirs[branchDir])] = terrain
		}

		next := primary
		if rng.Float64() < zigzag {
			next = nonReverseDirection(rng, primary)
		}
		cur = Add(cur, dirs[next])
	}
}

func walkStraightFork(start Coord, dir, length int, out map[Coord]Terrain) {
	dirs := Directions()
	cur := start
	for step := 0; step < length; step++ {
		cur = Add(cur, dirs[dir])
		if _, occupied := out[cur]; !occupied {
			out[cur] = TerrainRiver
		}
	}
}

// nonReverseDirection picks uniformly among the five directions that are
// not the reverse of primary.
func nonReverseDirection(rng *rand.Rand, primary int) int {
	reverse := OppositeIndex(primary)
	for {
		d := rng.Intn(6)
		if d != reverse {
			return d
		}
	}
}

// pickSpacedSeed samples candidate points in [-half,half]^2 until one is at
// least minSpacing away (hex distance) from every prior seed, or gives up
// after maxAttempts.
func pickSpacedSeed(rng *rand.Rand, half, minSpacing int, existing []Coord, maxAttempts int) (Coord, bool) {
	if half <= 0 {
		half = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cand := Coord{rng.Intn(2*half+1) - half, rng.Intn(2*half+1) - half}
		spaced := true
		for _, e := range existing {
			if Distance(cand, e) < minSpacing {
				spaced = false
				break
			}
		}
		if spaced {
			return cand, true
		}
	}
	return Coord{}, false
}
