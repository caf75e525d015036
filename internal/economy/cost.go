// Package economy implements the authoritative expansion/attack cost model
// (§4.4 Cost model) as pure, side-effect-free arithmetic over data-layer
// snapshots, so it can be exercised identically from hover-cost requests
// and real captures.
package economy

import "math"

// Params are the tunable cost-model constants (§6 Configuration).
type Params struct {
	HexValue      float64
	ExpGrowth     float64
	OccupiedBase  float64
	AttackMult    float64
	RiverDiscount float64 // e.g. 0.7
}

// Defender describes the occupying player of a target hex, when any.
type Defender struct {
	Tiles      int
	Points     int
	FortDoubled bool // target hex or a neighbor carries a fort owned by the defender
}

// ExpansionCost is hexValue + floor(expGrowth * log2(attackerTiles + 2)).
func ExpansionCost(p Params, attackerTiles int) int {
	return int(p.HexValue) + int(math.Floor(p.ExpGrowth*math.Log2(float64(attackerTiles+2))))
}

// DefenderStrength is (1 + D_p/D_h) * D_h * (hexValue + 0.5), doubled if a
// fort protects the target.
func DefenderStrength(p Params, d Defender) float64 {
	dh := d.Tiles
	if dh < 1 {
		dh = 1
	}
	dp := float64(d.Points)
	strength := (1 + dp/float64(dh)) * float64(dh) * (p.HexValue + 0.5)
	if d.FortDoubled {
		strength *= 2
	}
	return strength
}

// AttackCost is expansion + occupiedBase + floor(attackMult * sqrt(strength)).
func AttackCost(p Params, expansion int, strength float64) int {
	return expansion + int(p.OccupiedBase) + int(math.Floor(p.AttackMult*math.Sqrt(strength)))
}

// TargetCost computes the cost of capturing a hex that is not already
// occupied by the attacker. riverDiscount applies the 0.7x reduction
// (floored, minimum 1) before any attack-cost comparison; defender is nil
// for an unoccupied target.
func TargetCost(p Params, attackerTiles int, riverDiscount bool, defender *Defender) int {
	expansion := ExpansionCost(p, attackerTiles)
	cost := expansion

	if riverDiscount {
		cost = int(math.Floor(float64(cost) * p.RiverDiscount))
		if cost < 1 {
			cost = 1
		}
	}

	if defender != nil {
		strength := DefenderStrength(p, *defender)
		attackCost := AttackCost(p, expansion, strength)
		if attackCost > cost {
			cost = attackCost
		}
	}

	return cost
}
