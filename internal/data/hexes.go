package data

import (
	"context"
	"encoding/json"
	"fmt"

	"hexterritory/internal/apperr"
	"hexterritory/internal/hexgrid"
	"hexterritory/internal/kvstore"
)

// Hex is the persistent tile record (§3 Data Model).
type Hex struct {
	PlayerID    string  `json:"playerId"` // "" means unowned
	Color       string  `json:"color"`
	Upgrade     string  `json:"upgrade"`     // "", "bank", "fort", "city"
	Terrain     string  `json:"terrain"`     // "", "mountain", "river"
	CaptureTime int64   `json:"captureTime"` // unix millis, 0 if never captured
	IsStart     bool    `json:"isStart"`
}

// Hexes is the hex sub-layer of the Game Data Layer.
type Hexes struct {
	kv *kvstore.Store
}

func NewHexes(kv *kvstore.Store) *Hexes {
	return &Hexes{kv: kv}
}

// SetHex upserts ownership/color/upgrade/terrain/isStart. Omitted upgrade or
// terrain are written as empty string; the previous value is NOT preserved.
// Callers that want to keep upgrade across an ownership change must
// read-modify-write or call SetHexUpgrade.
func (h *Hexes) SetHex(ctx context.Context, gameID string, c hexgrid.Coord, playerID, color, upgrade, terrain string, isStart bool, captureTime int64) error {
	hex := Hex{
		PlayerID:    playerID,
		Color:       color,
		Upgrade:     upgrade,
		Terrain:     terrain,
		CaptureTime: captureTime,
		IsStart:     isStart,
	}
	return h.save(ctx, gameID, c, hex)
}

// SetHexUpgrade is a read-modify-write that changes only the upgrade field,
// preserving owner, color and terrain.
func (h *Hexes) SetHexUpgrade(ctx context.Context, gameID string, c hexgrid.Coord, upgrade string) error {
	hex, err := h.Get(ctx, gameID, c)
	if err != nil {
		return err
	}
	if hex == nil {
		hex = &Hex{}
	}
	hex.Upgrade = upgrade
	return h.save(ctx, gameID, c, *hex)
}

func (h *Hexes) save(ctx context.Context, gameID string, c hexgrid.Coord, hex Hex) error {
	buf, err := json.Marshal(hex)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal hex", err)
	}
	if err := h.kv.HashSet(ctx, kvstore.GameHexesKey(gameID), c.Key(), string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist hex", err)
	}
	return nil
}

// Get returns (nil, nil) for a never-written hex (an unowned hex that carries
// terrain is written, so it is returned) - absence is
// modeled as a nil value, not a NotFound error, per §7.
func (h *Hexes) Get(ctx context.Context, gameID string, c hexgrid.Coord) (*Hex, error) {
	raw, ok, err := h.kv.HashGet(ctx, kvstore.GameHexesKey(gameID), c.Key())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load hex", err)
	}
	if !ok {
		return nil, nil
	}
	var hex Hex
	if err := json.Unmarshal([]byte(raw), &hex); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode hex", err)
	}
	return &hex, nil
}

// All returns every stored hex for a game, keyed by coordinate.
func (h *Hexes) All(ctx context.Context, gameID string) (map[hexgrid.Coord]Hex, error) {
	raw, err := h.kv.HashGetAll(ctx, kvstore.GameHexesKey(gameID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load hexes", err)
	}
	out := make(map[hexgrid.Coord]Hex, len(raw))
	for field, value := range raw {
		c, ok := parseHexField(field)
		if !ok {
			continue
		}
		var hex Hex
		if err := json.Unmarshal([]byte(value), &hex); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "decode hex", err)
		}
		out[c] = hex
	}
	return out, nil
}

func parseHexField(field string) (hexgrid.Coord, bool) {
	var q, r int
	n, err := fmt.Sscanf(field, "%d:%d", &q, &r)
	if err != nil || n != 2 {
		return hexgrid.Coord{}, false
	}
	return hexgrid.Coord{Q: q, R: r}, true
}

// IsHexPassable reports whether a hex can be entered: an unwritten hex is
// passable, and any written hex is passable unless its terrain is mountain.
func IsHexPassable(hex *Hex) bool {
	return hex == nil || hex.Terrain != string(hexgrid.TerrainMountain)
}

// IsAdjacentToRiver scans the six neighbors of c for river terrain.
func (h *Hexes) IsAdjacentToRiver(ctx context.Context, gameID string, c hexgrid.Coord) (bool, error) {
	for _, n := range hexgrid.Neighbors(c) {
		hex, err := h.Get(ctx, gameID, n)
		if err != nil {
			return false, err
		}
		if hex != nil && hex.Terrain == string(hexgrid.TerrainRiver) {
			return true, nil
		}
	}
	return false, nil
}

// PlayerHasRiverAccess scans every hex the player owns for river adjacency.
func (h *Hexes) PlayerHasRiverAccess(ctx context.Context, gameID, playerID string) (bool, error) {
	all, err := h.All(ctx, gameID)
	if err != nil {
		return false, err
	}
	for c, hex := range all {
		if hex.PlayerID != playerID {
			continue
		}
		for _, n := range hexgrid.Neighbors(c) {
			if neighbor, ok := all[n]; ok && neighbor.Terrain == string(hexgrid.TerrainRiver) {
				return true, nil
			}
		}
	}
	return false, nil
}

// TilesOf counts hexes owned by playerID.
func TilesOf(all map[hexgrid.Coord]Hex, playerID string) int {
	n := 0
	for _, hex := range all {
		if hex.PlayerID == playerID {
			n++
		}
	}
	return n
}

// UpgradeCounts tallies a player's upgrades into lowercase plural keys
// {banks, forts, cities} (§9 open question 2: normalize case uniformly).
func UpgradeCounts(all map[hexgrid.Coord]Hex, playerID string) map[string]int {
	counts := map[string]int{"banks": 0, "forts": 0, "cities": 0}
	for _, hex := range all {
		if hex.PlayerID != playerID || hex.Upgrade == "" {
			continue
		}
		switch hex.Upgrade {
		case "bank":
			counts["banks"]++
		case "fort":
			counts["forts"]++
		case "city":
			counts["cities"]++
		}
	}
	return counts
}
