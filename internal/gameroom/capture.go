package gameroom

import (
	"context"
	"time"

	"hexterritory/internal/data"
	"hexterritory/internal/economy"
	"hexterritory/internal/hexgrid"
)

// captureOutcome is the per-hex result of an attempted capture, shared by
// fillHex/batchFillHex/clickHex.
type captureOutcome struct {
	Q           int
	R           int
	OK          bool
	Reason      string // "" on success
	OwnedMenu   bool   // clickHex only: hit the owned-tile shortcut instead
	Color       string
	Upgrade     string
	Terrain     string
	PrevOwner   string
}

func riverAdjacent(all map[hexgrid.Coord]data.Hex, target hexgrid.Coord) bool {
	for _, n := range hexgrid.Neighbors(target) {
		if h, ok := all[n]; ok && h.Terrain == string(hexgrid.TerrainRiver) {
			return true
		}
	}
	return false
}

func hasRiverAccess(all map[hexgrid.Coord]data.Hex, playerID string) bool {
	for c, h := range all {
		if h.PlayerID != playerID {
			continue
		}
		for _, n := range hexgrid.Neighbors(c) {
			if nh, ok := all[n]; ok && nh.Terrain == string(hexgrid.TerrainRiver) {
				return true
			}
		}
	}
	return false
}

func isAdjacentToOwner(all map[hexgrid.Coord]data.Hex, target hexgrid.Coord, playerID string) bool {
	for _, n := range hexgrid.Neighbors(target) {
		if h, ok := all[n]; ok && h.PlayerID == playerID {
			return true
		}
	}
	return false
}

// computeCost implements §4.4 Cost model exactly: expansion growth with
// owned-tile count, river discount, and defender strength with fort
// doubling when the target or a neighbor of it carries a defender's fort.
func (r *Room) computeCost(all map[hexgrid.Coord]data.Hex, attackerID string, target hexgrid.Coord, defenderPoints int) int {
	attackerTiles := data.TilesOf(all, attackerID)
	riverDiscount := riverAdjacent(all, target) && hasRiverAccess(all, attackerID)

	var defender *economy.Defender
	if targetHex, ok := all[target]; ok && targetHex.PlayerID != "" && targetHex.PlayerID != attackerID {
		fortDoubled := targetHex.Upgrade == "fort"
		if !fortDoubled {
			for _, n := range hexgrid.Neighbors(target) {
				if nh, ok := all[n]; ok && nh.Upgrade == "fort" && nh.PlayerID == targetHex.PlayerID {
					fortDoubled = true
					break
				}
			}
		}
		defender = &economy.Defender{
			Tiles:       data.TilesOf(all, targetHex.PlayerID),
			Points:      defenderPoints,
			FortDoubled: fortDoubled,
		}
	}

	return economy.TargetCost(r.cfg.Cost, attackerTiles, riverDiscount, defender)
}

// attemptCapture runs the single-hex capture protocol (§4.4). enforceAdjacency
// and ownedMenu distinguish the deliberate-click path from the drag/batch path.
func (r *Room) attemptCapture(ctx context.Context, playerID string, target hexgrid.Coord, enforceAdjacency, ownedMenu bool) captureOutcome {
	out := captureOutcome{Q: target.Q, R: target.R}

	if !r.started[playerID] && !r.inStartWindow() {
		out.Reason = "not_started"
		return out
	}

	all, err := r.hexes.All(ctx, r.id)
	if err != nil {
		out.Reason = "unavailable"
		return out
	}

	targetHex, exists := all[target]
	if exists && targetHex.Terrain == string(hexgrid.TerrainMountain) {
		out.Reason = "impassable"
		return out
	}

	if exists && targetHex.PlayerID == playerID {
		if ownedMenu {
			out.OwnedMenu = true
			out.OK = true
			out.Upgrade = targetHex.Upgrade
			return out
		}
		// Cost is null for a tile the attacker already owns (§4.4); the
		// drag-paint path only skips the owned-tile shortcut and the
		// adjacency check, not the null-cost rule.
		out.Reason = "insufficient"
		return out
	}

	attackerPoints, err := r.points.GetPlayerPoints(ctx, r.id, playerID)
	if err != nil {
		out.Reason = "unavailable"
		return out
	}

	var defenderPoints int
	if exists && targetHex.PlayerID != "" && targetHex.PlayerID != playerID {
		dp, err := r.points.GetPlayerPoints(ctx, r.id, targetHex.PlayerID)
		if err != nil {
			out.Reason = "unavailable"
			return out
		}
		defenderPoints = dp.Points
	}

	cost := r.computeCost(all, playerID, target, defenderPoints)
	if cost <= 0 || attackerPoints.Points < cost {
		out.Reason = "insufficient"
		return out
	}

	if enforceAdjacency {
		attackerHasAnyTile := data.TilesOf(all, playerID) > 0
		adjacentToOwned := isAdjacentToOwner(all, target, playerID)
		riverException := riverAdjacent(all, target) && hasRiverAccess(all, playerID)
		if attackerHasAnyTile && !adjacentToOwned && !riverException {
			out.Reason = "not_adjacent"
			return out
		}
	}

	color := r.colors[playerID]
	prevOwner := ""
	if exists {
		prevOwner = targetHex.PlayerID
	}
	terrain := ""
	if exists {
		terrain = targetHex.Terrain
	}

	if _, err := r.points.UpdatePlayerPoints(ctx, r.id, playerID, attackerPoints.Points-cost); err != nil {
		out.Reason = "unavailable"
		return out
	}
	if err := r.hexes.SetHex(ctx, r.id, target, playerID, color, "", terrain, false, time.Now().UnixMilli()); err != nil {
		out.Reason = "unavailable"
		return out
	}
	_ = r.events.Save(ctx, data.Event{
		GameID: r.id, PlayerID: playerID, Color: color, Q: target.Q, R: target.R,
		EventType: data.EventCapture, Timestamp: time.Now().UnixMilli(),
	})

	out.OK = true
	out.Color = color
	out.Terrain = terrain
	out.PrevOwner = prevOwner
	return out
}
