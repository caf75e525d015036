package gameroom

import (
	"context"
	"time"

	"hexterritory/internal/data"
	"hexterritory/internal/hexgrid"
)

type pendingCapture struct {
	coord     hexgrid.Coord
	newOwner  string
	prevOwner string
	terrain   string
}

// autoExpand runs one auto-expansion scan (§4.4). The scan is read-only
// against a single snapshot; captures are collected and applied only after
// every candidate has been evaluated (snapshot-then-mutate), so a capture
// made mid-scan cannot influence the rest of the same scan.
func (r *Room) autoExpand() {
	if r.phase == PhaseClosed {
		return
	}
	if !r.kv.IsAvailable() {
		r.autoExpandRunning = false
		return
	}

	ctx := context.Background()
	all, err := r.hexes.All(ctx, r.id)
	if err == nil {
		captures := r.scanAutoExpand(all)
		r.applyAutoExpandCaptures(ctx, all, captures)
	}

	time.AfterFunc(r.cfg.AutoExpandInterval, func() {
		r.rt.Schedule(r.id, r.autoExpand)
	})
}

func (r *Room) scanAutoExpand(all map[hexgrid.Coord]data.Hex) []pendingCapture {
	candidates := make(map[hexgrid.Coord]bool)
	for c := range all {
		candidates[c] = true
		for _, n := range hexgrid.Neighbors(c) {
			candidates[n] = true
		}
	}

	var captures []pendingCapture
	for c := range candidates {
		maxPlayer, maxCount, strict := neighborMajority(all, c)
		if !strict || maxCount < r.cfg.AutoCaptureThresh {
			continue
		}

		current, exists := all[c]
		currentOwner := ""
		if exists {
			currentOwner = current.PlayerID
		}
		if currentOwner == maxPlayer {
			continue
		}

		allow := currentOwner == ""
		if !allow && currentOwner != "" {
			allow = allNeighborsOwnedBy(all, c, maxPlayer) || (riverAdjacent(all, c) && hasRiverAccess(all, maxPlayer))
		}
		if !allow {
			continue
		}

		if fortProtected(all, c, maxPlayer) {
			continue
		}
		if exists && current.Terrain == string(hexgrid.TerrainMountain) {
			continue
		}

		terrain := ""
		if exists {
			terrain = current.Terrain
		}
		captures = append(captures, pendingCapture{coord: c, newOwner: maxPlayer, prevOwner: currentOwner, terrain: terrain})
	}
	return captures
}

func neighborMajority(all map[hexgrid.Coord]data.Hex, c hexgrid.Coord) (player string, count int, strict bool) {
	counts := make(map[string]int)
	for _, n := range hexgrid.Neighbors(c) {
		if h, ok := all[n]; ok && h.PlayerID != "" {
			counts[h.PlayerID]++
		}
	}
	best, bestCount, runnerUpCount := "", 0, 0
	for p, n := range counts {
		if n > bestCount {
			runnerUpCount = bestCount
			best, bestCount = p, n
		} else if n > runnerUpCount {
			runnerUpCount = n
		}
	}
	return best, bestCount, bestCount > runnerUpCount
}

func allNeighborsOwnedBy(all map[hexgrid.Coord]data.Hex, c hexgrid.Coord, playerID string) bool {
	for _, n := range hexgrid.Neighbors(c) {
		h, ok := all[n]
		if !ok || h.PlayerID != playerID {
			return false
		}
	}
	return true
}

// fortProtected denies capture when the target or any neighbor carries a
// fort owned by anyone other than the would-be new owner.
func fortProtected(all map[hexgrid.Coord]data.Hex, c hexgrid.Coord, newOwner string) bool {
	if h, ok := all[c]; ok && h.Upgrade == "fort" && h.PlayerID != newOwner {
		return true
	}
	for _, n := range hexgrid.Neighbors(c) {
		if h, ok := all[n]; ok && h.Upgrade == "fort" && h.PlayerID != newOwner {
			return true
		}
	}
	return false
}

func (r *Room) applyAutoExpandCaptures(ctx context.Context, all map[hexgrid.Coord]data.Hex, captures []pendingCapture) {
	if len(captures) == 0 {
		return
	}

	touched := make(map[string]bool)
	now := time.Now().UnixMilli()
	for _, pc := range captures {
		color := r.colors[pc.newOwner]
		if err := r.hexes.SetHex(ctx, r.id, pc.coord, pc.newOwner, color, "", pc.terrain, false, now); err != nil {
			continue
		}
		_ = r.events.Save(ctx, data.Event{
			GameID: r.id, PlayerID: pc.newOwner, Color: color, Q: pc.coord.Q, R: pc.coord.R,
			EventType: data.EventAutoCapture, Timestamp: now,
		})
		r.broadcastUpdate(pc.coord.Q, pc.coord.R, color, false, "", pc.terrain)
		touched[pc.newOwner] = true
		if pc.prevOwner != "" {
			touched[pc.prevOwner] = true
		}
	}

	for playerID := range touched {
		r.broadcastPoints(ctx, playerID)
	}
}
