package gameroom

import (
	"context"
	"time"

	"hexterritory/internal/roomrt"
)

// economyTick applies base income to every connected player, once per
// cfg.EconomyTick. No broadcast is emitted (§4.4: clients poll
// requestPointsUpdate instead — a deliberate chattiness reduction, §9 open
// question 3).
func (r *Room) economyTick() {
	if r.phase == PhaseClosed {
		return
	}
	if !r.kv.IsAvailable() {
		r.tickRunning = false
		return
	}

	ctx := context.Background()
	r.presence.Each(func(playerID string, _ *roomrt.Client) {
		pts, err := r.points.GetPlayerPoints(ctx, r.id, playerID)
		if err != nil {
			return
		}
		next := pts.Points + r.cfg.BaseIncome
		if next > pts.MaxPoints {
			next = pts.MaxPoints
		}
		_, _ = r.points.UpdatePlayerPoints(ctx, r.id, playerID, next)
	})

	time.AfterFunc(r.cfg.EconomyTick, func() {
		r.rt.Schedule(r.id, r.economyTick)
	})
}

// restartLoopsIfStopped resumes the tick and auto-expansion loops after a
// KV outage cleared, triggered by the next join per §5 Liveness policy.
func (r *Room) restartLoopsIfStopped() {
	if !r.tickRunning && r.phase != PhaseClosed {
		r.tickRunning = true
		r.economyTick()
	}
	if !r.autoExpandRunning && r.phase != PhaseClosed {
		r.autoExpandRunning = true
		r.autoExpand()
	}
}
