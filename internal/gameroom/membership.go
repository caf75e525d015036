package gameroom

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"hexterritory/internal/roomrt"
)

type joinMsg struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// Joined is a no-op; admission happens on the "join" message so the client
// can present its token over the already-open connection.
func (r *Room) Joined(client *roomrt.Client) {}

// Left marks the player disconnected (§4.4 Membership) and, once no
// sessions remain, starts the drain timer.
func (r *Room) Left(client *roomrt.Client) {
	if client.PlayerID == "" {
		return
	}
	r.presence.Remove(client.PlayerID, client)
	r.disconnected[client.PlayerID] = true

	if r.presence.Count() == 0 && r.phase != PhaseClosed {
		r.startDrainTimer()
	}
}

func (r *Room) handleJoin(ctx context.Context, client *roomrt.Client, raw []byte) {
	var msg joinMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.Close(1000, "bad join payload")
		return
	}
	if !r.allowed[msg.PlayerID] {
		client.Close(1003, "not allowed in this game")
		return
	}
	if !r.auth.Verify(msg.PlayerID, msg.Token) {
		client.Close(1000, "invalid token")
		return
	}

	// Idempotent reconnect: evict any stale session for the same player.
	if evicted := r.presence.Adopt(msg.PlayerID, client); evicted != nil {
		evicted.Close(1000, "duplicate session")
	}
	client.PlayerID = msg.PlayerID
	client.RoomID = r.id
	delete(r.disconnected, msg.PlayerID)

	if r.drainTimer != nil {
		r.drainTimer.Stop()
		r.drainTimer = nil
		if r.phase == PhaseDrain {
			r.phase = PhaseLive
		}
	}

	r.restartLoopsIfStopped()

	client.Send(map[string]interface{}{"type": "assignedColor", "color": r.colors[msg.PlayerID]})
	client.Send(map[string]interface{}{"type": "lobbyStartTime", "ts": r.lobbyStartTimeMillis, "startDelay": r.cfg.StartDelay.Milliseconds()})
	r.sendHistory(ctx, client)
}

func (r *Room) sendHistory(ctx context.Context, client *roomrt.Client) {
	all, err := r.hexes.All(ctx, r.id)
	if err != nil {
		r.log.Error("load history failed", zap.Error(err))
		return
	}
	type entry struct {
		Q       int    `json:"q"`
		R       int    `json:"r"`
		Color   string `json:"color"`
		Crown   bool   `json:"crown"`
		Upgrade string `json:"upgrade"`
		Terrain string `json:"terrain"`
	}
	history := make([]entry, 0, len(all))
	for c, hex := range all {
		history = append(history, entry{Q: c.Q, R: c.R, Color: hex.Color, Crown: hex.IsStart, Upgrade: hex.Upgrade, Terrain: hex.Terrain})
	}
	client.Send(map[string]interface{}{"type": "history", "hexes": history})
}

func (r *Room) startDrainTimer() {
	if r.drainTimer != nil {
		return
	}
	r.phase = PhaseDrain
	r.drainTimer = time.AfterFunc(r.cfg.DrainTimeout, func() {
		r.rt.Schedule(r.id, r.closeGame)
	})
}

func (r *Room) closeGame() {
	if r.phase == PhaseClosed {
		return
	}
	r.phase = PhaseClosed
	if err := r.games.Close(context.Background(), r.id); err != nil {
		r.log.Error("close game failed", zap.Error(err))
	}
	r.rt.Dispose(r.id)
}
