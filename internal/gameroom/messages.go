package gameroom

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"hexterritory/internal/data"
	"hexterritory/internal/hexgrid"
	"hexterritory/internal/roomrt"
)

// HandleMessage is only ever invoked from this room's actor goroutine.
func (r *Room) HandleMessage(client *roomrt.Client, msgType string, raw []byte) {
	ctx := context.Background()

	switch msgType {
	case "join":
		r.handleJoin(ctx, client, raw)
	case "chooseStart":
		r.handleChooseStart(ctx, client, raw)
	case "fillHex":
		r.handleFillHex(ctx, client, raw)
	case "batchFillHex":
		r.handleBatchFillHex(ctx, client, raw)
	case "clickHex":
		r.handleClickHex(ctx, client, raw)
	case "upgradeHex":
		r.handleUpgradeHex(ctx, client, raw)
	case "batchUpgradeHex":
		r.handleBatchUpgradeHex(ctx, client, raw)
	case "requestHoverCost":
		r.handleHoverCost(ctx, client, raw)
	case "requestPointsUpdate":
		r.handlePointsRequest(ctx, client)
	default:
		r.log.Debug("unhandled game message", zap.String("type", msgType))
	}
}

type coordMsg struct {
	Q int `json:"q"`
	R int `json:"r"`
}

type batchFillMsg struct {
	Hexes []coordMsg `json:"hexes"`
}

type upgradeMsg struct {
	coordMsg
	Type string `json:"type"`
}

type batchUpgradeMsg struct {
	Hexes []upgradeMsg `json:"hexes"`
}

func (r *Room) handleChooseStart(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	if !r.inStartWindow() {
		client.Send(map[string]interface{}{"type": "fillResult", "ok": false, "reason": "start_window_closed"})
		return
	}

	var msg coordMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	target := hexgrid.Coord{Q: msg.Q, R: msg.R}

	hex, err := r.hexes.Get(ctx, r.id, target)
	if err != nil || (hex != nil && (!data.IsHexPassable(hex) || hex.PlayerID != "")) {
		client.Send(map[string]interface{}{"type": "fillResult", "q": msg.Q, "r": msg.R, "ok": false, "reason": "not_available"})
		return
	}

	color := r.colors[client.PlayerID]
	now := time.Now().UnixMilli()
	if err := r.hexes.SetHex(ctx, r.id, target, client.PlayerID, color, "", "", true, now); err != nil {
		client.Send(map[string]interface{}{"type": "fillResult", "q": msg.Q, "r": msg.R, "ok": false, "reason": "unavailable"})
		return
	}
	if err := r.points.InitStart(ctx, r.id, client.PlayerID, msg.Q, msg.R); err != nil {
		r.log.Error("init start points failed", zap.Error(err))
	}
	_ = r.events.Save(ctx, data.Event{
		GameID: r.id, PlayerID: client.PlayerID, Color: color, Q: msg.Q, R: msg.R,
		EventType: data.EventStart, Timestamp: now,
	})
	r.started[client.PlayerID] = true

	r.broadcastUpdate(msg.Q, msg.R, color, true, "", "")
	client.Send(map[string]interface{}{"type": "fillResult", "q": msg.Q, "r": msg.R, "ok": true})
	r.broadcastPoints(ctx, client.PlayerID)
}

func (r *Room) handleFillHex(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg coordMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	out := r.attemptCapture(ctx, client.PlayerID, hexgrid.Coord{Q: msg.Q, R: msg.R}, false, false)
	r.reportCapture(ctx, client, out)
}

func (r *Room) handleClickHex(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg coordMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	out := r.attemptCapture(ctx, client.PlayerID, hexgrid.Coord{Q: msg.Q, R: msg.R}, true, true)
	if out.OwnedMenu {
		client.Send(map[string]interface{}{"type": "openOwnedTileMenu", "q": out.Q, "r": out.R, "upgrade": out.Upgrade})
		return
	}
	r.reportCapture(ctx, client, out)
}

func (r *Room) handleBatchFillHex(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg batchFillMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	results := make([]map[string]interface{}, 0, len(msg.Hexes))
	for _, hx := range msg.Hexes {
		out := r.attemptCapture(ctx, client.PlayerID, hexgrid.Coord{Q: hx.Q, R: hx.R}, false, false)
		r.applyCaptureSideEffects(ctx, client.PlayerID, out)
		results = append(results, map[string]interface{}{"q": out.Q, "r": out.R, "ok": out.OK, "reason": out.Reason})
	}
	client.Send(map[string]interface{}{"type": "batchFillResult", "results": results})
}

// reportCapture broadcasts/acks a single clickHex/fillHex outcome.
func (r *Room) reportCapture(ctx context.Context, client *roomrt.Client, out captureOutcome) {
	r.applyCaptureSideEffects(ctx, client.PlayerID, out)
	if out.OK {
		client.Send(map[string]interface{}{"type": "fillResult", "q": out.Q, "r": out.R, "ok": true})
	} else {
		client.Send(map[string]interface{}{"type": "fillResult", "q": out.Q, "r": out.R, "ok": false, "reason": out.Reason})
	}
}

// applyCaptureSideEffects broadcasts update/pointsUpdate for a successful
// capture; attemptCapture already performed the state mutation.
func (r *Room) applyCaptureSideEffects(ctx context.Context, playerID string, out captureOutcome) {
	if !out.OK || out.OwnedMenu {
		return
	}
	r.broadcastUpdate(out.Q, out.R, out.Color, false, "", out.Terrain)
	r.broadcastPoints(ctx, playerID)
	if out.PrevOwner != "" && out.PrevOwner != playerID {
		r.broadcastPoints(ctx, out.PrevOwner)
	}
}

func (r *Room) handleUpgradeHex(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg upgradeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	ok, errReason := r.applyUpgrade(ctx, client.PlayerID, hexgrid.Coord{Q: msg.Q, R: msg.R}, msg.Type)
	if ok {
		client.Send(map[string]interface{}{"type": "upgradeResult", "ok": true, "type_": msg.Type})
	} else {
		client.Send(map[string]interface{}{"type": "upgradeResult", "ok": false, "error": errReason})
	}
}

func (r *Room) handleBatchUpgradeHex(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg batchUpgradeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	results := make([]map[string]interface{}, 0, len(msg.Hexes))
	for _, u := range msg.Hexes {
		ok, reason := r.applyUpgrade(ctx, client.PlayerID, hexgrid.Coord{Q: u.Q, R: u.R}, u.Type)
		results = append(results, map[string]interface{}{"q": u.Q, "r": u.R, "ok": ok, "error": reason})
	}
	client.Send(map[string]interface{}{"type": "batchUpgradeResult", "results": results})
}

func (r *Room) upgradeCost(upgradeType string) (int, bool) {
	switch upgradeType {
	case "bank":
		return r.cfg.UpgradeBankCost, true
	case "fort":
		return r.cfg.UpgradeFortCost, true
	case "city":
		return r.cfg.UpgradeCityCost, true
	default:
		return 0, false
	}
}

// applyUpgrade implements the Upgrades operation (§4.4): the hex must be
// owned by the requester, points are debited, the upgrade event is logged,
// and points are recalculated (a bank raises maxPoints).
func (r *Room) applyUpgrade(ctx context.Context, playerID string, target hexgrid.Coord, upgradeType string) (bool, string) {
	cost, known := r.upgradeCost(upgradeType)
	if !known {
		return false, "bad_input"
	}

	hex, err := r.hexes.Get(ctx, r.id, target)
	if err != nil {
		return false, "unavailable"
	}
	if hex == nil || hex.PlayerID != playerID {
		return false, "not_owner"
	}

	pts, err := r.points.GetPlayerPoints(ctx, r.id, playerID)
	if err != nil {
		return false, "unavailable"
	}
	if pts.Points < cost {
		return false, "insufficient"
	}

	if _, err := r.points.UpdatePlayerPoints(ctx, r.id, playerID, pts.Points-cost); err != nil {
		return false, "unavailable"
	}
	if err := r.hexes.SetHexUpgrade(ctx, r.id, target, upgradeType); err != nil {
		return false, "unavailable"
	}
	now := time.Now().UnixMilli()
	_ = r.events.Save(ctx, data.Event{
		GameID: r.id, PlayerID: playerID, Color: r.colors[playerID], Q: target.Q, R: target.R,
		EventType: data.EventUpgrade, Timestamp: now,
	})

	r.broadcastUpdate(target.Q, target.R, hex.Color, hex.IsStart, upgradeType, hex.Terrain)
	r.broadcastPoints(ctx, playerID)
	return true, ""
}

func (r *Room) handleHoverCost(ctx context.Context, client *roomrt.Client, raw []byte) {
	if client.PlayerID == "" {
		return
	}
	var msg coordMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	target := hexgrid.Coord{Q: msg.Q, R: msg.R}

	all, err := r.hexes.All(ctx, r.id)
	if err != nil {
		client.Send(map[string]interface{}{"type": "hoverCost", "q": msg.Q, "r": msg.R, "cost": nil})
		return
	}
	if hex, ok := all[target]; ok && hex.PlayerID == client.PlayerID {
		client.Send(map[string]interface{}{"type": "hoverCost", "q": msg.Q, "r": msg.R, "cost": nil})
		return
	}

	var defenderPoints int
	if hex, ok := all[target]; ok && hex.PlayerID != "" && hex.PlayerID != client.PlayerID {
		dp, err := r.points.GetPlayerPoints(ctx, r.id, hex.PlayerID)
		if err == nil {
			defenderPoints = dp.Points
		}
	}
	cost := r.computeCost(all, client.PlayerID, target, defenderPoints)
	client.Send(map[string]interface{}{"type": "hoverCost", "q": msg.Q, "r": msg.R, "cost": cost})
}

func (r *Room) handlePointsRequest(ctx context.Context, client *roomrt.Client) {
	if client.PlayerID == "" {
		return
	}
	r.broadcastPointsTo(ctx, client, client.PlayerID)
}

func (r *Room) broadcastUpdate(q, rr int, color string, crown bool, upgrade, terrain string) {
	r.broadcast(map[string]interface{}{
		"type": "update", "q": q, "r": rr, "color": color, "crown": crown, "upgrade": upgrade, "terrain": terrain,
	})
}

func (r *Room) broadcastPoints(ctx context.Context, playerID string) {
	pts, err := r.points.GetPlayerPoints(ctx, r.id, playerID)
	if err != nil {
		return
	}
	all, err := r.hexes.All(ctx, r.id)
	tiles := 0
	if err == nil {
		tiles = data.TilesOf(all, playerID)
	}
	r.broadcast(map[string]interface{}{
		"type": "pointsUpdate", "playerId": playerID, "points": pts.Points, "tiles": tiles, "maxPoints": pts.MaxPoints,
	})
}

func (r *Room) broadcastPointsTo(ctx context.Context, client *roomrt.Client, playerID string) {
	pts, err := r.points.GetPlayerPoints(ctx, r.id, playerID)
	if err != nil {
		return
	}
	all, err := r.hexes.All(ctx, r.id)
	tiles := 0
	if err == nil {
		tiles = data.TilesOf(all, playerID)
	}
	client.Send(map[string]interface{}{
		"type": "pointsUpdate", "playerId": playerID, "points": pts.Points, "tiles": tiles, "maxPoints": pts.MaxPoints,
	})
}

func (r *Room) broadcast(v interface{}) {
	r.presence.Each(func(_ string, c *roomrt.Client) {
		c.Send(v)
	})
}
