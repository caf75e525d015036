package data

import (
	"context"
	"encoding/json"
	"time"

	"hexterritory/internal/apperr"
	"hexterritory/internal/kvstore"
)

// PlayerPoints is the persistent per-player economy record (§3 Data Model).
type PlayerPoints struct {
	Points     int       `json:"points"`
	MaxPoints  int       `json:"maxPoints"`
	StartQ     int       `json:"startQ"`
	StartR     int       `json:"startR"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Points is the points sub-layer of the Game Data Layer. It is the single
// source of truth for maxPoints, always recomputed from current hex state.
type Points struct {
	kv                *kvstore.Store
	hexes             *Hexes
	startingPoints    int
	startingMaxPoints int
}

func NewPoints(kv *kvstore.Store, hexes *Hexes, startingPoints, startingMaxPoints int) *Points {
	return &Points{kv: kv, hexes: hexes, startingPoints: startingPoints, startingMaxPoints: startingMaxPoints}
}

// CalculateMaxPoints scans the hex hash for a player's bank count and tile
// count: maxPoints = startingMaxPoints + 50*banks + 5*tiles.
func (p *Points) CalculateMaxPoints(ctx context.Context, gameID, playerID string) (int, error) {
	all, err := p.hexes.All(ctx, gameID)
	if err != nil {
		return 0, err
	}
	counts := UpgradeCounts(all, playerID)
	tiles := TilesOf(all, playerID)
	return p.startingMaxPoints + 50*counts["banks"] + 5*tiles, nil
}

// GetPlayerPoints returns the player's points, initializing to
// (startingPoints, startingMaxPoints) on miss. The returned maxPoints is
// always freshly computed so a stale cached cap is never surfaced.
func (p *Points) GetPlayerPoints(ctx context.Context, gameID, playerID string) (*PlayerPoints, error) {
	maxPoints, err := p.CalculateMaxPoints(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	raw, ok, err := p.kv.HashGet(ctx, kvstore.GamePointsKey(gameID), kvstore.PointsField(playerID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load points", err)
	}
	if !ok {
		return &PlayerPoints{
			Points:     p.startingPoints,
			MaxPoints:  maxPoints,
			LastUpdate: time.Now(),
		}, nil
	}

	var pts PlayerPoints
	if err := json.Unmarshal([]byte(raw), &pts); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode points", err)
	}
	pts.MaxPoints = maxPoints
	return &pts, nil
}

// InitStart persists a player's chosen start coordinate with the default
// starting points/maxPoints, called once from the start-pick flow.
func (p *Points) InitStart(ctx context.Context, gameID, playerID string, startQ, startR int) error {
	pts := PlayerPoints{
		Points:     p.startingPoints,
		MaxPoints:  p.startingMaxPoints,
		StartQ:     startQ,
		StartR:     startR,
		LastUpdate: time.Now(),
	}
	return p.save(ctx, gameID, playerID, pts)
}

// UpdatePlayerPoints clamps newPoints into [0, calculateMaxPoints], preserves
// startQ/startR, and writes back.
func (p *Points) UpdatePlayerPoints(ctx context.Context, gameID, playerID string, newPoints int) (*PlayerPoints, error) {
	current, err := p.GetPlayerPoints(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	clamped := newPoints
	if clamped < 0 {
		clamped = 0
	}
	if clamped > current.MaxPoints {
		clamped = current.MaxPoints
	}

	current.Points = clamped
	current.LastUpdate = time.Now()
	if err := p.save(ctx, gameID, playerID, *current); err != nil {
		return nil, err
	}
	return current, nil
}

func (p *Points) save(ctx context.Context, gameID, playerID string, pts PlayerPoints) error {
	buf, err := json.Marshal(pts)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal points", err)
	}
	if err := p.kv.HashSet(ctx, kvstore.GamePointsKey(gameID), kvstore.PointsField(playerID), string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist points", err)
	}
	return nil
}
