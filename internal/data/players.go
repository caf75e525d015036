// Package data is the Game Data Layer (component C): pure functions over
// the KV Store Facade implementing every persistent domain operation.
package data

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"hexterritory/internal/apperr"
	"hexterritory/internal/kvstore"
)

// Player is the persistent player record (§3 Data Model).
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Players is the players sub-layer of the Game Data Layer.
type Players struct {
	kv *kvstore.Store
}

// NewPlayers builds a Players data layer bound to a KV facade.
func NewPlayers(kv *kvstore.Store) *Players {
	return &Players{kv: kv}
}

// Create persists a new player and indexes it by lowercased username for
// the case-insensitive uniqueness invariant.
func (p *Players) Create(ctx context.Context, player *Player) error {
	buf, err := json.Marshal(player)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal player", err)
	}

	if err := p.kv.HashSet(ctx, kvstore.PlayerDataKey(player.ID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist player", err)
	}
	if err := p.kv.SetString(ctx, kvstore.PlayerByUsernameKey(strings.ToLower(player.Username)), player.ID, 0); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index username", err)
	}
	if err := p.kv.ZSetAdd(ctx, kvstore.PlayersActiveKey(), float64(player.CreatedAt.Unix()), player.ID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index active player", err)
	}
	return nil
}

// Get loads a player by ID.
func (p *Players) Get(ctx context.Context, playerID string) (*Player, error) {
	raw, ok, err := p.kv.HashGet(ctx, kvstore.PlayerDataKey(playerID), "data")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load player", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "player not found")
	}
	return decodePlayer(raw)
}

// GetByUsername looks up a player by case-insensitive username. It returns
// (nil, NotFound-wrapped error) on miss so callers can distinguish a miss
// from a backend error.
func (p *Players) GetByUsername(ctx context.Context, username string) (*Player, error) {
	playerID, ok, err := p.kv.GetString(ctx, kvstore.PlayerByUsernameKey(strings.ToLower(username)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "lookup username", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "username not found")
	}
	return p.Get(ctx, playerID)
}

// SetColor updates a player's color, rejecting unknown players.
func (p *Players) SetColor(ctx context.Context, playerID, color string) error {
	player, err := p.Get(ctx, playerID)
	if err != nil {
		return err
	}
	player.Color = color
	buf, err := json.Marshal(player)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal player", err)
	}
	if err := p.kv.HashSet(ctx, kvstore.PlayerDataKey(playerID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist color", err)
	}
	return nil
}

// TouchLastSeen updates lastSeen to now.
func (p *Players) TouchLastSeen(ctx context.Context, playerID string) error {
	player, err := p.Get(ctx, playerID)
	if err != nil {
		return err
	}
	player.LastSeen = time.Now()
	buf, err := json.Marshal(player)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal player", err)
	}
	if err := p.kv.HashSet(ctx, kvstore.PlayerDataKey(playerID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "touch last seen", err)
	}
	if err := p.kv.ZSetAdd(ctx, kvstore.PlayersActiveKey(), float64(player.LastSeen.Unix()), playerID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "touch active index", err)
	}
	return nil
}

func decodePlayer(raw string) (*Player, error) {
	var player Player
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode player", err)
	}
	return &player, nil
}
