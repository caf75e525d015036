package data

import (
	"context"
	"encoding/json"
	"time"

	"hexterritory/internal/apperr"
	"hexterritory/internal/kvstore"
)

// GameStatus is the lifecycle state of a Game.
type GameStatus string

const (
	GameActive GameStatus = "active"
	GameClosed GameStatus = "closed"
)

// StartPlayer snapshots a player's identity at kickoff, embedded in
// Game.StartPlayers so a finished game's roster survives player churn.
type StartPlayer struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

// Game is the persistent game record (§3 Data Model).
type Game struct {
	ID             string        `json:"id"`
	CreatedAt      time.Time     `json:"createdAt"`
	Status         GameStatus    `json:"status"`
	StartPlayers   []StartPlayer `json:"startPlayers"`
	LobbyStartTime int64         `json:"lobbyStartTime"` // unix millis
	Seed           int64         `json:"seed"`            // terrain generation seed
}

// Games is the game sub-layer of the Game Data Layer.
type Games struct {
	kv *kvstore.Store
}

func NewGames(kv *kvstore.Store) *Games {
	return &Games{kv: kv}
}

// Create persists a new active game.
func (g *Games) Create(ctx context.Context, game *Game) error {
	buf, err := json.Marshal(game)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal game", err)
	}
	if err := g.kv.HashSet(ctx, kvstore.GameDataKey(game.ID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist game", err)
	}
	if err := g.kv.ZSetAdd(ctx, kvstore.GamesActiveKey(), float64(game.CreatedAt.Unix()), game.ID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index active game", err)
	}
	return nil
}

// Get loads a game by ID.
func (g *Games) Get(ctx context.Context, gameID string) (*Game, error) {
	raw, ok, err := g.kv.HashGet(ctx, kvstore.GameDataKey(gameID), "data")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load game", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "game not found")
	}
	var game Game
	if err := json.Unmarshal([]byte(raw), &game); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode game", err)
	}
	return &game, nil
}

// Save overwrites the game record.
func (g *Games) Save(ctx context.Context, game *Game) error {
	buf, err := json.Marshal(game)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal game", err)
	}
	if err := g.kv.HashSet(ctx, kvstore.GameDataKey(game.ID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist game", err)
	}
	return nil
}

// Close marks a game closed and removes it from the active index.
// Subsequent joins must observe the closed status and fail.
func (g *Games) Close(ctx context.Context, gameID string) error {
	game, err := g.Get(ctx, gameID)
	if err != nil {
		return err
	}
	game.Status = GameClosed
	if err := g.Save(ctx, game); err != nil {
		return err
	}
	if err := g.kv.ZSetRem(ctx, kvstore.GamesActiveKey(), gameID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "unindex game", err)
	}
	return nil
}

// AddPlayer adds a player to a game's roster.
func (g *Games) AddPlayer(ctx context.Context, gameID, playerID string) error {
	if err := g.kv.SetAdd(ctx, kvstore.GamePlayersKey(gameID), playerID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "add game player", err)
	}
	return nil
}

// Players returns the set of player IDs ever admitted to a game.
func (g *Games) Players(ctx context.Context, gameID string) ([]string, error) {
	members, err := g.kv.SetMembers(ctx, kvstore.GamePlayersKey(gameID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list game players", err)
	}
	return members, nil
}

// ActiveGames returns all active game IDs, oldest first.
func (g *Games) ActiveGames(ctx context.Context) ([]string, error) {
	ids, err := g.kv.ZSetRange(ctx, kvstore.GamesActiveKey(), 0, -1)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list active games", err)
	}
	return ids, nil
}
