package data

import (
	"context"
	"encoding/json"
	"time"

	"hexterritory/internal/apperr"
	"hexterritory/internal/kvstore"
)

// LobbyStatus is the lifecycle state of a Lobby.
type LobbyStatus string

const (
	LobbyActive LobbyStatus = "active"
	LobbyClosed LobbyStatus = "closed"
)

// Lobby is the persistent lobby record (§3 Data Model).
type Lobby struct {
	ID             string      `json:"id"`
	CreatedAt      time.Time   `json:"createdAt"`
	Status         LobbyStatus `json:"status"`
	LobbyStartTime int64       `json:"lobbyStartTime"` // unix millis, 0 until countdown starts
}

// Lobbies is the lobby sub-layer of the Game Data Layer.
type Lobbies struct {
	kv *kvstore.Store
}

func NewLobbies(kv *kvstore.Store) *Lobbies {
	return &Lobbies{kv: kv}
}

// Create persists a new active lobby.
func (l *Lobbies) Create(ctx context.Context, lobby *Lobby) error {
	buf, err := json.Marshal(lobby)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal lobby", err)
	}
	if err := l.kv.HashSet(ctx, kvstore.LobbyDataKey(lobby.ID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist lobby", err)
	}
	if err := l.kv.ZSetAdd(ctx, kvstore.LobbiesActiveKey(), float64(lobby.CreatedAt.Unix()), lobby.ID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index active lobby", err)
	}
	return nil
}

// Get loads a lobby by ID.
func (l *Lobbies) Get(ctx context.Context, lobbyID string) (*Lobby, error) {
	raw, ok, err := l.kv.HashGet(ctx, kvstore.LobbyDataKey(lobbyID), "data")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load lobby", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "lobby not found")
	}
	var lobby Lobby
	if err := json.Unmarshal([]byte(raw), &lobby); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "decode lobby", err)
	}
	return &lobby, nil
}

// Save overwrites the lobby record (used to update status/lobbyStartTime).
func (l *Lobbies) Save(ctx context.Context, lobby *Lobby) error {
	buf, err := json.Marshal(lobby)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal lobby", err)
	}
	if err := l.kv.HashSet(ctx, kvstore.LobbyDataKey(lobby.ID), "data", string(buf)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "persist lobby", err)
	}
	return nil
}

// Close marks a lobby closed and removes it from the active index.
func (l *Lobbies) Close(ctx context.Context, lobbyID string) error {
	lobby, err := l.Get(ctx, lobbyID)
	if err != nil {
		return err
	}
	lobby.Status = LobbyClosed
	if err := l.Save(ctx, lobby); err != nil {
		return err
	}
	if err := l.kv.ZSetRem(ctx, kvstore.LobbiesActiveKey(), lobbyID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "unindex lobby", err)
	}
	return nil
}

// AddPlayer adds a player to a lobby's roster.
func (l *Lobbies) AddPlayer(ctx context.Context, lobbyID, playerID string) error {
	if err := l.kv.SetAdd(ctx, kvstore.LobbyPlayersKey(lobbyID), playerID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "add lobby player", err)
	}
	return nil
}

// RemovePlayer removes a player from a lobby's roster.
func (l *Lobbies) RemovePlayer(ctx context.Context, lobbyID, playerID string) error {
	if err := l.kv.SetRem(ctx, kvstore.LobbyPlayersKey(lobbyID), playerID); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "remove lobby player", err)
	}
	return nil
}

// Players returns the set of player IDs currently in a lobby.
func (l *Lobbies) Players(ctx context.Context, lobbyID string) ([]string, error) {
	members, err := l.kv.SetMembers(ctx, kvstore.LobbyPlayersKey(lobbyID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list lobby players", err)
	}
	return members, nil
}

// ActiveLobbies returns all active lobby IDs, oldest first.
func (l *Lobbies) ActiveLobbies(ctx context.Context) ([]string, error) {
	ids, err := l.kv.ZSetRange(ctx, kvstore.LobbiesActiveKey(), 0, -1)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list active lobbies", err)
	}
	return ids, nil
}
