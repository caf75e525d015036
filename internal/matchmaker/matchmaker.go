// Package matchmaker wires the Lobby, Game and Replay rooms together: it
// allocates lobbies, hands a ready lobby off into a new game room, and
// allocates replay rooms on request. It is the concrete GameFactory and
// ReplayFactory the Lobby Room depends on.
package matchmaker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hexterritory/internal/apperr"
	"hexterritory/internal/auth"
	"hexterritory/internal/data"
	"hexterritory/internal/gameroom"
	"hexterritory/internal/kvstore"
	"hexterritory/internal/lobbyroom"
	"hexterritory/internal/replayroom"
	"hexterritory/internal/roomrt"
)

// Matchmaker owns lobby allocation and the game/replay factories. Matching
// the single-room-per-gameId rule (§5), every call runs through one
// instance bound to one Room Runtime.
type Matchmaker struct {
	rt   *roomrt.Runtime
	auth *auth.Service
	kv   *kvstore.Store

	lobbies *data.Lobbies
	games   *data.Games
	hexes   *data.Hexes
	points  *data.Points
	events  *data.Events
	players *data.Players

	gameCfg       gameroom.Config
	minReady      int
	countdownSecs int

	log *zap.Logger

	mu             sync.Mutex
	activeLobbies  map[string]*lobbyroom.Room
}

type Deps struct {
	Runtime *roomrt.Runtime
	Auth    *auth.Service
	KV      *kvstore.Store
	Lobbies *data.Lobbies
	Games   *data.Games
	Hexes   *data.Hexes
	Points  *data.Points
	Events  *data.Events
	Players *data.Players

	GameConfig    gameroom.Config
	MinReady      int
	CountdownSecs int
}

func New(deps Deps, log *zap.Logger) *Matchmaker {
	return &Matchmaker{
		rt:            deps.Runtime,
		auth:          deps.Auth,
		kv:            deps.KV,
		lobbies:       deps.Lobbies,
		games:         deps.Games,
		hexes:         deps.Hexes,
		points:        deps.Points,
		events:        deps.Events,
		players:       deps.Players,
		gameCfg:       deps.GameConfig,
		minReady:      deps.MinReady,
		countdownSecs: deps.CountdownSecs,
		log:           log,
		activeLobbies: make(map[string]*lobbyroom.Room),
	}
}

// OpenLobby returns an existing joinable lobby or allocates a new one,
// registering it with the Room Runtime on first use.
func (m *Matchmaker) OpenLobby(ctx context.Context) (*lobbyroom.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.activeLobbies {
		return room, nil
	}

	lobbyID := uuid.NewString()
	if err := m.lobbies.Create(ctx, &data.Lobby{ID: lobbyID, Status: data.LobbyActive}); err != nil {
		return nil, err
	}

	room := lobbyroom.New(lobbyID, m.rt, m.auth, m.lobbies, m.players, m, m, m.minReady, m.countdownSecs, m.log)
	m.activeLobbies[lobbyID] = room
	m.rt.Register(room)
	return room, nil
}

// Lobby returns a previously opened lobby room, if still registered.
func (m *Matchmaker) Lobby(lobbyID string) (*lobbyroom.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.activeLobbies[lobbyID]
	return room, ok
}

// CreateGame implements lobbyroom.GameFactory: it allocates a fresh seed,
// builds the game room and registers it as the sole room for its gameId.
func (m *Matchmaker) CreateGame(ctx context.Context, lobbyID string, allowedPlayerIDs []string, startPlayers []data.StartPlayer, lobbyStartTimeMillis int64) (string, error) {
	m.mu.Lock()
	delete(m.activeLobbies, lobbyID)
	m.mu.Unlock()

	gameID := uuid.NewString()
	seed := randomSeed()

	room := gameroom.New(gameID, m.rt, m.auth, m.games, m.hexes, m.points, m.events, m.kv, m.gameCfg, allowedPlayerIDs, startPlayers, lobbyStartTimeMillis, seed, m.log)
	m.rt.Register(room)
	return gameID, nil
}

// CreateReplay implements lobbyroom.ReplayFactory.
func (m *Matchmaker) CreateReplay(ctx context.Context, gameID string) (string, error) {
	if _, err := m.games.Get(ctx, gameID); err != nil {
		return "", apperr.Wrap(apperr.KindNotFound, "game not found", err)
	}

	replayID := uuid.NewString()
	room, err := replayroom.New(ctx, replayID, gameID, m.events, m.rt, m.log)
	if err != nil {
		return "", err
	}
	m.rt.Register(room)
	return replayID, nil
}

func randomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
