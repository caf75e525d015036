// Package lobbyroom implements the Lobby Room (component E): pre-game
// staging, the ready countdown, and handoff into a newly created game room.
package lobbyroom

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"hexterritory/internal/apperr"
	"hexterritory/internal/auth"
	"hexterritory/internal/data"
	"hexterritory/internal/roomrt"
)

// GameFactory allocates a new game room and returns its id, used as the
// handoff at the end of a successful countdown.
type GameFactory interface {
	CreateGame(ctx context.Context, lobbyID string, allowedPlayerIDs []string, startPlayers []data.StartPlayer, lobbyStartTime int64) (gameRoomID string, err error)
}

// ReplayFactory allocates a replay room for a finished game.
type ReplayFactory interface {
	CreateReplay(ctx context.Context, gameID string) (replayRoomID string, err error)
}

type rosterEntry struct {
	Username string
	Color    string
	Started  bool
}

// Room is one lobby's in-memory roster and countdown state, run as a
// single-writer actor by the Room Runtime.
type Room struct {
	id  string
	log *zap.Logger

	rt       *roomrt.Runtime
	presence *roomrt.Presence

	auth    *auth.Service
	lobbies *data.Lobbies
	players *data.Players

	games   GameFactory
	replays ReplayFactory

	minReady      int
	countdownSecs int

	roster    map[string]*rosterEntry
	counting  bool
	remaining int
}

func New(id string, rt *roomrt.Runtime, authSvc *auth.Service, lobbies *data.Lobbies, players *data.Players, games GameFactory, replays ReplayFactory, minReady, countdownSecs int, log *zap.Logger) *Room {
	return &Room{
		id:            id,
		log:           log.With(zap.String("lobbyId", id)),
		rt:            rt,
		presence:      roomrt.NewPresence(),
		auth:          authSvc,
		lobbies:       lobbies,
		players:       players,
		games:         games,
		replays:       replays,
		minReady:      minReady,
		countdownSecs: countdownSecs,
		roster:        make(map[string]*rosterEntry),
	}
}

func (r *Room) ID() string { return r.id }

// Joined is called by the runtime once a client's websocket is registered;
// lobby admission itself happens on the "join" message so the client can
// supply its token over the same connection.
func (r *Room) Joined(client *roomrt.Client) {}

func (r *Room) Left(client *roomrt.Client) {
	if client.PlayerID != "" {
		r.presence.Remove(client.PlayerID, client)
		r.broadcastRoster()
	}
}

type joinMsg struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

type createReplayMsg struct {
	GameID string `json:"gameId"`
}

// HandleMessage is only ever invoked from this room's actor goroutine.
func (r *Room) HandleMessage(client *roomrt.Client, msgType string, raw []byte) {
	ctx := context.Background()

	switch msgType {
	case "join":
		r.handleJoin(ctx, client, raw)
	case "joinGame":
		r.handleReady(ctx, client)
	case "createReplay":
		r.handleCreateReplay(ctx, client, raw)
	default:
		r.log.Debug("unhandled lobby message", zap.String("type", msgType))
	}
}

func (r *Room) handleJoin(ctx context.Context, client *roomrt.Client, raw []byte) {
	var msg joinMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.Close(1000, "bad join payload")
		return
	}
	if !r.auth.Verify(msg.PlayerID, msg.Token) {
		client.Close(1000, "invalid token")
		return
	}

	player, err := r.players.Get(ctx, msg.PlayerID)
	if err != nil {
		client.Close(1000, "unknown player")
		return
	}

	if evicted := r.presence.Adopt(msg.PlayerID, client); evicted != nil {
		evicted.Close(1000, "duplicate session")
	}
	client.PlayerID = msg.PlayerID
	client.RoomID = r.id

	if _, ok := r.roster[msg.PlayerID]; !ok {
		r.roster[msg.PlayerID] = &rosterEntry{Username: player.Username, Color: player.Color}
		_ = r.lobbies.AddPlayer(ctx, r.id, msg.PlayerID)
	}

	client.Send(map[string]interface{}{"type": "assignedColor", "color": player.Color})
	r.broadcastRoster()
}

func (r *Room) handleReady(ctx context.Context, client *roomrt.Client) {
	entry, ok := r.roster[client.PlayerID]
	if !ok {
		return
	}
	entry.Started = true
	r.broadcastRoster()

	if r.counting {
		return
	}
	if r.readyCount() >= r.minReady {
		r.startCountdown(ctx)
	}
}

func (r *Room) readyCount() int {
	n := 0
	for _, e := range r.roster {
		if e.Started {
			n++
		}
	}
	return n
}

func (r *Room) startCountdown(ctx context.Context) {
	r.counting = true
	r.remaining = r.countdownSecs
	r.tickCountdown(ctx)
}

// tickCountdown broadcasts the remaining seconds and reschedules itself onto
// this room's actor via the runtime, so the timer fires serialize with
// inbound joins/disconnects instead of racing them.
func (r *Room) tickCountdown(ctx context.Context) {
	r.broadcast(map[string]interface{}{"type": "countdown", "seconds": r.remaining})

	if r.remaining <= 0 {
		r.counting = false
		r.launchGame(ctx)
		return
	}
	r.remaining--

	time.AfterFunc(1*time.Second, func() {
		r.rt.Schedule(r.id, func() { r.tickCountdown(ctx) })
	})
}

func (r *Room) launchGame(ctx context.Context) {
	var allowed []string
	var startPlayers []data.StartPlayer
	for playerID, e := range r.roster {
		if !e.Started {
			continue
		}
		allowed = append(allowed, playerID)
		startPlayers = append(startPlayers, data.StartPlayer{PlayerID: playerID, Username: e.Username, Color: e.Color})
	}

	lobbyStartTime := time.Now().UnixMilli()
	gameRoomID, err := r.games.CreateGame(ctx, r.id, allowed, startPlayers, lobbyStartTime)
	if err != nil {
		r.log.Error("create game failed", zap.Error(err))
		return
	}

	for _, playerID := range allowed {
		if client, ok := r.presence.Get(playerID); ok {
			client.Send(map[string]interface{}{"type": "startGame", "roomId": gameRoomID})
		}
		delete(r.roster, playerID)
		_ = r.lobbies.RemovePlayer(ctx, r.id, playerID)
	}
}

func (r *Room) handleCreateReplay(ctx context.Context, client *roomrt.Client, raw []byte) {
	var msg createReplayMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		client.Send(map[string]interface{}{"type": "replayCreated", "ok": false, "error": apperr.KindBadInput.String()})
		return
	}
	replayID, err := r.replays.CreateReplay(ctx, msg.GameID)
	if err != nil {
		client.Send(map[string]interface{}{"type": "replayCreated", "ok": false, "error": apperr.ReasonOf(err)})
		return
	}
	client.Send(map[string]interface{}{"type": "replayCreated", "ok": true, "roomId": replayID})
}

func (r *Room) broadcastRoster() {
	type entryView struct {
		PlayerID string `json:"playerId"`
		Username string `json:"username"`
		Color    string `json:"color"`
		Started  bool   `json:"started"`
	}
	views := make([]entryView, 0, len(r.roster))
	for id, e := range r.roster {
		views = append(views, entryView{PlayerID: id, Username: e.Username, Color: e.Color, Started: e.Started})
	}
	r.broadcast(map[string]interface{}{"type": "rosterUpdate", "players": views})
}

func (r *Room) broadcast(v interface{}) {
	r.presence.Each(func(_ string, client *roomrt.Client) {
		client.Send(v)
	})
}
