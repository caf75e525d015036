// Package gameroom implements the Game Room (component F): the simulation
// core. Hex state, the cost model, economy ticks, auto-expansion and
// terrain generation all live here, driven by a single actor goroutine per
// game supplied by the Room Runtime.
package gameroom

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hexterritory/internal/auth"
	"hexterritory/internal/data"
	"hexterritory/internal/economy"
	"hexterritory/internal/hexgrid"
	"hexterritory/internal/kvstore"
	"hexterritory/internal/roomrt"
)

// Phase is the lifecycle stage of a game room (§4.4 Lifecycle phases).
type Phase int

const (
	PhaseCreate Phase = iota
	PhaseStartWindow
	PhaseLive
	PhaseDrain
	PhaseClosed
)

// Config bundles every tunable the room needs beyond the cost model.
type Config struct {
	Cost economy.Params

	StartDelay          time.Duration
	EconomyTick         time.Duration
	AutoExpandInterval  time.Duration
	AutoCaptureThresh   int
	DrainTimeout        time.Duration

	BaseIncome        int
	StartingPoints    int
	StartingMaxPoints int
	UpgradeBankCost   int
	UpgradeFortCost   int
	UpgradeCityCost   int

	Terrain hexgrid.TerrainParams
}

// Room is one game's authoritative state and the only writer of it.
type Room struct {
	id  string
	log *zap.Logger

	rt       *roomrt.Runtime
	presence *roomrt.Presence

	auth    *auth.Service
	games   *data.Games
	hexes   *data.Hexes
	points  *data.Points
	events  *data.Events
	kv      *kvstore.Store

	cfg Config

	allowed      map[string]bool
	disconnected map[string]bool
	colors       map[string]string
	started      map[string]bool

	lobbyStartTimeMillis int64
	seed                 int64

	phase      Phase
	drainTimer *time.Timer

	tickRunning       bool
	autoExpandRunning bool
}

// New creates a game room: allocates state, generates terrain, persists the
// game record, and schedules the start-window/tick/auto-expand timers. The
// caller still must call rt.Register(room) to start its actor.
func New(id string, rt *roomrt.Runtime, authSvc *auth.Service, games *data.Games, hexes *data.Hexes, points *data.Points, events *data.Events, kv *kvstore.Store, cfg Config, allowedPlayerIDs []string, startPlayers []data.StartPlayer, lobbyStartTimeMillis, seed int64, log *zap.Logger) *Room {
	allowed := make(map[string]bool, len(allowedPlayerIDs))
	colors := make(map[string]string, len(startPlayers))
	for _, sp := range startPlayers {
		allowed[sp.PlayerID] = true
		colors[sp.PlayerID] = sp.Color
	}
	for _, id := range allowedPlayerIDs {
		allowed[id] = true
	}

	r := &Room{
		id:                   id,
		log:                  log.With(zap.String("gameId", id)),
		rt:                   rt,
		presence:             roomrt.NewPresence(),
		auth:                 authSvc,
		games:                games,
		hexes:                hexes,
		points:               points,
		events:               events,
		kv:                   kv,
		cfg:                  cfg,
		allowed:              allowed,
		disconnected:         make(map[string]bool),
		colors:               colors,
		started:              make(map[string]bool),
		lobbyStartTimeMillis: lobbyStartTimeMillis,
		seed:                 seed,
		phase:                PhaseCreate,
		// The first tick and scan are scheduled below, so both loops count as
		// running; restartLoopsIfStopped then only restarts a loop that
		// stopped itself on a KV outage.
		tickRunning:          true,
		autoExpandRunning:    true,
	}

	ctx := context.Background()
	_ = r.games.Create(ctx, &data.Game{
		ID:             id,
		CreatedAt:      time.Now(),
		Status:         data.GameActive,
		StartPlayers:   startPlayers,
		LobbyStartTime: lobbyStartTimeMillis,
		Seed:           seed,
	})
	for _, sp := range startPlayers {
		_ = r.games.AddPlayer(ctx, id, sp.PlayerID)
	}

	r.generateTerrain(ctx)
	r.phase = PhaseStartWindow

	r.scheduleStartWindowClose()
	r.scheduleEconomyTick()
	r.scheduleAutoExpand()

	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) generateTerrain(ctx context.Context) {
	terrain := hexgrid.Generate(r.seed, r.cfg.Terrain)
	for c, kind := range terrain {
		_ = r.hexes.SetHex(ctx, r.id, c, "", "", "", string(kind), false, 0)
	}
}

func (r *Room) scheduleStartWindowClose() {
	deadline := time.UnixMilli(r.lobbyStartTimeMillis).Add(r.cfg.StartDelay)
	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		r.rt.Schedule(r.id, func() {
			if r.phase == PhaseStartWindow {
				r.phase = PhaseLive
			}
		})
	})
}

func (r *Room) scheduleEconomyTick() {
	deadline := time.UnixMilli(r.lobbyStartTimeMillis).Add(r.cfg.StartDelay).Add(100 * time.Millisecond)
	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		r.rt.Schedule(r.id, func() {
			r.tickRunning = true
			r.economyTick()
		})
	})
}

func (r *Room) scheduleAutoExpand() {
	time.AfterFunc(r.cfg.AutoExpandInterval, func() {
		r.rt.Schedule(r.id, func() {
			r.autoExpandRunning = true
			r.autoExpand()
		})
	})
}

func (r *Room) inStartWindow() bool {
	now := time.Now().UnixMilli()
	end := r.lobbyStartTimeMillis + r.cfg.StartDelay.Milliseconds()
	return now >= r.lobbyStartTimeMillis && now <= end
}
