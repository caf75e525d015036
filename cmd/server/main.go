package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hexterritory/internal/auth"
	"hexterritory/internal/config"
	"hexterritory/internal/data"
	"hexterritory/internal/economy"
	"hexterritory/internal/gameroom"
	"hexterritory/internal/hexgrid"
	"hexterritory/internal/httpapi"
	"hexterritory/internal/kvstore"
	"hexterritory/internal/logging"
	"hexterritory/internal/matchmaker"
	"hexterritory/internal/roomrt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log, err := logging.New(cfg.Production)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting", zap.String("name", cfg.ServerName), zap.String("version", cfg.ServerVersion))

	kv := kvstore.New(cfg, log)

	players := data.NewPlayers(kv)
	lobbies := data.NewLobbies(kv)
	games := data.NewGames(kv)
	hexes := data.NewHexes(kv)
	points := data.NewPoints(kv, hexes, cfg.StartingPoints, cfg.StartingMaxPoints)
	events := data.NewEvents(kv)

	authSvc := auth.New(cfg.AuthSecret, cfg.PlayerColors, players)
	rt := roomrt.New(log)

	gameCfg := gameroom.Config{
		Cost: economy.Params{
			HexValue:      cfg.HexValue,
			ExpGrowth:     cfg.ExpGrowth,
			OccupiedBase:  cfg.OccupiedBase,
			AttackMult:    cfg.AttackMult,
			RiverDiscount: cfg.RiverDiscount,
		},
		StartDelay:         time.Duration(cfg.StartDelayMillis) * time.Millisecond,
		EconomyTick:        time.Duration(cfg.EconomyTickMillis) * time.Millisecond,
		AutoExpandInterval: time.Duration(cfg.AutoExpandIntervalMillis) * time.Millisecond,
		AutoCaptureThresh:  cfg.AutoCaptureThreshold,
		DrainTimeout:       time.Duration(cfg.DrainTimeoutSecs) * time.Second,
		BaseIncome:         cfg.BaseIncome,
		StartingPoints:     cfg.StartingPoints,
		StartingMaxPoints:  cfg.StartingMaxPoints,
		UpgradeBankCost:    cfg.UpgradeBankCost,
		UpgradeFortCost:    cfg.UpgradeFortCost,
		UpgradeCityCost:    cfg.UpgradeCityCost,
		Terrain: hexgrid.TerrainParams{
			MountainChainsMin:    cfg.MountainChainsMin,
			MountainChainsMax:    cfg.MountainChainsMax,
			MountainChainLength:  cfg.MountainChainLength,
			MountainChainSpacing: cfg.MountainChainSpacing,
			MountainAreaSize:     cfg.MountainAreaSize,
			MountainDensity:      cfg.MountainDensity,
			MountainZigzagChance: cfg.MountainZigzagChance,
			RiverCount:           cfg.RiverCount,
			RiverLength:          cfg.RiverLength,
			RiverMinSpacing:      cfg.RiverMinSpacing,
			RiverForkChance:      cfg.RiverForkChance,
			RiverForkLength:      cfg.RiverForkLength,
		},
	}

	mm := matchmaker.New(matchmaker.Deps{
		Runtime:       rt,
		Auth:          authSvc,
		KV:            kv,
		Lobbies:       lobbies,
		Games:         games,
		Hexes:         hexes,
		Points:        points,
		Events:        events,
		Players:       players,
		GameConfig:    gameCfg,
		MinReady:      cfg.MinReadyPlayers,
		CountdownSecs: cfg.LobbyCountdownSecs,
	}, log)

	api := httpapi.New(httpapi.Config{
		Production: cfg.Production,
		StaticDir:  "web/static",
	}, authSvc, events, games, rt, mm, log)

	httpServer := &http.Server{
		Addr:         cfg.GetListenAddress(),
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("listening", zap.String("addr", cfg.GetListenAddress()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	performGracefulShutdown(httpServer, kv, cfg, log)
}

// performGracefulShutdown drains in-flight HTTP requests before the process
// exits. Room actors drain themselves independently (§4.4 Drain phase) and
// are not forcibly torn down here.
func performGracefulShutdown(httpServer *http.Server, kv *kvstore.Store, cfg *config.Config, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSecs)*time.Second)
	defer cancel()

	log.Info("stopping http server")
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("http server shutdown error", zap.Error(err))
	}

	log.Info("closing kv store")
	if err := kv.Close(); err != nil {
		log.Error("kv store close error", zap.Error(err))
	}

	log.Info("shutdown complete")
}
