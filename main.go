package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/broadcast"
	"github.com/Sforrego/mtgkingdoms-backend/config"
	"github.com/Sforrego/mtgkingdoms-backend/game"
	"github.com/Sforrego/mtgkingdoms-backend/logger"
	"github.com/Sforrego/mtgkingdoms-backend/monitor"
	"github.com/Sforrego/mtgkingdoms-backend/persistence"
	"github.com/Sforrego/mtgkingdoms-backend/player"
	"github.com/Sforrego/mtgkingdoms-backend/roles"
	"github.com/Sforrego/mtgkingdoms-backend/room"
	"github.com/Sforrego/mtgkingdoms-backend/rpc"
	"github.com/Sforrego/mtgkingdoms-backend/server"
	"github.com/Sforrego/mtgkingdoms-backend/services"
	"github.com/Sforrego/mtgkingdoms-backend/session"
	"github.com/Sforrego/mtgkingdoms-backend/timer"
)

const gaugeRefreshInterval = 15 * time.Second

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	seeded, err := persistence.SeedRoles(ctx, db, persistence.RolesFromConfig(cfg.Roles))
	if err != nil {
		cancel()
		logger.Log.Fatalf("Failed to seed roles: %v", err)
	}
	if seeded {
		logger.Log.Infof("Seeded %d roles from configuration", len(cfg.Roles))
	}
	catalog := roles.NewCatalog(nil)
	err = catalog.Load(ctx, db)
	cancel()
	if err != nil {
		logger.Log.Fatalf("Failed to load roles: %v", err)
	}
	logger.Log.Infof("Loaded %d roles", catalog.Len())

	// Metrics
	mon := monitor.NewMonitor("mtgkingdoms")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Game core
	rooms := room.NewRoomManager()
	directory := player.NewDirectory()
	sessions := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(rooms, directory, sessions)
	engine := game.NewEngine(rooms, directory, catalog, db, broadcaster, mon, game.Options{
		DefaultRoomCode:        cfg.Game.DefaultRoomCode,
		PersistTimeout:         cfg.Game.PersistTimeout,
		RoomIdleTTL:            cfg.Game.RoomIdleTTL,
		AllowRoleChoiceDefault: cfg.Game.AllowRoleChoiceDefault,
	})
	if _, err := engine.EnsureDefaultRoom(); err != nil {
		logger.Log.Fatalf("Failed to open default room: %v", err)
	}

	playerService := services.NewPlayerService(db)

	// 初始化RPC服务器
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewGameService(playerService, cfg.Game.PersistTimeout))
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	go rpcServer.Start()

	gameServer := server.NewGameServer(server.Options{
		Addr:              cfg.Server.HTTPAddress,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		StatsTimeout:      cfg.Game.PersistTimeout,
	}, engine, sessions, playerService, mon)

	// Housekeeping
	timers := timer.NewTimerManager(time.Second)
	if cfg.Server.HeartbeatInterval > 0 {
		timers.Every("reap-sessions", cfg.Server.HeartbeatInterval, func(now time.Time) {
			if n := gameServer.ReapStaleSessions(now); n > 0 {
				logger.Log.Infof("Reaped %d stale sessions", n)
			}
		})
	}
	if cfg.Game.RoomIdleTTL > 0 {
		timers.Every("sweep-rooms", cfg.Game.RoomIdleTTL/2, func(now time.Time) {
			engine.SweepIdleRooms(now)
		})
	}
	timers.Every("refresh-gauges", gaugeRefreshInterval, func(time.Time) {
		engine.RefreshGauges()
	})

	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Log.Infof("Received %s, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	timers.Stop()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Game server shutdown: %v", err)
	}
	rpcServer.Stop()
	if err := mon.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Metrics server shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		logger.Log.Warnf("Closing database: %v", err)
	}
	logger.Log.Info("Server stopped")
}
