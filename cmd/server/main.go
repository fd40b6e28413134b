package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/evgenius1424/need-for-fun/internal/admin"
	"github.com/evgenius1424/need-for-fun/internal/api"
	"github.com/evgenius1424/need-for-fun/internal/config"
	"github.com/evgenius1424/need-for-fun/internal/room"
	"github.com/evgenius1424/need-for-fun/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  NEED FOR FUN - ARENA SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server
	startedAt := time.Now()

	log.Printf("🗺️ Map dir: %s (default map %q, default room %q)",
		serverCfg.MapDir, serverCfg.DefaultMap, serverCfg.DefaultRoom)
	if appConfig.Turn.URL != "" {
		log.Printf("🧊 TURN relay configured: %s", appConfig.Turn.URL)
	}

	// Room lifecycle audit log.
	audit := room.NewEventLog()
	if err := audit.Start(appConfig.Audit.Path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if appConfig.Audit.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.Audit.Path)
	}

	manager := room.NewManager(startedAt, audit)

	// Internal observability server (pprof + /metrics), localhost only.
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	defaults := session.Defaults{
		RoomID:  serverCfg.DefaultRoom,
		MapName: serverCfg.DefaultMap,
		MapDir:  serverCfg.MapDir,
	}
	ice := api.IceConfig{
		StunURL:      "stun:stun.l.google.com:19302",
		TurnURL:      appConfig.Turn.URL,
		TurnUsername: appConfig.Turn.Username,
		TurnPassword: appConfig.Turn.Password,
	}
	server := api.NewServer(manager, defaults, ice, startedAt)

	// Admin console on stdin.
	console := admin.NewConsole(manager, serverCfg.MapDir, serverCfg.DefaultMap)
	go console.Run(os.Stdin)

	go func() {
		addr := fmt.Sprintf(":%d", serverCfg.Port)
		log.Printf("🌐 Listening on %s (ws endpoint /ws)", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	for _, summary := range manager.ListRooms() {
		_ = manager.CloseRoom(summary.RoomID, "server_shutdown")
	}
	server.Stop()
	audit.Stop()
	log.Println("👋 Goodbye!")
}
