package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"
	"liyu1981.xyz/relay-sync-service/pkg/agent"
	"liyu1981.xyz/relay-sync-service/pkg/common"
)

func main() {
	configPath := flag.String("config", "agent.yaml", "path to the agent configuration file")
	flag.Parse()

	cfg, err := agent.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	common.UseLogFile("agent.log")
	logger := common.GetCategoryLogger(common.LoggerNameRelayAgent, common.LoggerCategoryAgentSync)

	coord := agent.NewCoordinatorClient(cfg.CoordinatorURL, cfg.DeviceID, cfg.RequestTimeout)
	relay := agent.NewMemoryRelay(false)
	a := agent.New(cfg, coord, relay, agent.NewProcessUptime(), agent.NewSystemClock())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handlers.LoggingHandler(os.Stdout, agent.NewRouter(a)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting agent control surface", zap.String("addr", cfg.ListenAddr), zap.String("device_id", cfg.DeviceID))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("agent http server failed to serve: %v", err)
		}
	}()

	a.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("agent http server shutdown failed", zap.Error(err))
	}
	_ = logger.Sync()
}
