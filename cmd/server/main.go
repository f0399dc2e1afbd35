package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/db"
	"liyu1981.xyz/relay-sync-service/pkg/deviceclient"
	iotGrpc "liyu1981.xyz/relay-sync-service/pkg/grpc"
	iotHttp "liyu1981.xyz/relay-sync-service/pkg/http"
	"liyu1981.xyz/relay-sync-service/pkg/iot"
	"liyu1981.xyz/relay-sync-service/pkg/notify"
	"liyu1981.xyz/relay-sync-service/pkg/telemetry"
)

func main() {
	var err error

	err = godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	cfg, err := common.LoadServerConfig()
	if err != nil {
		log.Fatal(err)
	}

	var dbInstance *db.DB
	switch cfg.DBType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown IOT_DB_TYPE: " + cfg.DBType)
	}

	logger := common.GetLogger()

	opts := iot.DefaultOptions()
	opts.HeartbeatStale = cfg.HeartbeatStale
	opts.PriceStale = cfg.PriceStale
	opts.PollTimeout = cfg.PollTimeout
	opts.PushCooldownMin = cfg.PushCooldownMin
	opts.PushCooldownMax = cfg.PushCooldownMax

	iotCore := iot.New(*dbInstance, opts)
	iotCore.WithServices(iotCore.DefaultServices())

	notifier, err := notify.New(cfg)
	if err != nil {
		log.Fatalf("failed to set up %s notifier: %v", cfg.NotifyTransport, err)
	}
	defer notifier.Close()

	collaborators := iot.CollaboratorOpts{
		DeviceClient: deviceclient.New(cfg.PollTimeout),
		Notifier:     notifier,
	}
	if cfg.InfluxURL != "" {
		influx := telemetry.NewInflux(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer influx.Close()
		collaborators.Telemetry = influx
	}
	iotCore.WithCollaborators(collaborators)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	iotCore.RunLoops(ctx, iot.LoopOpts{
		LivenessInterval:  cfg.LivenessInterval,
		PushInterval:      cfg.PushInterval,
		ReconcileInterval: cfg.ReconcileInterval,
	})
	logger.Info("Coordinator loops started",
		zap.Duration("liveness_interval", cfg.LivenessInterval),
		zap.Duration("push_interval", cfg.PushInterval),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
		zap.String("notify_transport", cfg.NotifyTransport))

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		iotGrpcServer := iotGrpc.IOTServer{
			Iot:              iotCore,
			RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
		}
		interceptor := iotGrpcServer.CreateRateLimitInterceptor([]string{
			iotGrpc.MethodGetSnapshot,
			iotGrpc.MethodGetStatus,
			iotGrpc.MethodManualControl,
			iotGrpc.MethodReconcile,
		})
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		iotGrpc.RegisterRelayAdminServer(grpcServer, &iotGrpcServer)
		logger.Info("gRPC server created with:",
			zap.String("default_limiter",
				fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("start gRPC server on " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				log.Fatalf("grpc server failed to serve: %v", err)
			}
		}()
	}

	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Iot:              iotCore,
		RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	// operator dashboards call the API from the browser
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(rs.Server)

	httpServer := &http.Server{
		Addr:              cfg.HttpHostPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	iotCore.WaitPushes()
	_ = logger.Sync()
}
