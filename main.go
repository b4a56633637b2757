package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"couple-service/internal/auth"
	"couple-service/internal/config"
	"couple-service/internal/db"
	"couple-service/internal/ephemeral"
	"couple-service/internal/handlers"
	"couple-service/internal/janitor"
	"couple-service/internal/logging"
	"couple-service/internal/middleware"
	"couple-service/internal/observability"
	"couple-service/internal/presence"
	"couple-service/internal/rabbitmq"
	"couple-service/internal/repositories"
	"couple-service/internal/storage"
	"couple-service/internal/telemetry"
	"couple-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Development())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	media, err := storage.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Endpoint)
	if err != nil {
		logger.Fatal("failed to init media storage", zap.Error(err))
	}

	tracker, err := presence.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PresenceTTL)
	if err != nil {
		logger.Warn("presence disabled", zap.Error(err))
		tracker = presence.Noop{}
	}
	if closer, ok := tracker.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	bus := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer bus.Close()
	logger.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(bus)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(bus)))
	observability.SetPublisher(bus)
	audit := telemetry.NewAuditEmitter(bus, cfg.AuditRouteKey, cfg.ServiceName, cfg.Environment)

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("failed to init token verifier", zap.Error(err))
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	memoryRepo := repositories.NewMemoryRepo(database)
	profileRepo := repositories.NewProfileRepo(database)

	hub := ws.NewHub()

	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, profileRepo, tracker, media, hub, audit)
	mediaHandler := handlers.NewMediaHandler(chatRepo, media, cfg.MaxUploadMB<<20, audit)
	memoryHandler := handlers.NewMemoryHandler(chatRepo, memoryRepo, media, hub, audit)
	profileHandler := handlers.NewProfileHandler(profileRepo)

	chatWS := ws.NewChatWebSocketHandler(hub, chatRepo, messageRepo, verifier, tracker, media, ephemeral.SystemClock{})
	gameWS := ws.NewGameWebSocketHandler(hub, chatRepo, verifier)

	purger := janitor.New(messageRepo, media, ephemeral.SystemClock{}, cfg.PurgeBatch)
	stopPurge := purger.Start(ctx, cfg.PurgeInterval)
	defer stopPurge()

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestIDMiddleware())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugRoutes)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	stopSweep := limiter.StartCleanup(time.Minute, cfg.RateLimitIdle)
	defer stopSweep()
	api := router.Group("/", middleware.AuthMiddleware(verifier), limiter.Handler())

	api.GET("/chats", chatHandler.ListChats)
	api.POST("/chats/start", chatHandler.StartChat)
	api.GET("/chats/:chat_id/messages", chatHandler.GetChatMessages)
	api.POST("/chats/:chat_id/messages", chatHandler.PostChatMessage)
	api.POST("/chats/:chat_id/messages/media", chatHandler.PostMediaMessage)
	api.DELETE("/chats/:chat_id/messages/:message_id/me", chatHandler.DeleteMessageForMe)
	api.DELETE("/chats/:chat_id/messages/:message_id/all", chatHandler.DeleteMessageForAll)
	api.DELETE("/chats/:chat_id/me", chatHandler.DeleteChatForMe)
	api.POST("/chats/:chat_id/media", mediaHandler.Upload)

	api.GET("/chats/:chat_id/memories", memoryHandler.ListMemories)
	api.POST("/chats/:chat_id/memories", memoryHandler.CreateMemory)
	api.DELETE("/chats/:chat_id/memories/:memory_id", memoryHandler.DeleteMemory)

	api.GET("/profile", profileHandler.GetProfile)
	api.PUT("/profile", profileHandler.UpdateProfile)

	router.GET("/ws/chats/:chat_id", chatWS.Handle)
	router.GET("/ws/games/:chat_id", gameWS.Handle)

	grpcServer, health := observability.NewHealthServer(cfg.ServiceName)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal("failed to listen for grpc", zap.Error(err))
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc server stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("grpc_port", cfg.GRPCPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	hub.CloseAll()
	chatWS.Wait()
	gameWS.Wait()
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", zap.Error(err))
	}
}
