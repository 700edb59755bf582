package main

import (
	"context"
	"flag"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"event-service/internal/config"
	"event-service/internal/db"
	"event-service/internal/handlers"
	"event-service/internal/identity"
	"event-service/internal/logging"
	"event-service/internal/middleware"
	"event-service/internal/observability"
	"event-service/internal/rabbitmq"
	"event-service/internal/repositories"
	"event-service/internal/telemetry"
	"event-service/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := logging.New("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	logger.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("audit publisher ready")

	// ws lifecycle events carry per-message request/trace headers, so they go
	// through the header-aware publisher. Left unset, PublishEvent is a no-op.
	if wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		logger.Warn().Err(err).Msg("ws event publishing disabled")
	} else {
		observability.SetPublisher(wsPublisher)
		defer wsPublisher.Close()
	}

	emitter := telemetry.NewAuditEmitter(publisher, "audit.event-service", "event-service", cfg.Environment)

	validator := identity.NewClient(cfg.IdentityURL)

	eventRepo := repositories.NewEventRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	eventHandler := handlers.NewEventHandler(eventRepo, hub, emitter)
	organizerHandler := handlers.NewOrganizerHandler(eventRepo, hub, emitter)
	programHandler := handlers.NewProgramHandler(eventRepo, hub)
	chatHandler := handlers.NewChatHandler(eventRepo, messageRepo, hub)

	chatWS := ws.NewChatWebSocketHandler(hub, eventRepo, validator)
	feedWS := ws.NewFeedWebSocketHandler(hub, validator)

	// Typing states left behind by dead connections are withdrawn on a
	// seconds-level schedule.
	sweeper := cron.New(cron.WithSeconds())
	if _, err := sweeper.AddFunc("*/5 * * * * *", func() {
		hub.SweepStaleTyping(10 * time.Second)
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule typing sweep")
	}
	sweeper.Start()
	defer sweeper.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("event-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(validator)

	router.POST("/events", authMiddleware, eventHandler.CreateEvent)
	router.GET("/events", authMiddleware, eventHandler.ListEvents)
	router.GET("/events/:event_id", authMiddleware, eventHandler.GetEvent)
	router.PATCH("/events/:event_id", authMiddleware, eventHandler.UpdateDetails)
	router.DELETE("/events/:event_id", authMiddleware, eventHandler.DeleteEvent)
	router.POST("/events/:event_id/share-password", authMiddleware, eventHandler.RotateSharePassword)

	router.POST("/events/join", authMiddleware, organizerHandler.JoinByCode)
	router.POST("/events/:event_id/join", authMiddleware, organizerHandler.RequestJoin)
	router.POST("/events/:event_id/organizers/:user_id/decision", authMiddleware, organizerHandler.DecideOrganizer)
	router.PUT("/events/:event_id/organizers/:user_id/rights", authMiddleware, organizerHandler.EditOrganizerRights)
	router.POST("/events/:event_id/organizers/:user_id/toggle", authMiddleware, organizerHandler.TogglePermission)

	router.POST("/events/:event_id/sub-events", authMiddleware, programHandler.AddSubEvent)
	router.PATCH("/events/:event_id/sub-events/:sub_event_id", authMiddleware, programHandler.UpdateSubEvent)
	router.DELETE("/events/:event_id/sub-events/:sub_event_id", authMiddleware, programHandler.DeleteSubEvent)
	router.POST("/events/:event_id/sub-events/:sub_event_id/key-moments", authMiddleware, programHandler.AddKeyMoment)

	router.POST("/events/:event_id/guests", authMiddleware, programHandler.AddGuest)
	router.PATCH("/events/:event_id/guests/:guest_id", authMiddleware, programHandler.UpdateGuest)
	router.DELETE("/events/:event_id/guests/:guest_id", authMiddleware, programHandler.RemoveGuest)
	router.PUT("/events/:event_id/guests/:guest_id/attendance", authMiddleware, programHandler.SetAttendance)

	router.GET("/events/:event_id/channels/:channel_id/messages", authMiddleware, chatHandler.ListChannelMessages)
	router.POST("/events/:event_id/channels/:channel_id/messages", authMiddleware, chatHandler.PostChannelMessage)

	router.GET("/ws/events/:event_id/channels/:channel_id", chatWS.Handle)
	router.GET("/ws/events", feedWS.Handle)

	handlers.RegisterDebugRoutes(router, emitter, cfg.Debug)

	logger.Info().Str("listen", cfg.Listen).Str("environment", cfg.Environment).Msg("event service listening")
	if err := router.Run(cfg.Listen); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
