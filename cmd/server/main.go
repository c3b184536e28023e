// Package main runs the MeetBalls HTTP server with WebSocket support and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meetballs/backend/config"
	"github.com/meetballs/backend/internal/agenda"
	"github.com/meetballs/backend/internal/auth"
	"github.com/meetballs/backend/internal/mail"
	"github.com/meetballs/backend/internal/meetings"
	"github.com/meetballs/backend/internal/middleware"
	"github.com/meetballs/backend/internal/participants"
	"github.com/meetballs/backend/internal/realtime"
	"github.com/meetballs/backend/internal/suggestions"
	"github.com/meetballs/backend/internal/uploads"
	"github.com/meetballs/backend/internal/zoom"
	"github.com/meetballs/backend/pkg/database"
	"github.com/meetballs/backend/pkg/queue"
	"github.com/meetballs/backend/pkg/redis"
	"github.com/meetballs/backend/pkg/response"
	"github.com/meetballs/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			Bucket:               cfg.AWS.Bucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	passwordCipher, err := meetings.NewPasswordCipher(cfg.Meeting.Secret)
	if err != nil {
		logger.Fatal("meeting cipher", zap.Error(err))
	}

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Meetings
	meetingRepo := meetings.NewRepository(pool)

	// Agenda
	agendaRepo := agenda.NewRepository(pool)

	// Participants and invitations
	participantRepo := participants.NewRepository(pool)
	magicLink := participants.NewMagicLink(cfg.MagicLink.Secret)
	mailer := mail.NewMailer(cfg.Email, logger)
	mailLog := mail.NewLogRepository(pool)

	// Suggestions
	suggestionRepo := suggestions.NewRepository(pool)

	notifier := realtime.NewNotifier(hub, meetingRepo, agendaRepo, participantRepo, suggestionRepo, logger)

	meetingHandler := meetings.NewHandler(meetingRepo, authRepo, passwordCipher, notifier, logger)
	agendaHandler := agenda.NewHandler(agendaRepo, meetingRepo, notifier, logger)
	participantHandler := participants.NewHandler(participantRepo, meetingRepo, magicLink, mailer, mailLog, notifier, logger, cfg.App.ClientURL)
	suggestionHandler := suggestions.NewHandler(suggestionRepo, meetingRepo, notifier, logger)

	// Zoom integration
	jobQueue := queue.NewQueue(rdb.Client, logger)
	zoomClient := zoom.NewClient(cfg.Zoom, logger)
	recordingRepo := zoom.NewRecordingRepository(pool)
	zoomHandler := zoom.NewHandler(zoomClient, authRepo, meetingRepo, passwordCipher, logger)
	zoomWebhook := zoom.NewWebhookHandler(cfg.Zoom, meetingRepo, participantRepo, recordingRepo, authRepo, jobQueue, notifier, logger)

	jwtValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Email, nil
	}
	wsHostValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}
	hostOf := func(ctx context.Context, meetingID uuid.UUID) (uuid.UUID, error) {
		m, err := meetingRepo.GetByID(ctx, meetingID)
		if err != nil {
			return uuid.Nil, err
		}
		return m.HostID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Host API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtValidate))
	{
		api.GET("/users/me", authHandler.Me)

		// Meetings
		api.GET("/meetings", meetingHandler.List)
		api.POST("/meetings", meetingHandler.Create)
		api.GET("/meetings/:id", meetingHandler.Get)
		api.PATCH("/meetings/:id", meetingHandler.Update)
		api.DELETE("/meetings/:id", meetingHandler.Delete)
		api.POST("/meetings/:id/start", meetingHandler.Start)
		api.POST("/meetings/:id/next", meetingHandler.Next)
		api.POST("/meetings/:id/end", meetingHandler.End)

		// Agenda
		api.GET("/meetings/:id/agenda", agendaHandler.List)
		api.POST("/meetings/:id/agenda", agendaHandler.Insert)
		api.PUT("/meetings/:id/agenda/positions", agendaHandler.Reorder)
		api.PATCH("/meetings/:id/agenda/:position", agendaHandler.Update)
		api.DELETE("/meetings/:id/agenda/:position", agendaHandler.Delete)

		// Roster and invitations
		api.GET("/meetings/:id/participants", participantHandler.List)
		api.POST("/meetings/:id/participants", participantHandler.Add)
		api.PATCH("/meetings/:id/participants/:participant_id/role", participantHandler.UpdateRole)
		api.DELETE("/meetings/:id/participants/:participant_id", participantHandler.Remove)
		api.POST("/meetings/:id/participants/:participant_id/invite", participantHandler.Invite)
		api.POST("/meetings/:id/participants/invite", participantHandler.InviteBatch)

		// Suggestions (host view)
		api.GET("/meetings/:id/suggestions", suggestionHandler.List)
		api.POST("/meetings/:id/suggestions/:suggestion_id/accept", suggestionHandler.Accept)

		// Zoom
		api.POST("/zoom/link", zoomHandler.Link)
		api.DELETE("/zoom/link", zoomHandler.Unlink)
		api.GET("/zoom/meetings", zoomHandler.ListUpcoming)
		api.POST("/meetings/zoom/import", zoomHandler.Import)
	}

	// Participant API (magic-link token in X-Participant header)
	pAPI := router.Group("/participant")
	pAPI.Use(middleware.Participant(participantHandler.Resolve))
	{
		pAPI.GET("/meeting", meetingHandler.GetForParticipant)
		pAPI.POST("/validate", participantHandler.Validate)
		pAPI.POST("/leave", participantHandler.Leave)

		pAPI.GET("/suggestions", suggestionHandler.ListForParticipant)
		pAPI.POST("/suggestions", suggestionHandler.Create)
		pAPI.PATCH("/suggestions/:suggestion_id", suggestionHandler.Update)
		pAPI.DELETE("/suggestions/:suggestion_id", suggestionHandler.Delete)
	}

	if s3Client != nil {
		uploadHandler := uploads.NewHandler(s3Client, logger)
		pAPI.POST("/uploads/upload-url", uploadHandler.UploadURL)
		pAPI.POST("/uploads/download-url", uploadHandler.DownloadURL)
	}

	// Webhooks (no JWT; verification token checked in handler)
	router.POST("/webhooks/zoom", zoomWebhook.Handle)

	// WebSocket (token or participant in query; no Authorization header)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsHostValidate, participantHandler.Resolve, hostOf))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
