package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "fieldops/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"fieldops/internal/auth"
	"fieldops/internal/cache"
	"fieldops/internal/config"
	"fieldops/internal/db"
	"fieldops/internal/handler"
	"fieldops/internal/logging"
	"fieldops/internal/notify"
	"fieldops/internal/repository"
	"fieldops/internal/router"
	"fieldops/internal/service"
	"fieldops/internal/storage"
)

// @title Field Ops API
// @version 1.0
// @description Field-service dispatch API: technician attendance, sessions and job dispatch.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, continuing without cache")
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("file storage init")
	}

	store := repository.NewStore(gormDB)

	// Trackers
	attendance := service.NewAttendance(cfg.Timezone, cfg.RollCallScope == config.ScopeGlobal, nil)
	sessions := service.NewSessions(nil)
	dispatch := service.NewDispatch(sessions, nil)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Outbound notifications
	sms := notify.NewMSpaceSender(cfg.MSpace.BaseURL, cfg.MSpace.Username, cfg.MSpace.Password, cfg.MSpace.SenderID)
	var escalations notify.EscalationNotifier
	if slackNotifier := notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel); slackNotifier != nil {
		escalations = slackNotifier
	}

	// Initialize services
	authService := service.NewAuthService(store, attendance, sessions, jwtService, tokenStore, cfg.Regions, cfg.MaxCheckinMeters)
	userService := service.NewUserService(store.Users(), cacheClient)
	sessionService := service.NewSessionService(store, sessions, attendance)
	rollCallService := service.NewRollCallService(store, attendance)
	jobService := service.NewJobService(store, dispatch, files, escalations, cfg.Storage.MaxPhotoWidth, nil)
	reportService := service.NewReportService(store, attendance, nil)
	notificationService := service.NewNotificationService(sms)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, cfg, jwtService, tokenStore, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Session:      handler.NewSessionHandler(sessionService),
		RollCall:     handler.NewRollCallHandler(rollCallService),
		Job:          handler.NewJobHandler(jobService, cfg.Timezone),
		Report:       handler.NewReportHandler(reportService, cfg.Timezone),
		Notification: handler.NewNotificationHandler(notificationService),
	})

	log.Info().Str("url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort)).Msg("swagger documentation available")

	addr := ":" + cfg.ServerPort
	go func() {
		log.Info().Str("addr", addr).Str("db", cfg.DBDriver).Str("timezone", cfg.Timezone.String()).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

func newFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.PublicBaseURL)
	}
	return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
}

func swaggerURL(host, port string) string {
	switch {
	case host == "":
		return "http://localhost:" + port + "/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return strings.TrimRight(host, "/") + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}
