package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"voiceauth/internal/config"
	"voiceauth/internal/core"
	"voiceauth/internal/httpapi"
	"voiceauth/internal/ratelimit"
	"voiceauth/internal/store"
	"voiceauth/internal/worker"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("VOICEAUTH_CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("failed to prepare data directories: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("voiceprint store initialized at %s", cfg.DBPath)

	engine := core.New(core.Params{
		SampleRate:            cfg.SampleRate,
		NMFCC:                 cfg.NMFCC,
		MinAudioDurationS:     cfg.MinAudioDurationS,
		MaxAudioDurationS:     cfg.MaxAudioDurationS,
		MinSpeechDurationS:    cfg.MinSpeechDurationS,
		VerificationThreshold: cfg.VerificationThreshold,
		LivenessThreshold:     cfg.LivenessThreshold,
		QualityMin:            cfg.QualityMin,
		ProcessSecret:         cfg.ProcessSecret,
		PBKDF2Iterations:      cfg.PBKDF2Iterations,
		FFmpegPath:            cfg.FFmpegPath,
	}, db)

	limiter := ratelimit.New()
	handler := httpapi.NewHandler(engine, limiter, cfg.AllowedFormats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepInterval := time.Duration(cfg.RetentionSweepIntervalS) * time.Second
	retentionWindow := time.Duration(cfg.RetentionWindowS) * time.Second
	w := worker.New(db, sweepInterval, retentionWindow)
	w.Start(ctx)
	defer w.Stop()

	e := echo.New()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","method":"${method}",` +
			`"uri":"${uri}","status":${status},"latency_ms":${latency_human},"error":"${error}"}` + "\n",
	}))
	e.Use(middleware.Recover())

	e.GET("/health", handler.Health)
	e.POST("/users/:id/enroll", handler.Enroll)
	e.PUT("/users/:id/enroll", handler.Reenroll)
	e.POST("/users/:id/verify", handler.Verify)
	e.DELETE("/users/:id", handler.Delete)
	e.GET("/users/:id/record", handler.Record)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		_ = e.Close()
	}()

	log.Printf("starting voiceauthd v%s on %s", version, cfg.Addr)
	if err := e.Start(cfg.Addr); err != nil {
		log.Println("server stopped")
	}
}
