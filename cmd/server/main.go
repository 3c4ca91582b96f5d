// Package main is the entry point of the application
package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/castlebridge/play-server/internal/auth"
	"github.com/castlebridge/play-server/pkg/config"
	"github.com/castlebridge/play-server/pkg/events"
	"github.com/castlebridge/play-server/pkg/game"
	"github.com/castlebridge/play-server/pkg/matchmaking"
	"github.com/castlebridge/play-server/pkg/server"
	"github.com/castlebridge/play-server/pkg/store"
)

// App encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Hub       *server.Hub
	Server    *http.Server

	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// Initialize logger
	logger := initLogger(*debug)
	defer logger.Sync()

	// A missing .env file is fine; the environment may be set directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("loading env error", zap.Error(err))
	}

	cfg := config.Default()
	cfg.Debug = *debug
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			logger.Fatal("loading config file error", zap.Error(err))
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		logger.Fatal("loading env config error", zap.Error(err))
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize event publisher
	publisher := events.NewPublisher()

	// Initialize player store
	var players store.PlayerStore
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("connecting to redis error", zap.Error(err))
		}
		players = redisStore
		logger.Info("using redis player store")
	} else {
		players = store.NewMemoryStore()
		logger.Info("using in-memory player store")
	}

	// Record finished games back into the player store
	store.NewRecorder(players, logger).Attach(publisher)

	registry := game.NewRegistry(logger)
	queue := matchmaking.NewQueue(logger)

	hub := server.NewHub(registry, queue, players, publisher, cfg.InitialTime, logger)

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Hub:       hub,
		Publisher: publisher,
		StartTime: time.Now(),
	}

	go app.Hub.Run()

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Shut down hub
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	app.Logger.Info("All components shut down successfully")
}
