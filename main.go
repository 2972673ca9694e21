package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rithiksai/scribble-game/config"
	"github.com/rithiksai/scribble-game/feed"
	"github.com/rithiksai/scribble-game/game"
	"github.com/rithiksai/scribble-game/logger"
	"github.com/rithiksai/scribble-game/migrations"
	"github.com/rithiksai/scribble-game/storage"
	"github.com/rithiksai/scribble-game/ws"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 10 * time.Second
	wordBufferSize  = 64
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, "Scribble Game Server is running!") })

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// RegisterRoutes mounts the room listing, open to any client that passes CORS,
// and the websocket endpoint, which only browsers on an allowed origin may open.
func RegisterRoutes(r *gin.Engine, handler *ws.Handler, allowedOrigins []string) {
	r.GET("/api/rooms", handler.ListRoomsHandler)
	r.GET("/ws", requireOrigin(allowedOrigins), handler.WebsocketHandler)
}

func requireOrigin(allowedOrigins []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if slices.Contains(allowedOrigins, ctx.Request.Header.Get("Origin")) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Debugf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start))
	}
}

func gameSettings(cfg *config.Config) game.Settings {
	settings := game.DefaultSettings()
	settings.RoundDuration = cfg.Round.Duration
	settings.GracePeriod = cfg.Round.GracePeriod
	settings.RestartDelay = cfg.Round.RestartDelay
	return settings
}

func connectionOptions(cfg *config.Config) ws.Options {
	opts := ws.DefaultOptions()
	opts.GuessRate = rate.Limit(cfg.Limits.GuessRate)
	opts.GuessBurst = cfg.Limits.GuessBurst
	return opts
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	logger.Setup(os.Stdout, cfg.Debug)
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	// Dependencies
	var words game.RandomWordsGenerator = game.NewWordList(game.DefaultWords)
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			logger.Fatalf("Migrations failed: %v", err)
		}
		repo, err := storage.NewPostgresRepo(context.Background(), cfg.PostgresURL)
		if err != nil {
			logger.Fatalf("Postgres unavailable: %v", err)
		}
		defer repo.Close()
		buffered := game.NewBufferedWords(repo, words, wordBufferSize)
		defer buffered.Close()
		words = buffered
		logger.Info("Words are served from postgres")
	}

	opts := []game.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		rounds := feed.NewKafkaFeed(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer rounds.Close()
		opts = append(opts, game.WithRoundFeed(rounds))
		logger.Infof("Round results are published to kafka topic %s", cfg.Kafka.Topic)
	}

	hub := ws.NewHub()
	coordinator := game.NewCoordinator(game.NewRegistry(), hub, words, game.NewClockScheduler(), gameSettings(cfg), opts...)

	r := CreateServer(cfg.HTTP.AllowedOrigins)
	RegisterRoutes(r, ws.NewHandler(hub, coordinator, coordinator.Registry(), cfg.HTTP.AllowedOrigins, connectionOptions(cfg)), cfg.HTTP.AllowedOrigins)

	srv := &http.Server{Addr: ":" + cfg.HTTP.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server stopped: %v", err)
		}
	}()
	logger.Infof("Server started on port %s", cfg.HTTP.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	logger.Info("SIGTERM or SIGINT received, closing connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warningf("HTTP shutdown: %v", err)
	}

	// websocket connections are hijacked, so Shutdown does not wait for them
	hub.Close()
	for hub.Len() > 0 && ctx.Err() == nil {
		time.Sleep(50 * time.Millisecond)
	}
	coordinator.StopAll()
	logger.Info("Shutting down now")
}
