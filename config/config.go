package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rithiksai/scribble-game/logger"
)

type HTTPServer struct {
	Port           string
	AllowedOrigins []string
	GinMode        string
}

type Round struct {
	Duration     time.Duration
	GracePeriod  time.Duration
	RestartDelay time.Duration
}

type Limits struct {
	GuessRate  float64
	GuessBurst int
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Config struct {
	HTTP        HTTPServer
	Round       Round
	Limits      Limits
	PostgresURL string
	Kafka       Kafka
	Debug       bool
}

// Load reads an env file (the -config flag, or .env when present) and then
// the environment. Variables already set in the environment win over the file.
func Load(args []string) (*Config, error) {
	flags := flag.NewFlagSet("scribble", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to env file")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			return nil, fmt.Errorf("loading env from %s: %w", *configPath, err)
		}
		logger.Infof("[config] using env from %s", *configPath)
	} else if err := godotenv.Load(); err == nil {
		logger.Infof("[config] using env from .env")
	}

	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []string
	seconds := func(key string, def int) time.Duration {
		n, err := strconv.Atoi(getenv(key, strconv.Itoa(def)))
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be a positive number of seconds", key))
			return time.Duration(def) * time.Second
		}
		return time.Duration(n) * time.Second
	}

	origins := getenv("ALLOWED_ORIGINS", getenv("CLIENT_URL", "http://localhost:3000"))

	cfg := &Config{
		HTTP: HTTPServer{
			Port:           getenv("PORT", "5000"),
			AllowedOrigins: splitList(origins),
			GinMode:        os.Getenv("GIN_MODE"),
		},
		Round: Round{
			Duration:     seconds("ROUND_SECONDS", 60),
			GracePeriod:  seconds("GRACE_SECONDS", 5),
			RestartDelay: seconds("RESTART_SECONDS", 3),
		},
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "scribble-rounds"),
		},
	}

	rate, err := strconv.ParseFloat(getenv("GUESS_RATE", "2"), 64)
	if err != nil || rate <= 0 {
		errs = append(errs, "GUESS_RATE must be a positive number")
		rate = 2
	}
	burst, err := strconv.Atoi(getenv("GUESS_BURST", "5"))
	if err != nil || burst <= 0 {
		errs = append(errs, "GUESS_BURST must be a positive integer")
		burst = 5
	}
	cfg.Limits = Limits{GuessRate: rate, GuessBurst: burst}

	debug, err := strconv.ParseBool(getenv("DEBUG", "false"))
	if err != nil {
		errs = append(errs, "DEBUG must be a boolean")
	}
	cfg.Debug = debug

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
