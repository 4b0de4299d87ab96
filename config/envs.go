package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	ProxyIP   string // Address the servers bind to
	GrpcPort  int    // Port for the gRPC server
	HTTPPort  int    // Port for the HTTP/WebSocket server
	PublicURL string // Base URL players use to reach the HTTP server

	ResultsFile string // JSON-lines file for game results, empty keeps them in memory

	OpponentDelay time.Duration // Pause before the computer answers a move
	TickInterval  time.Duration // Length of one countdown second
	MazeSeed      int64         // Seed for maze generation, 0 for a random seed

	LogLevel string
}

// Envs holds the configuration once Load has run.
var Envs Config

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}
	return fromEnv()
}

// LoadFile is like Load but reads the given env files instead of .env.
// Values already set in the environment win.
func LoadFile(filenames ...string) (Config, error) {
	if err := godotenv.Load(filenames...); err != nil {
		return Config{}, fmt.Errorf("loading env files: %w", err)
	}
	return fromEnv()
}

func fromEnv() (Config, error) {
	var (
		c   Config
		err error
	)

	c.ProxyIP = getEnv("PROXY_IP", "0.0.0.0")
	c.PublicURL = getEnv("PUBLIC_URL", "http://localhost:8080")
	c.ResultsFile = getEnv("RESULTS_FILE", "data/results.jsonl")
	c.LogLevel = getEnv("LOG_LEVEL", "info")

	if c.GrpcPort, err = getEnvAsInt("GRPC_PORT", 50051); err != nil {
		return Config{}, err
	}
	if c.HTTPPort, err = getEnvAsInt("HTTP_PORT", 8080); err != nil {
		return Config{}, err
	}

	delayMs, err := getEnvAsInt("OPPONENT_DELAY_MS", 500)
	if err != nil {
		return Config{}, err
	}
	if delayMs <= 0 {
		return Config{}, fmt.Errorf("environment variable OPPONENT_DELAY_MS must be positive, got %d", delayMs)
	}
	c.OpponentDelay = time.Duration(delayMs) * time.Millisecond

	tickMs, err := getEnvAsInt("TICK_INTERVAL_MS", 1000)
	if err != nil {
		return Config{}, err
	}
	if tickMs <= 0 {
		return Config{}, fmt.Errorf("environment variable TICK_INTERVAL_MS must be positive, got %d", tickMs)
	}
	c.TickInterval = time.Duration(tickMs) * time.Millisecond

	seed, err := getEnvAsInt("MAZE_SEED", 0)
	if err != nil {
		return Config{}, err
	}
	c.MazeSeed = int64(seed)

	return c, nil
}

// getEnv retrieves the value of an environment variable or def when unset.
func getEnv(key, def string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return def
	}
	return value
}

// getEnvAsInt retrieves the value of an environment variable as an integer,
// def when unset, or an error when it cannot be parsed.
func getEnvAsInt(key string, def int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}
