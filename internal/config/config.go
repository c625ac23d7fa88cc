package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"unosync/internal/domain"
)

// Storage backends for the identity store.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// ClientConfig is everything the client needs before it can log in.
type ClientConfig struct {
	ServerKey string `json:"server_key"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	SSL       bool   `json:"ssl"`

	Storage     string `json:"storage"`
	SQLitePath  string `json:"sqlite_path"`
	RedisAddr   string `json:"redis_addr"`
	RedisPrefix string `json:"redis_prefix"`

	TurnLimitSeconds int             `json:"turn_limit_seconds"`
	LogLevel         string          `json:"log_level"`
	DefaultGameMode  domain.GameMode `json:"default_game_mode"`
}

// Default returns the configuration used when no file is given.
func Default() ClientConfig {
	return ClientConfig{
		ServerKey:        "defaultkey",
		Host:             "localhost",
		Port:             7350,
		Storage:          StorageSQLite,
		SQLitePath:       "uno_client.db",
		RedisAddr:        "localhost:6379",
		RedisPrefix:      "unosync:",
		TurnLimitSeconds: domain.DefaultTurnLimitSeconds,
		LogLevel:         "info",
		DefaultGameMode:  domain.GameModeTwoPlayer,
	}
}

var (
	cfg      *ClientConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadClientConfig loads the process-wide configuration once. Later calls
// return the first result.
func LoadClientConfig(path string) error {
	loadOnce.Do(func() {
		c, err := Load(path)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetClientConfig returns the process-wide configuration, or nil before LoadClientConfig.
func GetClientConfig() *ClientConfig {
	return cfg
}

// Load reads an optional .env file, the JSON file at path (when non-empty) and
// then applies UNO_* environment overrides on top of the defaults.
func Load(path string) (*ClientConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read client config: %w", err)
		}
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client config: %w", err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if c.TurnLimitSeconds <= 0 {
		c.TurnLimitSeconds = domain.DefaultTurnLimitSeconds
	}
	return &c, nil
}

func (c *ClientConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"UNO_SERVER_KEY":  &c.ServerKey,
		"UNO_HOST":        &c.Host,
		"UNO_STORAGE":     &c.Storage,
		"UNO_SQLITE_PATH": &c.SQLitePath,
		"UNO_REDIS_ADDR":  &c.RedisAddr,
		"UNO_LOG_LEVEL":   &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("UNO_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid UNO_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := lookup("UNO_SSL"); ok && v != "" {
		ssl, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid UNO_SSL %q: %w", v, err)
		}
		c.SSL = ssl
	}
	return nil
}

// Validate reports a configuration the client cannot start with.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("config: host is required")
	}
	if c.ServerKey == "" {
		return errors.New("config: server_key is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Storage {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.Storage == StorageSQLite && c.SQLitePath == "" {
		return errors.New("config: sqlite_path is required for sqlite storage")
	}
	if c.Storage == StorageRedis && c.RedisAddr == "" {
		return errors.New("config: redis_addr is required for redis storage")
	}
	if _, ok := domain.LookupMode(c.DefaultGameMode); !ok {
		return fmt.Errorf("config: unknown default_game_mode %q", c.DefaultGameMode)
	}
	return nil
}

// BaseURL returns the HTTP API root, e.g. http://localhost:7350.
func (c *ClientConfig) BaseURL() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// SocketURL returns the realtime socket root, e.g. ws://localhost:7350/ws.
func (c *ClientConfig) SocketURL() string {
	scheme := "ws"
	if c.SSL {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/ws", scheme, c.Host, c.Port)
}
