// Package config loads runtime configuration from the environment (optionally
// seeded from a .env file) and holds the lifecycle constants of the grievance engine.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// DefaultJWTSecret is the placeholder JWT_SECRET shipped in the defaults.
// Tokens signed with it can be forged by anyone who has read this file.
const DefaultJWTSecret = "change-me"

// ErrInsecureSecret is returned by CheckSecrets outside debug mode.
var ErrInsecureSecret = errors.New("JWT_SECRET is unset or still the default")

// Config is the process configuration shared by the server, the admin CLI and the MCP server.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// StorageDriver selects the persistence backend: sqlite, postgres or redis.
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	StorageKey    string `envconfig:"STORAGE_KEY" default:"grievance_complaints"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"incluverse.db"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"user"`
	DBPassword    string `envconfig:"DB_PASSWORD" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"incluversedb"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// RemoteMode selects the sync authority: stub, http or redis.
	RemoteMode    string `envconfig:"REMOTE_MODE" default:"stub"`
	RemoteURL     string `envconfig:"REMOTE_URL" default:""`
	RemoteChannel string `envconfig:"REMOTE_CHANNEL" default:"grievances:sync"`

	// ProbeURL, when set, is polled to drive the connectivity signal.
	ProbeURL string `envconfig:"PROBE_URL" default:""`
	// StartOnline is the initial connectivity state when no prober is configured.
	StartOnline bool `envconfig:"START_ONLINE" default:"true"`

	// StatusPolicy is strict (transition table) or permissive (any to any).
	StatusPolicy string `envconfig:"STATUS_POLICY" default:"strict"`

	// EventsRelay fans lifecycle events out to other instances over Redis pub/sub.
	EventsRelay   bool   `envconfig:"EVENTS_RELAY" default:"false"`
	EventsChannel string `envconfig:"EVENTS_CHANNEL" default:"grievances:events"`

	JWTSecret       string `envconfig:"JWT_SECRET" default:"change-me"`
	LocalizationDir string `envconfig:"LOCALIZATION_DIR" default:""`

	// ResponderKeyHash is the bcrypt hash of the key that unlocks responder tokens.
	ResponderKeyHash string `envconfig:"RESPONDER_KEY_HASH" default:""`

	// PublicURL is the base of the tracking links printed on receipts.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" default:""`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID" default:"0"`
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	return &cfg, nil
}

// PostgresDSN builds the DSN for the postgres storage driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// SetupLogging applies LogLevel to the global logrus logger.
func (c *Config) SetupLogging() {
	level, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		log.WithError(err).Warnf("unknown log level %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// CheckSecrets rejects the placeholder JWT secret. In debug mode it only logs a
// warning so local development keeps working without a .env file.
func (c *Config) CheckSecrets() error {
	if c.JWTSecret != "" && c.JWTSecret != DefaultJWTSecret {
		return nil
	}
	if strings.EqualFold(c.LogLevel, "debug") {
		log.Warn("JWT_SECRET is the default placeholder, responder tokens can be forged")
		return nil
	}
	return fmt.Errorf("%w: set JWT_SECRET or run with LOG_LEVEL=debug", ErrInsecureSecret)
}
