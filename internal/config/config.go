// Package config defines the configuration contract and will handle loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyChannelToken    = "CHANNEL_ACCESS_TOKEN"
	KeyChannelSecret   = "CHANNEL_SECRET"
	KeyMongoURI        = "MONGO_URI"
	KeyMongoDB         = "MONGO_DB"
	KeyAppEnv          = "APP_ENV"
	KeyLogLevel        = "LOG_LEVEL"
	KeyHTTPPort        = "HTTP_PORT"
	KeyBroadcastHour   = "BROADCAST_HOUR"
	KeyBroadcastMinute = "BROADCAST_MINUTE"
	KeyCronSecret      = "CRON_SECRET"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv          = EnvProduction
	DefaultLogLevel        = "info"
	DefaultHTTPPort        = 8080
	DefaultBroadcastHour   = 7
	DefaultBroadcastMinute = 0

	// Recommended database names by environment.
	DefaultMongoDBProd = "countdown_bot"
	DefaultMongoDBDev  = "countdown_bot_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyChannelToken,
		Example:     "long-lived-channel-access-token",
		Required:    true,
		Description: "LINE Messaging API channel access token.",
	},
	{
		Key:         KeyChannelSecret,
		Example:     "32-hex-channel-secret",
		Required:    true,
		Description: "LINE channel secret used to verify webhook signatures.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP webhook/diagnostics port.",
	},
	{
		Key:         KeyBroadcastHour,
		Example:     strconv.Itoa(DefaultBroadcastHour),
		Default:     strconv.Itoa(DefaultBroadcastHour),
		Description: "Hour of day (Asia/Taipei) for the scheduled countdown broadcast.",
	},
	{
		Key:         KeyBroadcastMinute,
		Example:     strconv.Itoa(DefaultBroadcastMinute),
		Default:     strconv.Itoa(DefaultBroadcastMinute),
		Description: "Minute of hour for the scheduled countdown broadcast.",
	},
	{
		Key:         KeyCronSecret,
		Example:     "random-bearer-token",
		Description: "Optional bearer token protecting the external cron trigger endpoint.",
		Notes:       "When unset, GET /jobs/daily requires no authorization.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	ChannelToken    string
	ChannelSecret   string
	MongoURI        string
	MongoDB         string
	AppEnv          string
	LogLevel        string
	HTTPPort        int
	BroadcastHour   int
	BroadcastMinute int
	CronSecret      string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:          firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		ChannelToken:    strings.TrimSpace(os.Getenv(KeyChannelToken)),
		ChannelSecret:   strings.TrimSpace(os.Getenv(KeyChannelSecret)),
		MongoURI:        strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:         strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:        firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:        DefaultHTTPPort,
		BroadcastHour:   DefaultBroadcastHour,
		BroadcastMinute: DefaultBroadcastMinute,
		CronSecret:      strings.TrimSpace(os.Getenv(KeyCronSecret)),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.ChannelToken == "" {
		missing = append(missing, KeyChannelToken)
	}

	if cfg.ChannelSecret == "" {
		missing = append(missing, KeyChannelSecret)
	}

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	port, err := parseBoundedInt(KeyHTTPPort, 1, 65535, DefaultHTTPPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTPPort = port

	hour, err := parseBoundedInt(KeyBroadcastHour, 0, 23, DefaultBroadcastHour)
	if err != nil {
		return Config{}, err
	}
	cfg.BroadcastHour = hour

	minute, err := parseBoundedInt(KeyBroadcastMinute, 0, 59, DefaultBroadcastMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.BroadcastMinute = minute

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// FormatRedacted renders the resolved configuration with secrets masked, for
// startup diagnostics.
func (c Config) FormatRedacted() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s=%s\n", KeyAppEnv, c.AppEnv)
	fmt.Fprintf(&b, "%s=%s\n", KeyChannelToken, redact(c.ChannelToken))
	fmt.Fprintf(&b, "%s=%s\n", KeyChannelSecret, redact(c.ChannelSecret))
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoURI, redact(c.MongoURI))
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoDB, c.MongoDB)
	fmt.Fprintf(&b, "%s=%s\n", KeyLogLevel, c.LogLevel)
	fmt.Fprintf(&b, "%s=%d\n", KeyHTTPPort, c.HTTPPort)
	fmt.Fprintf(&b, "%s=%d\n", KeyBroadcastHour, c.BroadcastHour)
	fmt.Fprintf(&b, "%s=%02d\n", KeyBroadcastMinute, c.BroadcastMinute)
	fmt.Fprintf(&b, "%s=%s", KeyCronSecret, redact(c.CronSecret))

	return b.String()
}

func redact(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

func parseBoundedInt(key string, min, max, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return value, nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
