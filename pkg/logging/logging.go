package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	// KeyError is the key used for errors in log attributes.
	KeyError = "err"

	// KeyDal is the key used to identify the data access layer.
	KeyDal = "dal"

	// KeyGuildID is the key used for guild IDs.
	KeyGuildID = "guild_id"

	// KeyChannelID is the key used for channel IDs.
	KeyChannelID = "channel_id"

	// KeyUserID is the key used for user IDs.
	KeyUserID = "user_id"

	// EnvLogLevel is the environment variable for the log level.
	EnvLogLevel = `LOG_LEVEL`
)

// Name is the name of the application the logger is created for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// appName is the name of the application.
	appName string

	// level is the minimum level that is written.
	level slog.Level
}

// NewConfig creates a new logging configuration. The level is read from LOG_LEVEL and defaults to info.
func NewConfig(name Name) *Config {
	return &Config{
		appName: string(name),
		level:   parseLevel(os.Getenv(EnvLogLevel)),
	}
}

// CommonLogger creates the JSON logger used across the application and sets it as the default.
func CommonLogger(cfg *Config) (*slog.Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config is nil")
	} else if cfg.appName == "" {
		return nil, fmt.Errorf("logging config has no app name")
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: cfg.level == slog.LevelDebug,
		Level:     cfg.level,
	})

	l := slog.New(h).With(slog.String("app", cfg.appName))
	slog.SetDefault(l)
	return l, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
