package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketbot/pkg/tickets"
	"gopkg.in/yaml.v3"
)

// Load reads the config file named by CONFIG_FILE, if any, and overlays the environment.
func Load(l *slog.Logger) (*Config, error) {
	return load(l, os.Getenv)
}

func load(l *slog.Logger, getenv func(string) string) (*Config, error) {
	cfg := new(Config)

	if path := getenv(EnvConfigFile); path != "" {
		l.Debug("Reading config file", slog.String("path", path))

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	overlay := []struct {
		key string
		dst *string
	}{
		{EnvBotToken, &cfg.BotToken},
		{EnvApplicationId, &cfg.ApplicationId},
		{EnvMonitoringPort, &cfg.MonitoringPort},
		{EnvMongoUri, &cfg.Store.MongoURI},
		{EnvStoreBackend, &cfg.Store.Backend},
		{EnvSqlitePath, &cfg.Store.SqlitePath},
		{EnvAmqpUri, &cfg.AMQP.URI},
		{EnvAmqpExchange, &cfg.AMQP.Exchange},
		{EnvTicketRetention, &cfg.Tickets.Retention},
	}
	for _, o := range overlay {
		if v := getenv(o.key); v != "" {
			l.Debug("Found value in environment", slog.String("key", o.key))
			*o.dst = v
		}
	}

	cfg.setDefaults(l)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults(l *slog.Logger) {
	if c.MonitoringPort == "" {
		c.MonitoringPort = defaultMonitoringPort
		l.Info("No monitoring port provided, defaulting to "+defaultMonitoringPort, slog.String("key", EnvMonitoringPort))
	}

	if c.Store.Backend == "" {
		c.Store.Backend = dataaccess.BackendSqlite
		if c.Store.MongoURI != "" {
			c.Store.Backend = dataaccess.BackendMongo
		}
	}

	if c.Tickets.CreateRate <= 0 {
		c.Tickets.CreateRate = defaultCreateRate
	}
	if c.Tickets.CreateBurst <= 0 {
		c.Tickets.CreateBurst = defaultCreateBurst
	}
}

// Validate checks that the required values are present.
func (c *Config) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvBotToken))
	}
	if c.ApplicationId == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvApplicationId))
	}

	switch c.Store.Backend {
	case dataaccess.BackendMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, fmt.Errorf("%s is required for the %s backend", EnvMongoUri, dataaccess.BackendMongo))
		}
	case dataaccess.BackendSqlite, dataaccess.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if _, err := tickets.ParseRetention(c.Tickets.Retention); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// TicketOptions builds the ticket service options.
func (c *Config) TicketOptions() (tickets.Options, error) {
	retention, err := tickets.ParseRetention(c.Tickets.Retention)
	if err != nil {
		return tickets.Options{}, err
	}

	return tickets.Options{
		ProvisionTimeout: c.Tickets.ProvisionTimeout,
		ExportTimeout:    c.Tickets.ExportTimeout,
		DeleteDelay:      c.Tickets.DeleteDelay,
		Retention:        retention,
	}, nil
}
