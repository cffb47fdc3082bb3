package config

import (
	"time"

	"github.com/Jacobbrewer1/ticketbot/pkg/dataaccess"
)

const (
	// AppName is the name of the application.
	AppName = "ticketbot"

	// EnvConfigFile is the environment variable for the optional YAML config file.
	EnvConfigFile = `CONFIG_FILE`

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvStoreBackend is the environment variable for the store backend.
	EnvStoreBackend = `STORE_BACKEND`

	// EnvSqlitePath is the environment variable for the SQLite database file.
	EnvSqlitePath = `SQLITE_PATH`

	// EnvAmqpUri is the environment variable for the RabbitMQ URI. Events are not published when it is empty.
	EnvAmqpUri = `AMQP_URI`

	// EnvAmqpExchange is the environment variable for the RabbitMQ exchange.
	EnvAmqpExchange = `AMQP_EXCHANGE`

	// EnvTicketRetention is the environment variable for the closed ticket retention policy.
	EnvTicketRetention = `TICKET_RETENTION`
)

const (
	defaultMonitoringPort = "8080"
	defaultCreateRate     = 1.0
	defaultCreateBurst    = 5
)

// Config is the configuration of the bot.
type Config struct {
	// BotToken is the token for the bot.
	BotToken string `yaml:"bot_token"`

	// ApplicationId is the ID of the application.
	ApplicationId string `yaml:"application_id"`

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string `yaml:"monitoring_port"`

	// Store selects the storage backend.
	Store dataaccess.Config `yaml:"store"`

	// AMQP configures event publishing.
	AMQP AMQP `yaml:"amqp"`

	// Tickets tunes the ticket service.
	Tickets Tickets `yaml:"tickets"`
}

type AMQP struct {
	URI      string `yaml:"uri"`
	Exchange string `yaml:"exchange"`
}

type Tickets struct {
	// Retention is "retain" or "delete".
	Retention string `yaml:"retention"`

	ProvisionTimeout time.Duration `yaml:"provision_timeout"`
	ExportTimeout    time.Duration `yaml:"export_timeout"`
	DeleteDelay      time.Duration `yaml:"delete_delay"`

	// TranscriptLimit is the most messages exported into a transcript.
	TranscriptLimit int `yaml:"transcript_limit"`

	// CreateRate is how many ticket channels may be created per second, with bursts of CreateBurst.
	CreateRate  float64 `yaml:"create_rate"`
	CreateBurst int     `yaml:"create_burst"`
}
