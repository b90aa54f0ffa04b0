package config

import (
	"time"
)

type Global struct {
	// The base URL of the homeserver to connect to, e.g. "https://matrix.org".
	HomeserverURL string `yaml:"homeserver_url"`

	// The fully-qualified user ID that voicewarden acts as. Rooms whose
	// effective owner is this user are the rooms that get moderated.
	UserID string `yaml:"user_id"`

	// The access token for UserID.
	AccessToken string `yaml:"access_token"`

	// The user ID of the external moderation bot. Messages from this identity
	// are parsed as command replies; messages to it are the outbound commands.
	BotUserID string `yaml:"bot_user_id"`

	// The state database.
	DatabaseOptions DatabaseOptions `yaml:"database"`

	// JetStream configuration
	JetStream JetStream `yaml:"jetstream"`

	// Metrics configuration
	Metrics Metrics `yaml:"metrics"`

	// Sentry configuration
	Sentry Sentry `yaml:"sentry"`
}

func (c *Global) Defaults(generate bool) {
	if generate {
		c.HomeserverURL = "http://localhost:8008"
		c.UserID = "@warden:localhost"
		c.BotUserID = "@voicebot:localhost"
		c.DatabaseOptions.ConnectionString = "file:voicewarden.db"
	}
	c.JetStream.Defaults(generate)
	c.Metrics.Defaults()
	c.Sentry.Defaults()
}

func (c *Global) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "global.homeserver_url", c.HomeserverURL)
	checkNotEmpty(configErrs, "global.user_id", c.UserID)
	checkNotEmpty(configErrs, "global.access_token", c.AccessToken)
	checkNotEmpty(configErrs, "global.bot_user_id", c.BotUserID)
	checkNotEmpty(configErrs, "global.database.connection_string", string(c.DatabaseOptions.ConnectionString))
	c.JetStream.Verify(configErrs)
	c.Metrics.Verify(configErrs)
	c.Sentry.Verify(configErrs)
}

// The configuration to use for Prometheus metrics
type Metrics struct {
	// Whether or not the metrics are enabled
	Enabled bool `yaml:"enabled"`
	// The address to listen on for the /metrics endpoint.
	ListenAddress string `yaml:"listen_address"`
}

func (c *Metrics) Defaults() {
	c.Enabled = false
	c.ListenAddress = "localhost:9300"
}

func (c *Metrics) Verify(configErrs *ConfigErrors) {
	if c.Enabled {
		checkNotEmpty(configErrs, "global.metrics.listen_address", c.ListenAddress)
	}
}

// The configuration to use for Sentry error reporting
type Sentry struct {
	Enabled bool `yaml:"enabled"`
	// The DSN to connect to e.g "https://examplePublicKey@o0.ingest.sentry.io/0"
	// See https://docs.sentry.io/platforms/go/configuration/options/
	DSN string `yaml:"dsn"`
	// The environment e.g "production"
	// See https://docs.sentry.io/platforms/go/configuration/environments/
	Environment string `yaml:"environment"`
}

func (c *Sentry) Defaults() {
	c.Enabled = false
}

func (c *Sentry) Verify(configErrs *ConfigErrors) {
	if c.Enabled {
		checkNotEmpty(configErrs, "global.sentry.dsn", c.DSN)
	}
}

type DatabaseOptions struct {
	// The connection string, e.g. file:voicewarden.db
	ConnectionString DataSource `yaml:"connection_string"`
	// Maximum open connections to the DB (0 = use default, negative means unlimited)
	MaxOpenConnections int `yaml:"max_open_conns"`
	// Maximum idle connections to the DB (0 = use default, negative means unlimited)
	MaxIdleConnections int `yaml:"max_idle_conns"`
	// maximum amount of time (in seconds) a connection may be reused (<= 0 means unlimited)
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime"`
}

// ConnMaxLifetime returns maximum amount of time a connection may be reused
func (c DatabaseOptions) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSeconds) * time.Second
}

// LogrusHook represents a single logrus hook. At this point, only parsing and
// verification of the proper values for type and level are done.
// Validity/integrity checks on the parameters are done when configuring logrus.
type LogrusHook struct {
	// The type of hook, currently only "file" is supported.
	Type string `yaml:"type"`

	// The level of the logs to produce. Will output only this level and above.
	Level string `yaml:"level"`

	// The parameters for this hook.
	Params map[string]interface{} `yaml:"params"`
}
