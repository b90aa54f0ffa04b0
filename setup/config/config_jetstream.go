package config

import (
	"fmt"
)

type JetStream struct {
	// A list of NATS addresses to connect to. If none are specified, an
	// internal NATS server will be started.
	Addresses []string `yaml:"addresses"`
	// The prefix to use for stream names - really only useful if running
	// more than one voicewarden on the same NATS deployment.
	TopicPrefix string `yaml:"topic_prefix"`
	// The JetStream storage path for the embedded NATS server.
	StoragePath Path `yaml:"storage_path"`
	// Keep all storage in memory. Only useful for unit tests.
	InMemory bool `yaml:"in_memory"`
	// Disables logging in the NATS server.
	NoLog bool `yaml:"-"`
}

func (c *JetStream) Prefixed(name string) string {
	return fmt.Sprintf("%s%s", c.TopicPrefix, name)
}

func (c *JetStream) Durable(name string) string {
	return c.Prefixed(name)
}

func (c *JetStream) Defaults(generate bool) {
	c.Addresses = []string{}
	c.TopicPrefix = "Voicewarden"
	if generate {
		c.StoragePath = Path("./")
		c.NoLog = true
	}
}

func (c *JetStream) Verify(configErrs *ConfigErrors) {}
