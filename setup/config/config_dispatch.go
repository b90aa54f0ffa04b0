package config

import "time"

// Dispatch configures the outbound command queue.
type Dispatch struct {
	// Minimum spacing between two consecutive command sends, measured from
	// the completion of one send to the start of the next attempt.
	SendInterval time.Duration `yaml:"send_interval"`

	// How long a single send may take before it is abandoned and the item
	// dropped.
	SendTimeout time.Duration `yaml:"send_timeout"`

	// Substrings that force an enqueued command into the priority class
	// regardless of what the caller asked for. Ownership-establishing
	// commands (claim, info) must not be starved behind bulk moderation.
	PriorityKeywords []string `yaml:"priority_keywords"`

	// Whether the queue worker starts enabled. When disabled the worker
	// halts without discarding items; work resumes when re-enabled.
	Enabled *bool `yaml:"enabled"`
}

func (c *Dispatch) Defaults() {
	c.SendInterval = time.Second * 2
	c.SendTimeout = time.Second * 10
	c.PriorityKeywords = []string{"claim", "info"}
}

func (c *Dispatch) StartEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *Dispatch) Verify(configErrs *ConfigErrors) {
	checkPositive(configErrs, "dispatch.send_interval", int64(c.SendInterval))
	checkPositive(configErrs, "dispatch.send_timeout", int64(c.SendTimeout))
	if c.SendTimeout == 0 {
		configErrs.Add("config key \"dispatch.send_timeout\" must not be zero")
	}
}
