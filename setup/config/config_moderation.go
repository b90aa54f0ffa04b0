package config

import (
	"fmt"
	"strings"
	"time"
)

// RoleCheckMode controls how the required-role list is evaluated against the
// roles a joining member holds.
type RoleCheckMode string

const (
	// RoleCheckAll requires the member to hold every listed role.
	RoleCheckAll RoleCheckMode = "all"
	// RoleCheckAny requires the member to hold at least one listed role.
	RoleCheckAny RoleCheckMode = "any"
	// RoleCheckNone requires the member to hold none of the listed roles.
	RoleCheckNone RoleCheckMode = "none"
)

// Moderation configures the join policies and the command surface of the
// external bot. The loaded struct is handed to the policy modules as a live
// object: the host may mutate it at runtime and modules read it per event.
type Moderation struct {
	// Templates for the text commands understood by the external bot.
	Commands CommandTemplates `yaml:"commands"`

	// Capacity of the persisted ban list per owner. When a new ban would
	// exceed it, the oldest entry is evicted via an unban command first.
	// Zero leaves the list unbounded.
	BanListCapacity int `yaml:"ban_list_capacity"`

	// Capacity of the permit list per owner, same eviction semantics.
	PermitListCapacity int `yaml:"permit_list_capacity"`

	// Template for the message announcing a rotation eviction. Supports
	// {evicted_id} and {user_id}. Empty disables the announcement.
	RotationNotice string `yaml:"rotation_notice"`

	// How long after a kick a repeated policy failure escalates straight to
	// a ban. Zero or negative disables the window check entirely: any
	// failing join after any prior kick escalates.
	KickEscalationCooldown time.Duration `yaml:"kick_escalation_cooldown"`

	// Users that are always allowed into managed rooms. Checked before any
	// deny policy runs.
	Whitelist []string `yaml:"whitelist"`

	// A local deny list, independent of the per-owner persisted ban list.
	Blacklist        []string `yaml:"blacklist"`
	BlacklistEnabled bool     `yaml:"blacklist_enabled"`

	// Whether the platform-level blocked relationship is consulted.
	BlockedEnabled bool `yaml:"blocked_enabled"`

	// Role requirement for joining members. An empty list disables the
	// check. A member with no role data fails the check in every mode.
	RequiredRoles []string      `yaml:"required_roles"`
	RoleCheckMode RoleCheckMode `yaml:"role_check_mode"`

	// Round-robin room renaming. A zero interval or an empty rotation list
	// on the owner's record makes the feature a no-op.
	NameRotationInterval time.Duration `yaml:"name_rotation_interval"`

	// Vote-ban settings.
	VoteBan VoteBan `yaml:"vote_ban"`

	// The prefix that marks a room message as a control command for this
	// daemon, e.g. "!".
	CommandPrefix string `yaml:"command_prefix"`
}

// CommandTemplates holds the literal command text sent to the bot, with
// {user_id}, {name} and {size} placeholder substitution.
type CommandTemplates struct {
	Kick     string `yaml:"kick"`
	Ban      string `yaml:"ban"`
	Unban    string `yaml:"unban"`
	Permit   string `yaml:"permit"`
	Unpermit string `yaml:"unpermit"`
	Claim    string `yaml:"claim"`
	Info     string `yaml:"info"`
	Name     string `yaml:"name"`
	Size     string `yaml:"size"`
	Lock     string `yaml:"lock"`
	Unlock   string `yaml:"unlock"`
}

// Render substitutes the given placeholder values into a template.
func (t CommandTemplates) Render(template string, values map[string]string) string {
	out := template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

type VoteBan struct {
	Enabled bool `yaml:"enabled"`

	// The fraction of current room occupants whose votes are required,
	// rounded up. 0.5 with 4 occupants means 2 distinct voters.
	Threshold float64 `yaml:"threshold"`

	// How long a vote stays open before it expires.
	Window time.Duration `yaml:"window"`
}

func (c *Moderation) Defaults() {
	c.Commands = CommandTemplates{
		Kick:     "!voice kick {user_id}",
		Ban:      "!voice ban {user_id}",
		Unban:    "!voice unban {user_id}",
		Permit:   "!voice permit {user_id}",
		Unpermit: "!voice unpermit {user_id}",
		Claim:    "!voice claim",
		Info:     "!voice info",
		Name:     "!voice name {name}",
		Size:     "!voice limit {size}",
		Lock:     "!voice lock",
		Unlock:   "!voice unlock",
	}
	c.BanListCapacity = 22
	c.PermitListCapacity = 22
	c.KickEscalationCooldown = time.Minute * 5
	c.RoleCheckMode = RoleCheckAny
	c.NameRotationInterval = 0
	c.VoteBan = VoteBan{
		Enabled:   false,
		Threshold: 0.5,
		Window:    time.Minute * 2,
	}
	c.CommandPrefix = "!vw"
}

func (c *Moderation) Verify(configErrs *ConfigErrors) {
	checkPositive(configErrs, "moderation.ban_list_capacity", int64(c.BanListCapacity))
	checkPositive(configErrs, "moderation.permit_list_capacity", int64(c.PermitListCapacity))
	switch c.RoleCheckMode {
	case RoleCheckAll, RoleCheckAny, RoleCheckNone:
	default:
		configErrs.Add(fmt.Sprintf(
			"invalid value for config key \"moderation.role_check_mode\": %q", c.RoleCheckMode,
		))
	}
	if c.VoteBan.Enabled {
		if c.VoteBan.Threshold <= 0 || c.VoteBan.Threshold > 1 {
			configErrs.Add(fmt.Sprintf(
				"invalid value for config key \"moderation.vote_ban.threshold\": %v", c.VoteBan.Threshold,
			))
		}
		checkPositive(configErrs, "moderation.vote_ban.window", int64(c.VoteBan.Window))
	}
}
