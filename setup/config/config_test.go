package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := loadConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://matrix.example.com", cfg.Global.HomeserverURL)
	assert.Equal(t, "@warden:example.com", cfg.Global.UserID)
	// Unset sections keep their defaults.
	assert.Equal(t, 22, cfg.Moderation.BanListCapacity)
	assert.Equal(t, "!voice kick {user_id}", cfg.Moderation.Commands.Kick)
	assert.True(t, cfg.Dispatch.StartEnabled())
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	_, err := loadConfig([]byte("version: 0\n"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingKeys(t *testing.T) {
	_, err := loadConfig([]byte("version: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing config key")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := loadConfig([]byte(testConfig + "\nbogus_key: true\n"))
	assert.Error(t, err)
}

func TestModerationVerify(t *testing.T) {
	var m Moderation
	m.Defaults()
	m.RoleCheckMode = "sometimes"
	var errs ConfigErrors
	m.Verify(&errs)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "role_check_mode")

	errs = nil
	m.Defaults()
	m.VoteBan.Enabled = true
	m.VoteBan.Threshold = 1.5
	m.Verify(&errs)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "vote_ban.threshold")
}

func TestCommandTemplateRender(t *testing.T) {
	var m Moderation
	m.Defaults()
	rendered := m.Commands.Render(m.Commands.Ban, map[string]string{"user_id": "@bad:test"})
	assert.Equal(t, "!voice ban @bad:test", rendered)
}

const testConfig = `
version: 1
global:
  homeserver_url: https://matrix.example.com
  user_id: "@warden:example.com"
  access_token: secret
  bot_user_id: "@voicebot:example.com"
  database:
    connection_string: file:voicewarden.db
`
