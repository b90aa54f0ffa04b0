package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/pipeline"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/process"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
	"github.com/voicewarden/voicewarden/test/testrig"
)

func newPermitRig(t *testing.T, cfg *config.Moderation) (*PermitEngine, *statestore.Store, *fakeSender) {
	t.Helper()
	proc := process.NewProcessContext()
	t.Cleanup(proc.Shutdown)

	sender := &fakeSender{}
	enabled := true
	queue := dispatch.NewQueue(proc, &config.Dispatch{
		SendInterval: time.Millisecond,
		SendTimeout:  time.Second,
		Enabled:      &enabled,
	}, sender, nil, "")

	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)
	operator := testOperator
	store.SetOwnership("!room:test", types.OwnershipUpdate{CreatorID: &operator})
	return NewPermitEngine(cfg, store, queue), store, sender
}

func TestPermitRotatesAtCapacity(t *testing.T) {
	cfg := testModerationConfig()
	cfg.PermitListCapacity = 2
	cfg.RotationNotice = ""
	engine, store, sender := newPermitRig(t, cfg)

	engine.Permit("!room:test", testOperator, "@a:test", "")
	engine.Permit("!room:test", testOperator, "@b:test", "")
	engine.Permit("!room:test", testOperator, "@c:test", "")

	assert.Equal(t, []string{"@b:test", "@c:test"}, store.MemberConfig(testOperator).PermittedUsers)

	require.Eventually(t, func() bool {
		return len(sender.sentCommands()) == 4
	}, time.Second*5, time.Millisecond*10)
	assert.Equal(t, []string{
		"!voice permit @a:test",
		"!voice permit @b:test",
		"!voice unpermit @a:test",
		"!voice permit @c:test",
	}, sender.sentCommands())
}

func TestPermitZeroCapacityIsUnbounded(t *testing.T) {
	cfg := testModerationConfig()
	cfg.PermitListCapacity = 0
	engine, store, _ := newPermitRig(t, cfg)

	engine.Permit("!room:test", testOperator, "@a:test", "")
	engine.Permit("!room:test", testOperator, "@b:test", "")
	assert.Equal(t, []string{"@a:test", "@b:test"}, store.MemberConfig(testOperator).PermittedUsers)
}

func TestPermitIsIdempotent(t *testing.T) {
	cfg := testModerationConfig()
	engine, store, _ := newPermitRig(t, cfg)

	engine.Permit("!room:test", testOperator, "@a:test", "")
	engine.Permit("!room:test", testOperator, "@a:test", "")
	assert.Equal(t, []string{"@a:test"}, store.MemberConfig(testOperator).PermittedUsers)
}

func TestUnpermit(t *testing.T) {
	cfg := testModerationConfig()
	engine, store, _ := newPermitRig(t, cfg)

	engine.Permit("!room:test", testOperator, "@a:test", "")
	engine.Unpermit("!room:test", testOperator, "@a:test", "")
	assert.Empty(t, store.MemberConfig(testOperator).PermittedUsers)
}

func TestWhitelistPolicyAllows(t *testing.T) {
	cfg := testModerationConfig()
	cfg.Whitelist = []string{"@friend:test"}

	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)
	operator := testOperator
	store.SetOwnership("!room:test", types.OwnershipUpdate{CreatorID: &operator})
	store.UpdateMemberConfig(testOperator, func(m *types.MemberModerationConfig) {
		m.WhitelistedUsers = []string{"@trusted:test"}
		m.PermittedUsers = []string{"@permitted:test"}
	})
	policy := NewWhitelistPolicy(cfg, store, testOperator)

	tests := []struct {
		userID   string
		expected pipeline.Verdict
	}{
		{testOperator, pipeline.VerdictAllow},
		{"@friend:test", pipeline.VerdictAllow},
		{"@trusted:test", pipeline.VerdictAllow},
		{"@permitted:test", pipeline.VerdictAllow},
		{"@stranger:test", pipeline.VerdictContinue},
	}
	for _, tc := range tests {
		decision := policy.OnJoin(context.Background(), &pipeline.JoinEvent{
			RoomID: "!room:test",
			UserID: tc.userID,
		})
		assert.Equal(t, tc.expected, decision.Verdict, "user %s", tc.userID)
	}
}

func TestWhitelistPolicyIgnoresUnmanagedRooms(t *testing.T) {
	cfg := testModerationConfig()
	cfg.Whitelist = []string{"@friend:test"}
	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)
	policy := NewWhitelistPolicy(cfg, store, testOperator)

	decision := policy.OnJoin(context.Background(), &pipeline.JoinEvent{
		RoomID: "!unknown:test",
		UserID: "@friend:test",
	})
	assert.Equal(t, pipeline.VerdictContinue, decision.Verdict)
}
