package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/internal/caching"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
	"github.com/voicewarden/voicewarden/test/testrig"
)

const testOperator = "@warden:test"

func TestClassify(t *testing.T) {
	tests := []struct {
		body     string
		expected ReplyKind
	}{
		{"Room created for you", ReplyCreated},
		{"Channel is ready!", ReplyCreated},
		{"@warden:test now owns this channel", ReplyClaimed},
		{"Room info: owned by @warden:test", ReplyInfo},
		{"@bad:test has been banned", ReplyBanned},
		{"@bad:test has been unbanned", ReplyUnbanned},
		{"@friend:test is now permitted", ReplyPermitted},
		{"@friend:test has been unpermitted", ReplyUnpermitted},
		{"User limit set to 10", ReplySizeSet},
		{"Channel locked", ReplyLocked},
		{"Channel unlocked", ReplyUnlocked},
		{"hello there", ReplyUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, Classify(tc.body), "body %q", tc.body)
	}
}

func newReconcilerRig(t *testing.T) (*Reconciler, *statestore.Store) {
	t.Helper()
	caches, err := caching.NewRistrettoCache(1*caching.SizeMB, false)
	require.NoError(t, err)

	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)
	operator := testOperator
	store.SetOwnership("!room:test", types.OwnershipUpdate{CreatorID: &operator})

	r := NewReconciler(store, caches, ListCapacities{Ban: 22, Permit: 22}, testOperator)
	return r, store
}

func TestSubjectPrecedence(t *testing.T) {
	r, _ := newReconcilerRig(t)

	// An explicit mention in the body wins.
	assert.Equal(t, "@bad:test", r.Subject(&api.BotReplyEvent{
		Body:          "@bad:test has been banned",
		Content:       []byte(`{"embed":{"icon_url":"https://cdn.test/avatar/@other:test"}}`),
		ReplyToSender: "@third:test",
	}))

	// Then a user ID buried in the embed icon URL.
	assert.Equal(t, "@other:test", r.Subject(&api.BotReplyEvent{
		Body:          "banned.",
		Content:       []byte(`{"embed":{"icon_url":"https://cdn.test/avatar/@other:test"}}`),
		ReplyToSender: "@third:test",
	}))

	// Then the author of the message the bot replied to.
	assert.Equal(t, "@third:test", r.Subject(&api.BotReplyEvent{
		Body:          "banned.",
		ReplyToSender: "@third:test",
	}))

	// Nothing resolvable.
	assert.Equal(t, "", r.Subject(&api.BotReplyEvent{Body: "banned."}))
}

func TestApplyBannedIsIdempotent(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1",
		RoomID:  "!room:test",
		Body:    "@bad:test has been banned",
	})
	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$2",
		RoomID:  "!room:test",
		Body:    "@bad:test has been banned",
	})
	assert.Equal(t, []string{"@bad:test"}, store.MemberConfig(testOperator).BannedUsers)
}

func TestApplyUnbannedRemoves(t *testing.T) {
	r, store := newReconcilerRig(t)
	store.UpdateMemberConfig(testOperator, func(m *types.MemberModerationConfig) {
		m.BannedUsers = []string{"@bad:test"}
	})

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1",
		RoomID:  "!room:test",
		Body:    "@bad:test has been unbanned",
	})
	assert.Empty(t, store.MemberConfig(testOperator).BannedUsers)
}

func TestApplyClaimUpdatesOwnership(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1",
		RoomID:  "!room:test",
		Body:    "@claimant:test now owns this channel",
	})
	ownership, ok := store.Ownership("!room:test")
	require.True(t, ok)
	assert.Equal(t, "@claimant:test", ownership.ClaimantID)
	assert.Equal(t, "@claimant:test", ownership.EffectiveOwner())
}

func TestApplyCreatedTracksNewRoom(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID:       "$1",
		RoomID:        "!fresh:test",
		Body:          "Room created for you",
		ReplyToSender: "@creator:test",
	})
	ownership, ok := store.Ownership("!fresh:test")
	require.True(t, ok)
	assert.Equal(t, "@creator:test", ownership.CreatorID)
}

func TestApplyCreatedIsIdempotent(t *testing.T) {
	r, store := newReconcilerRig(t)

	created := func(eventID string) *api.BotReplyEvent {
		return &api.BotReplyEvent{
			EventID:       eventID,
			RoomID:        "!fresh:test",
			Body:          "Room created for you",
			ReplyToSender: "@creator:test",
		}
	}
	r.Apply(context.Background(), created("$1"))
	first, ok := store.Ownership("!fresh:test")
	require.True(t, ok)

	// Redelivery of the same report must not move the timestamps, even when
	// the event-ID dedup hasn't caught it.
	r.Apply(context.Background(), created("$2"))
	second, _ := store.Ownership("!fresh:test")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$3", RoomID: "!fresh:test", Body: "@claimant:test now owns this channel",
	})
	claimed, _ := store.Ownership("!fresh:test")
	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$4", RoomID: "!fresh:test", Body: "@claimant:test now owns this channel",
	})
	reclaimed, _ := store.Ownership("!fresh:test")
	assert.Equal(t, claimed.ClaimedAt, reclaimed.ClaimedAt)
	assert.Equal(t, "@claimant:test", reclaimed.ClaimantID)
}

func TestApplyInfoNeverClobbers(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1",
		RoomID:  "!room:test",
		Body:    "Room info: owned by @impostor:test",
	})
	ownership, _ := store.Ownership("!room:test")
	assert.Equal(t, testOperator, ownership.CreatorID, "info must not overwrite a tracked room")
}

func TestApplySizeAndLocks(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1", RoomID: "!room:test", Body: "User limit set to 12",
	})
	assert.Equal(t, 12, store.MemberConfig(testOperator).UserLimit)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$2", RoomID: "!room:test", Body: "Channel locked",
	})
	assert.True(t, store.MemberConfig(testOperator).IsLocked)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$3", RoomID: "!room:test", Body: "Channel unlocked",
	})
	assert.False(t, store.MemberConfig(testOperator).IsLocked)
}

func TestApplyIgnoresUntrackedRooms(t *testing.T) {
	r, store := newReconcilerRig(t)

	r.Apply(context.Background(), &api.BotReplyEvent{
		EventID: "$1",
		RoomID:  "!elsewhere:test",
		Body:    "@bad:test has been banned",
	})
	assert.Empty(t, store.MemberConfig(testOperator).BannedUsers)
}
