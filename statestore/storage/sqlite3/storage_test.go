package sqlite3

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseOptions{
		ConnectionString: config.DataSource("file:" + t.TempDir() + "/test.db"),
	})
	require.NoError(t, err)
	return db.(*Database)
}

func TestDocumentsRoundTrip(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	err := db.SaveOwnerships(ctx, map[string]*types.RoomOwnership{
		"!room:test": {
			RoomID:    "!room:test",
			CreatorID: "@creator:test",
			CreatedAt: &now,
		},
	})
	require.NoError(t, err)

	err = db.SaveMemberConfigs(ctx, map[string]*types.MemberModerationConfig{
		"@creator:test": {
			BannedUsers: []string{"@bad:test"},
			UserLimit:   8,
		},
	})
	require.NoError(t, err)

	ownerships, err := db.LoadOwnerships(ctx)
	require.NoError(t, err)
	require.Contains(t, ownerships, "!room:test")
	assert.Equal(t, "@creator:test", ownerships["!room:test"].CreatorID)
	require.NotNil(t, ownerships["!room:test"].CreatedAt)
	assert.True(t, now.Equal(*ownerships["!room:test"].CreatedAt))

	members, err := db.LoadMemberConfigs(ctx)
	require.NoError(t, err)
	require.Contains(t, members, "@creator:test")
	assert.Equal(t, []string{"@bad:test"}, members["@creator:test"].BannedUsers)
	assert.Equal(t, 8, members["@creator:test"].UserLimit)
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	ownerships, err := db.LoadOwnerships(ctx)
	require.NoError(t, err)
	assert.Empty(t, ownerships)

	members, err := db.LoadMemberConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestSaveOverwrites(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, db.SaveOwnerships(ctx, map[string]*types.RoomOwnership{
		"!room:test": {RoomID: "!room:test", CreatorID: "@creator:test"},
	}))
	require.NoError(t, db.SaveOwnerships(ctx, map[string]*types.RoomOwnership{}))

	ownerships, err := db.LoadOwnerships(ctx)
	require.NoError(t, err)
	assert.Empty(t, ownerships)
}
