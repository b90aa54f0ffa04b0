package storage

import (
	"context"

	"github.com/voicewarden/voicewarden/statestore/types"
)

// Database is the durable storage for the state store. It holds exactly two
// logical documents: the ownership map and the member-config map, each a
// plain serialisable record-of-records.
type Database interface {
	LoadOwnerships(ctx context.Context) (map[string]*types.RoomOwnership, error)
	LoadMemberConfigs(ctx context.Context) (map[string]*types.MemberModerationConfig, error)
	SaveOwnerships(ctx context.Context, ownerships map[string]*types.RoomOwnership) error
	SaveMemberConfigs(ctx context.Context, configs map[string]*types.MemberModerationConfig) error
}
