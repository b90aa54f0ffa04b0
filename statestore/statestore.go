// Package statestore keeps the room-ownership records and the per-owner
// moderation lists in memory, backed by durable storage with debounced,
// coalesced writes.
package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/statestore/storage"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// DefaultFlushDelay is the debounce window for persistence. Repeated
// mutations within the window coalesce into a single durable write.
const DefaultFlushDelay = time.Millisecond * 500

type Store struct {
	db         storage.Database
	flushDelay time.Duration

	mu         sync.Mutex
	ownerships map[string]*types.RoomOwnership
	members    map[string]*types.MemberModerationConfig
	flushTimer *time.Timer
}

func NewStore(db storage.Database, flushDelay time.Duration) *Store {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Store{
		db:         db,
		flushDelay: flushDelay,
		ownerships: map[string]*types.RoomOwnership{},
		members:    map[string]*types.MemberModerationConfig{},
	}
}

// Load populates the in-memory maps from durable storage. A failed load
// leaves the store usable but empty: a cold start is a valid state, not a
// fatal one.
func (s *Store) Load(ctx context.Context) {
	ownerships, err := s.db.LoadOwnerships(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load ownership records, starting cold")
		ownerships = map[string]*types.RoomOwnership{}
	}
	members, err := s.db.LoadMemberConfigs(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to load member configs, starting cold")
		members = map[string]*types.MemberModerationConfig{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerships = ownerships
	s.members = members
}

// Ownership returns a copy of the ownership record for a room, if managed.
func (s *Store) Ownership(roomID string) (types.RoomOwnership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ownerships[roomID]
	if !ok {
		return types.RoomOwnership{}, false
	}
	return *o, true
}

// Ownerships returns a copy of all ownership records, keyed by room ID.
func (s *Store) Ownerships() map[string]types.RoomOwnership {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.RoomOwnership, len(s.ownerships))
	for roomID, o := range s.ownerships {
		out[roomID] = *o
	}
	return out
}

// SetOwnership merges the partial update onto any existing record for the
// room, creating one if needed, and schedules a save. The merge is shallow:
// nil fields in the update leave existing values alone.
func (s *Store) SetOwnership(roomID string, update types.OwnershipUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ownerships[roomID]
	if !ok {
		o = &types.RoomOwnership{RoomID: roomID}
		s.ownerships[roomID] = o
	}
	if update.CreatorID != nil {
		o.CreatorID = *update.CreatorID
	}
	if update.ClaimantID != nil {
		o.ClaimantID = *update.ClaimantID
	}
	if update.CreatedAt != nil {
		o.CreatedAt = update.CreatedAt
	}
	if update.ClaimedAt != nil {
		o.ClaimedAt = update.ClaimedAt
	}
	s.scheduleFlushLocked()
}

// MemberConfig returns a copy of the moderation config for the given owner,
// lazily creating a default record on first access.
func (s *Store) MemberConfig(userID string) types.MemberModerationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.memberConfigLocked(userID).Copy()
}

// UpdateMemberConfig applies fn to the owner's moderation config and
// schedules a save. The record passed to fn is the store's own copy, valid
// only for the duration of the call.
func (s *Store) UpdateMemberConfig(userID string, fn func(*types.MemberModerationConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.memberConfigLocked(userID))
	s.scheduleFlushLocked()
}

func (s *Store) memberConfigLocked(userID string) *types.MemberModerationConfig {
	m, ok := s.members[userID]
	if !ok {
		m = &types.MemberModerationConfig{}
		s.members[userID] = m
	}
	return m
}

// Reset discards all state and schedules a save of the now-empty documents.
// This is the only way ownership records are removed.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerships = map[string]*types.RoomOwnership{}
	s.members = map[string]*types.MemberModerationConfig{}
	s.scheduleFlushLocked()
}

// scheduleFlushLocked resets the debounce timer. Each mutation restarts the
// full window rather than extending a shared deadline, so a mutation burst
// coalesces into one write once the burst stops.
func (s *Store) scheduleFlushLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.flushDelay, func() {
		s.Flush(context.Background())
	})
}

// Flush writes both documents to durable storage immediately. A failed save
// is logged and retried implicitly by the next mutation's debounce cycle,
// never by an explicit retry loop.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	ownerships := make(map[string]*types.RoomOwnership, len(s.ownerships))
	for roomID, o := range s.ownerships {
		copied := *o
		ownerships[roomID] = &copied
	}
	members := make(map[string]*types.MemberModerationConfig, len(s.members))
	for userID, m := range s.members {
		members[userID] = m.Copy()
	}
	s.mu.Unlock()

	if err := s.db.SaveOwnerships(ctx, ownerships); err != nil {
		logrus.WithError(err).Error("Failed to save ownership records")
	}
	if err := s.db.SaveMemberConfigs(ctx, members); err != nil {
		logrus.WithError(err).Error("Failed to save member configs")
	}
}
