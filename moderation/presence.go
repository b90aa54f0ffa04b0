// Package moderation implements the join policies, the permit and ban list
// engines, vote-bans and the periodic room maintenance tasks.
package moderation

import "sync"

// PresenceTracker mirrors current room occupancy from the membership feed.
// It is the source of truth for "is the target still here" preconditions and
// for vote-ban quorum sizes.
type PresenceTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		rooms: map[string]map[string]struct{}{},
	}
}

func (t *PresenceTracker) Join(roomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[roomID]
	if !ok {
		room = map[string]struct{}{}
		t.rooms[roomID] = room
	}
	room[userID] = struct{}{}
}

func (t *PresenceTracker) Leave(roomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[roomID]
	if !ok {
		return
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(t.rooms, roomID)
	}
}

func (t *PresenceTracker) IsPresent(roomID, userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

// Count returns the number of tracked occupants of a room.
func (t *PresenceTracker) Count(roomID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[roomID])
}
