package types

import "time"

// RoomOwnership records who created and who claimed a managed voice room.
// A room with no ownership record is unmanaged.
type RoomOwnership struct {
	RoomID     string     `json:"room_id"`
	CreatorID  string     `json:"creator_id,omitempty"`
	ClaimantID string     `json:"claimant_id,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
}

// EffectiveOwner is the claimant if present, else the creator.
func (o *RoomOwnership) EffectiveOwner() string {
	if o.ClaimantID != "" {
		return o.ClaimantID
	}
	return o.CreatorID
}

// OwnershipUpdate is a partial update merged onto an existing ownership
// record. Nil fields are left untouched.
type OwnershipUpdate struct {
	CreatorID  *string
	ClaimantID *string
	CreatedAt  *time.Time
	ClaimedAt  *time.Time
}

// MemberModerationConfig is the per-owner moderation state. The banned and
// permitted sequences keep insertion order, oldest first, and double as
// bounded rotation buffers.
type MemberModerationConfig struct {
	BannedUsers       []string `json:"banned_users"`
	PermittedUsers    []string `json:"permitted_users"`
	WhitelistedUsers  []string `json:"whitelisted_users"`
	CustomName        string   `json:"custom_name,omitempty"`
	UserLimit         int      `json:"user_limit,omitempty"`
	IsLocked          bool     `json:"is_locked,omitempty"`
	NameRotationList  []string `json:"name_rotation_list,omitempty"`
	NameRotationIndex int      `json:"name_rotation_index,omitempty"`
}

// Copy returns a deep copy, so callers never hold an alias into the store's
// own record.
func (m *MemberModerationConfig) Copy() *MemberModerationConfig {
	c := *m
	c.BannedUsers = append([]string(nil), m.BannedUsers...)
	c.PermittedUsers = append([]string(nil), m.PermittedUsers...)
	c.WhitelistedUsers = append([]string(nil), m.WhitelistedUsers...)
	c.NameRotationList = append([]string(nil), m.NameRotationList...)
	return &c
}
