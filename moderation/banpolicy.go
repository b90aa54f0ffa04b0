package moderation

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/pipeline"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// RelationshipChecker reports whether the operator has a platform-level
// blocked relationship with the given user. Lookups are best-effort: an
// error means "unknown" and the check is skipped for that join.
type RelationshipChecker interface {
	IsBlocked(ctx context.Context, userID string) (bool, error)
}

// BanPolicy is the deny side of the join pipeline. A failing join is kicked
// on first offence and escalated to a ban when the same user fails again in
// a room within the escalation cooldown.
type BanPolicy struct {
	cfg           *config.Moderation
	store         *statestore.Store
	queue         *dispatch.Queue
	presence      *PresenceTracker
	relationships RelationshipChecker
	operator      string

	// Tracks roomID+userID pairs kicked recently. Presence of a key means
	// the next policy failure for that pair becomes a ban.
	recentKicks *gocache.Cache
}

func NewBanPolicy(
	cfg *config.Moderation,
	store *statestore.Store,
	queue *dispatch.Queue,
	presence *PresenceTracker,
	relationships RelationshipChecker,
	operator string,
) *BanPolicy {
	ttl := cfg.KickEscalationCooldown
	if ttl <= 0 {
		// No window: any prior kick, however old, escalates.
		ttl = gocache.NoExpiration
	}
	return &BanPolicy{
		cfg:           cfg,
		store:         store,
		queue:         queue,
		presence:      presence,
		relationships: relationships,
		operator:      operator,
		recentKicks:   gocache.New(ttl, time.Minute*10),
	}
}

func (p *BanPolicy) Name() string { return "ban-policy" }

func (p *BanPolicy) OnJoin(ctx context.Context, ev *pipeline.JoinEvent) pipeline.Decision {
	owner, ok := p.managedRoomOwner(ev.RoomID)
	if !ok {
		return pipeline.Continue()
	}
	reason := p.denyReason(ctx, owner, ev)
	if reason == "" {
		return pipeline.Continue()
	}
	return p.enforce(ev, owner, reason)
}

// managedRoomOwner resolves the effective owner of a room and reports
// whether this daemon moderates it, i.e. whether the operator owns it.
func (p *BanPolicy) managedRoomOwner(roomID string) (string, bool) {
	ownership, ok := p.store.Ownership(roomID)
	if !ok {
		return "", false
	}
	owner := ownership.EffectiveOwner()
	if owner != p.operator {
		return "", false
	}
	return owner, true
}

func (p *BanPolicy) denyReason(ctx context.Context, owner string, ev *pipeline.JoinEvent) string {
	memberCfg := p.store.MemberConfig(owner)
	for _, banned := range memberCfg.BannedUsers {
		if banned == ev.UserID {
			return "on ban list"
		}
	}
	if p.cfg.BlacklistEnabled {
		for _, listed := range p.cfg.Blacklist {
			if listed == ev.UserID {
				return "blacklisted"
			}
		}
	}
	if p.cfg.BlockedEnabled && p.relationships != nil {
		blocked, err := p.relationships.IsBlocked(ctx, ev.UserID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", ev.UserID).Warn(
				"Failed to check blocked relationship, skipping check",
			)
		} else if blocked {
			return "blocked by operator"
		}
	}
	if len(p.cfg.RequiredRoles) > 0 && !p.rolesSatisfied(ev.Roles) {
		return "missing required role"
	}
	return ""
}

// rolesSatisfied evaluates the required-role list against the roles the
// member holds. A member whose role data is absent fails in every mode.
func (p *BanPolicy) rolesSatisfied(roles []string) bool {
	if roles == nil {
		return false
	}
	held := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		held[r] = struct{}{}
	}
	matches := 0
	for _, required := range p.cfg.RequiredRoles {
		if _, ok := held[required]; ok {
			matches++
		}
	}
	switch p.cfg.RoleCheckMode {
	case config.RoleCheckAll:
		return matches == len(p.cfg.RequiredRoles)
	case config.RoleCheckNone:
		return matches == 0
	default: // RoleCheckAny
		return matches > 0
	}
}

func (p *BanPolicy) enforce(ev *pipeline.JoinEvent, owner, reason string) pipeline.Decision {
	key := ev.RoomID + "\x00" + ev.UserID
	if _, kickedBefore := p.recentKicks.Get(key); kickedBefore {
		p.recentKicks.Delete(key)
		p.EnforceBan(ev.RoomID, owner, ev.UserID, "")
		logrus.WithFields(logrus.Fields{
			"room_id": ev.RoomID,
			"user_id": ev.UserID,
			"reason":  reason,
		}).Info("Escalating repeated policy failure to ban")
		return pipeline.Deny(reason, "ban")
	}
	p.recentKicks.SetDefault(key, time.Now())
	roomID, userID := ev.RoomID, ev.UserID
	p.queue.Enqueue(dispatch.Item{
		Command: p.cfg.Commands.Render(p.cfg.Commands.Kick, map[string]string{"user_id": userID}),
		RoomID:  roomID,
		Precondition: func() bool {
			return p.presence.IsPresent(roomID, userID)
		},
	})
	enforcementActions.WithLabelValues("kick").Inc()
	return pipeline.Deny(reason, "kick")
}

// EnforceBan adds the target to the owner's ban list and enqueues the ban
// command. When the list is at capacity the oldest entry is evicted first:
// its unban command is enqueued ahead of the new ban so the bot never holds
// more than the capacity, and an optional notice announces the trade. A
// capacity of zero leaves the list unbounded.
func (p *BanPolicy) EnforceBan(roomID, owner, target, originEventID string) {
	alreadyBanned := false
	evicted := ""
	p.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
		for _, banned := range m.BannedUsers {
			if banned == target {
				alreadyBanned = true
				return
			}
		}
		if p.cfg.BanListCapacity > 0 && len(m.BannedUsers) >= p.cfg.BanListCapacity {
			evicted = m.BannedUsers[0]
			m.BannedUsers = append([]string(nil), m.BannedUsers[1:]...)
		}
		m.BannedUsers = append(m.BannedUsers, target)
	})
	if alreadyBanned {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"user_id": target,
		}).Debug("User already on ban list")
		return
	}
	if evicted != "" {
		p.queue.Enqueue(dispatch.Item{
			Command: p.cfg.Commands.Render(p.cfg.Commands.Unban, map[string]string{"user_id": evicted}),
			RoomID:  roomID,
		})
		if p.cfg.RotationNotice != "" {
			p.queue.Enqueue(dispatch.Item{
				Command: p.cfg.Commands.Render(p.cfg.RotationNotice, map[string]string{
					"evicted_id": evicted,
					"user_id":    target,
				}),
				RoomID: roomID,
			})
		}
		rotationEvictions.WithLabelValues("ban").Inc()
	}
	p.queue.Enqueue(dispatch.Item{
		Command:       p.cfg.Commands.Render(p.cfg.Commands.Ban, map[string]string{"user_id": target}),
		RoomID:        roomID,
		OriginEventID: originEventID,
		Precondition: func() bool {
			return p.presence.IsPresent(roomID, target)
		},
	})
	enforcementActions.WithLabelValues("ban").Inc()
}

// Unban removes the target from the owner's ban list and enqueues the unban
// command. Unknown targets are a no-op.
func (p *BanPolicy) Unban(roomID, owner, target, originEventID string) {
	found := false
	p.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
		for i, banned := range m.BannedUsers {
			if banned == target {
				m.BannedUsers = append(m.BannedUsers[:i], m.BannedUsers[i+1:]...)
				found = true
				return
			}
		}
	})
	if !found {
		return
	}
	p.queue.Enqueue(dispatch.Item{
		Command:       p.cfg.Commands.Render(p.cfg.Commands.Unban, map[string]string{"user_id": target}),
		RoomID:        roomID,
		OriginEventID: originEventID,
	})
	enforcementActions.WithLabelValues("unban").Inc()
}
