package moderation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/pipeline"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// PermitEngine maintains the bounded permit list. It mirrors the ban list's
// rotation semantics: permitting past capacity evicts the oldest entry via
// an unpermit command enqueued ahead of the new permit.
type PermitEngine struct {
	cfg   *config.Moderation
	store *statestore.Store
	queue *dispatch.Queue
}

func NewPermitEngine(cfg *config.Moderation, store *statestore.Store, queue *dispatch.Queue) *PermitEngine {
	return &PermitEngine{cfg: cfg, store: store, queue: queue}
}

// Permit adds the target to the owner's permit list and enqueues the permit
// command. Already-permitted targets are a no-op. A capacity of zero leaves
// the list unbounded.
func (e *PermitEngine) Permit(roomID, owner, target, originEventID string) {
	alreadyPermitted := false
	evicted := ""
	e.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
		for _, permitted := range m.PermittedUsers {
			if permitted == target {
				alreadyPermitted = true
				return
			}
		}
		if e.cfg.PermitListCapacity > 0 && len(m.PermittedUsers) >= e.cfg.PermitListCapacity {
			evicted = m.PermittedUsers[0]
			m.PermittedUsers = append([]string(nil), m.PermittedUsers[1:]...)
		}
		m.PermittedUsers = append(m.PermittedUsers, target)
	})
	if alreadyPermitted {
		logrus.WithFields(logrus.Fields{
			"room_id": roomID,
			"user_id": target,
		}).Debug("User already on permit list")
		return
	}
	if evicted != "" {
		e.queue.Enqueue(dispatch.Item{
			Command: e.cfg.Commands.Render(e.cfg.Commands.Unpermit, map[string]string{"user_id": evicted}),
			RoomID:  roomID,
		})
		if e.cfg.RotationNotice != "" {
			e.queue.Enqueue(dispatch.Item{
				Command: e.cfg.Commands.Render(e.cfg.RotationNotice, map[string]string{
					"evicted_id": evicted,
					"user_id":    target,
				}),
				RoomID: roomID,
			})
		}
		rotationEvictions.WithLabelValues("permit").Inc()
	}
	e.queue.Enqueue(dispatch.Item{
		Command:       e.cfg.Commands.Render(e.cfg.Commands.Permit, map[string]string{"user_id": target}),
		RoomID:        roomID,
		OriginEventID: originEventID,
	})
	enforcementActions.WithLabelValues("permit").Inc()
}

// Unpermit removes the target from the owner's permit list and enqueues the
// unpermit command. Unknown targets are a no-op.
func (e *PermitEngine) Unpermit(roomID, owner, target, originEventID string) {
	found := false
	e.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
		for i, permitted := range m.PermittedUsers {
			if permitted == target {
				m.PermittedUsers = append(m.PermittedUsers[:i], m.PermittedUsers[i+1:]...)
				found = true
				return
			}
		}
	})
	if !found {
		return
	}
	e.queue.Enqueue(dispatch.Item{
		Command:       e.cfg.Commands.Render(e.cfg.Commands.Unpermit, map[string]string{"user_id": target}),
		RoomID:        roomID,
		OriginEventID: originEventID,
	})
	enforcementActions.WithLabelValues("unpermit").Inc()
}

// WhitelistPolicy is the allow side of the join pipeline. It must run before
// any deny policy: a whitelisted member, a permitted member, or the room
// owner themselves is allowed regardless of what later policies would say.
type WhitelistPolicy struct {
	cfg      *config.Moderation
	store    *statestore.Store
	operator string
}

func NewWhitelistPolicy(cfg *config.Moderation, store *statestore.Store, operator string) *WhitelistPolicy {
	return &WhitelistPolicy{cfg: cfg, store: store, operator: operator}
}

func (w *WhitelistPolicy) Name() string { return "whitelist" }

func (w *WhitelistPolicy) OnJoin(_ context.Context, ev *pipeline.JoinEvent) pipeline.Decision {
	ownership, ok := w.store.Ownership(ev.RoomID)
	if !ok {
		return pipeline.Continue()
	}
	owner := ownership.EffectiveOwner()
	if owner != w.operator {
		return pipeline.Continue()
	}
	if ev.UserID == owner {
		return pipeline.Allow("room owner")
	}
	for _, listed := range w.cfg.Whitelist {
		if listed == ev.UserID {
			return pipeline.Allow("whitelisted")
		}
	}
	memberCfg := w.store.MemberConfig(owner)
	for _, listed := range memberCfg.WhitelistedUsers {
		if listed == ev.UserID {
			return pipeline.Allow("whitelisted")
		}
	}
	for _, permitted := range memberCfg.PermittedUsers {
		if permitted == ev.UserID {
			return pipeline.Allow("permitted")
		}
	}
	return pipeline.Continue()
}
