package moderation

import (
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// NameRotator renames managed rooms round-robin from the owner's rotation
// list. A zero interval or an empty list makes the whole feature a no-op.
type NameRotator struct {
	cfg       *config.Moderation
	store     *statestore.Store
	queue     *dispatch.Queue
	scheduler *Scheduler
	operator  string
}

func NewNameRotator(
	cfg *config.Moderation,
	store *statestore.Store,
	queue *dispatch.Queue,
	scheduler *Scheduler,
	operator string,
) *NameRotator {
	return &NameRotator{
		cfg:       cfg,
		store:     store,
		queue:     queue,
		scheduler: scheduler,
		operator:  operator,
	}
}

func (r *NameRotator) Name() string { return "name-rotation" }

func (r *NameRotator) Init(_ *config.Warden) error {
	if r.cfg.NameRotationInterval <= 0 {
		logrus.Info("Name rotation disabled, no interval configured")
		return nil
	}
	r.scheduler.Every("name-rotation", r.cfg.NameRotationInterval, r.rotate)
	return nil
}

// rotate advances the rotation index once and renames every room the
// operator currently owns to the new name.
func (r *NameRotator) rotate() {
	next := ""
	r.store.UpdateMemberConfig(r.operator, func(m *types.MemberModerationConfig) {
		if len(m.NameRotationList) == 0 {
			return
		}
		idx := m.NameRotationIndex % len(m.NameRotationList)
		next = m.NameRotationList[idx]
		m.NameRotationIndex = (idx + 1) % len(m.NameRotationList)
		m.CustomName = next
	})
	if next == "" {
		return
	}
	command := r.cfg.Commands.Render(r.cfg.Commands.Name, map[string]string{"name": next})
	for roomID, ownership := range r.store.Ownerships() {
		if ownership.EffectiveOwner() != r.operator {
			continue
		}
		r.queue.Enqueue(dispatch.Item{
			Command: command,
			RoomID:  roomID,
		})
	}
}
