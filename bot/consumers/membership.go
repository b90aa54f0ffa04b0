// Package consumers contains the JetStream consumers that drive policy
// evaluation, command handling and post-send cleanup.
package consumers

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/moderation"
	"github.com/voicewarden/voicewarden/pipeline"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

// MembershipConsumer feeds membership changes into the presence tracker and
// runs the join pipeline for each join, one event at a time.
type MembershipConsumer struct {
	ctx       context.Context
	jetstream nats.JetStreamContext
	durable   string
	topic     string
	presence  *moderation.PresenceTracker
	pipeline  *pipeline.JoinPipeline
}

func NewMembershipConsumer(
	process *process.ProcessContext,
	cfg *config.Warden,
	js nats.JetStreamContext,
	presence *moderation.PresenceTracker,
	pipe *pipeline.JoinPipeline,
) *MembershipConsumer {
	return &MembershipConsumer{
		ctx:       process.Context(),
		jetstream: js,
		durable:   cfg.Global.JetStream.Durable("MembershipConsumer"),
		topic:     cfg.Global.JetStream.Prefixed(jetstream.InputRoomMembership),
		presence:  presence,
		pipeline:  pipe,
	}
}

// Start consuming from the membership stream.
func (s *MembershipConsumer) Start() error {
	return jetstream.Consumer(
		s.ctx, s.jetstream, s.topic, s.durable, s.onMessage,
		nats.DeliverAll(), nats.ManualAck(),
	)
}

func (s *MembershipConsumer) onMessage(ctx context.Context, msg *nats.Msg) bool {
	var ev api.MembershipEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal membership event, discarding")
		return true
	}
	switch ev.Change {
	case api.MembershipJoined:
		s.presence.Join(ev.RoomID, ev.UserID)
		decision := s.pipeline.Evaluate(ctx, &pipeline.JoinEvent{
			RoomID: ev.RoomID,
			UserID: ev.UserID,
			Roles:  ev.Roles,
			At:     ev.OccurredAt,
		})
		logrus.WithFields(logrus.Fields{
			"room_id": ev.RoomID,
			"user_id": ev.UserID,
			"verdict": decision.Verdict.String(),
			"reason":  decision.Reason,
		}).Debug("Evaluated join")
	case api.MembershipLeft:
		s.presence.Leave(ev.RoomID, ev.UserID)
	}
	return true
}
