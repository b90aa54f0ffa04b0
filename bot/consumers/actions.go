package consumers

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/bot"
	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

// ActionConsumer cleans up after executed commands: once the dispatch queue
// confirms a send, the room message that triggered it is redacted so command
// chatter doesn't pile up in the room.
type ActionConsumer struct {
	ctx       context.Context
	jetstream nats.JetStreamContext
	durable   string
	topic     string
	client    *bot.Client
}

func NewActionConsumer(
	process *process.ProcessContext,
	cfg *config.Warden,
	js nats.JetStreamContext,
	client *bot.Client,
) *ActionConsumer {
	return &ActionConsumer{
		ctx:       process.Context(),
		jetstream: js,
		durable:   cfg.Global.JetStream.Durable("ActionConsumer"),
		topic:     cfg.Global.JetStream.Prefixed(jetstream.OutputModerationAction),
		client:    client,
	}
}

// Start consuming from the action stream.
func (s *ActionConsumer) Start() error {
	return jetstream.Consumer(
		s.ctx, s.jetstream, s.topic, s.durable, s.onMessage,
		nats.DeliverAll(), nats.ManualAck(),
	)
}

func (s *ActionConsumer) onMessage(_ context.Context, msg *nats.Msg) bool {
	var ev api.ActionExecutedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal action event, discarding")
		return true
	}
	if ev.OriginEventID == "" {
		return true
	}
	if err := s.client.Redact(ev.RoomID, ev.OriginEventID); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id":  ev.RoomID,
			"event_id": ev.OriginEventID,
		}).Warn("Failed to redact origin message")
	}
	return true
}
