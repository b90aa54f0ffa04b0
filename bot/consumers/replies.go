package consumers

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/reconcile"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

// ReplyConsumer feeds bot replies to the reconciler, one at a time so that
// replies apply in the order the bot sent them.
type ReplyConsumer struct {
	ctx        context.Context
	jetstream  nats.JetStreamContext
	durable    string
	topic      string
	reconciler *reconcile.Reconciler
}

func NewReplyConsumer(
	process *process.ProcessContext,
	cfg *config.Warden,
	js nats.JetStreamContext,
	reconciler *reconcile.Reconciler,
) *ReplyConsumer {
	return &ReplyConsumer{
		ctx:        process.Context(),
		jetstream:  js,
		durable:    cfg.Global.JetStream.Durable("ReplyConsumer"),
		topic:      cfg.Global.JetStream.Prefixed(jetstream.InputBotReply),
		reconciler: reconciler,
	}
}

// Start consuming from the bot reply stream.
func (s *ReplyConsumer) Start() error {
	return jetstream.Consumer(
		s.ctx, s.jetstream, s.topic, s.durable, s.onMessage,
		nats.DeliverAll(), nats.ManualAck(),
	)
}

func (s *ReplyConsumer) onMessage(ctx context.Context, msg *nats.Msg) bool {
	var ev api.BotReplyEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal bot reply, discarding")
		return true
	}
	s.reconciler.Apply(ctx, &ev)
	return true
}
