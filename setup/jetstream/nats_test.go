package jetstream_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/test/testrig"
)

func TestStreamsRoundTrip(t *testing.T) {
	cfg := testrig.CreateConfig(t)
	js := testrig.CreateJetStream(t, cfg)

	payload, err := json.Marshal(api.RoomCommandEvent{
		EventID: "$cmd",
		RoomID:  "!room:test",
		Sender:  "@warden:test",
		Body:    "!vw claim",
	})
	require.NoError(t, err)

	msg := nats.NewMsg(cfg.Global.JetStream.Prefixed(jetstream.InputRoomCommand))
	msg.Header.Set(jetstream.RoomIDHeader, "!room:test")
	msg.Data = payload
	testrig.MustPublishMsgs(t, js, msg)

	sub, err := js.PullSubscribe(
		cfg.Global.JetStream.Prefixed(jetstream.InputRoomCommand),
		cfg.Global.JetStream.Durable("TestConsumer"),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	msgs, err := sub.Fetch(1, nats.Context(ctx))
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var ev api.RoomCommandEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &ev))
	assert.Equal(t, "!vw claim", ev.Body)
	assert.Equal(t, "!room:test", msgs[0].Header.Get(jetstream.RoomIDHeader))
}
