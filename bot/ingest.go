package bot

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/matrix-org/gomatrix"
	"github.com/nats-io/nats.go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

const syncRetryInterval = time.Second * 5

// Ingestor runs the homeserver sync loop and republishes what it sees onto
// the internal streams: membership changes, bot replies and room commands.
// Everything downstream consumes those streams, never the sync loop itself.
type Ingestor struct {
	process *process.ProcessContext
	cfg     *config.Warden
	client  *Client
	js      nats.JetStreamContext
	topics  ingestTopics

	// Maps recent event IDs to their senders, so a bot reply that references
	// an earlier message can be attributed without a server round trip.
	recentSenders *gocache.Cache
}

type ingestTopics struct {
	membership string
	botReply   string
	command    string
}

func NewIngestor(
	process *process.ProcessContext,
	cfg *config.Warden,
	client *Client,
	js nats.JetStreamContext,
) *Ingestor {
	return &Ingestor{
		process: process,
		cfg:     cfg,
		client:  client,
		js:      js,
		topics: ingestTopics{
			membership: cfg.Global.JetStream.Prefixed(jetstream.InputRoomMembership),
			botReply:   cfg.Global.JetStream.Prefixed(jetstream.InputBotReply),
			command:    cfg.Global.JetStream.Prefixed(jetstream.InputRoomCommand),
		},
		recentSenders: gocache.New(time.Minute*10, time.Minute*20),
	}
}

// Start registers the sync callbacks and runs the sync loop until shutdown,
// reconnecting on failure.
func (i *Ingestor) Start() {
	syncer := i.client.Matrix().Syncer.(*gomatrix.DefaultSyncer)
	syncer.OnEventType("m.room.member", i.onMemberEvent)
	syncer.OnEventType("m.room.message", i.onMessageEvent)

	i.process.ComponentStarted()
	go func() {
		defer i.process.ComponentFinished()
		for {
			select {
			case <-i.process.WaitForShutdown():
				return
			default:
			}
			if err := i.client.Matrix().Sync(); err != nil {
				logrus.WithError(err).Error("Sync with homeserver failed, retrying")
			}
			select {
			case <-i.process.WaitForShutdown():
				return
			case <-time.After(syncRetryInterval):
			}
		}
	}()
}

func (i *Ingestor) onMemberEvent(ev *gomatrix.Event) {
	if ev.StateKey == nil {
		return
	}
	membership, _ := ev.Content["membership"].(string)
	var change api.MembershipChange
	switch membership {
	case "join":
		change = api.MembershipJoined
	case "leave", "ban":
		change = api.MembershipLeft
	default:
		return
	}
	out := api.MembershipEvent{
		Change:     change,
		RoomID:     ev.RoomID,
		UserID:     *ev.StateKey,
		Roles:      extractRoles(ev.Content),
		OccurredAt: time.UnixMilli(ev.Timestamp),
	}
	i.publish(i.topics.membership, ev.RoomID, *ev.StateKey, ev.ID, &out)
}

func (i *Ingestor) onMessageEvent(ev *gomatrix.Event) {
	body, _ := ev.Content["body"].(string)
	if body == "" {
		return
	}
	i.recentSenders.SetDefault(ev.ID, ev.Sender)

	if ev.Sender == i.cfg.Global.BotUserID {
		content, err := json.Marshal(ev.Content)
		if err != nil {
			content = nil
		}
		out := api.BotReplyEvent{
			EventID:       ev.ID,
			RoomID:        ev.RoomID,
			Body:          body,
			Content:       content,
			ReplyToSender: i.resolveReplyTarget(content),
		}
		i.publish(i.topics.botReply, ev.RoomID, ev.Sender, ev.ID, &out)
		return
	}

	if i.cfg.Moderation.CommandPrefix != "" && strings.HasPrefix(body, i.cfg.Moderation.CommandPrefix) {
		out := api.RoomCommandEvent{
			EventID: ev.ID,
			RoomID:  ev.RoomID,
			Sender:  ev.Sender,
			Body:    body,
		}
		i.publish(i.topics.command, ev.RoomID, ev.Sender, ev.ID, &out)
	}
}

// resolveReplyTarget attributes a reply to the sender of the message it
// references, if that message passed through recently.
func (i *Ingestor) resolveReplyTarget(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	replyTo := gjson.GetBytes(content, "m\\.relates_to.m\\.in_reply_to.event_id").String()
	if replyTo == "" {
		return ""
	}
	if sender, ok := i.recentSenders.Get(replyTo); ok {
		return sender.(string)
	}
	return ""
}

func (i *Ingestor) publish(topic, roomID, userID, eventID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal ingest event")
		return
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set(jetstream.RoomIDHeader, roomID)
	msg.Header.Set(jetstream.UserIDHeader, userID)
	msg.Header.Set(jetstream.EventIDHeader, eventID)
	msg.Data = data
	if _, err := i.js.PublishMsg(msg); err != nil {
		logrus.WithError(err).WithField("topic", topic).Error("Failed to publish ingest event")
	}
}

// extractRoles pulls the platform role list out of the membership content.
// Returns nil when the event carries no role data at all, which downstream
// treats as "unknown", not "no roles".
func extractRoles(content map[string]interface{}) []string {
	raw, ok := content["roles"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(list))
	for _, r := range list {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
