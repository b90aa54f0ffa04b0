package consumers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/moderation"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
)

// CommandConsumer parses control commands typed into rooms. Most verbs are
// accepted from the operator only; voteban is open to any occupant.
type CommandConsumer struct {
	ctx       context.Context
	jetstream nats.JetStreamContext
	durable   string
	topic     string
	cfg       *config.Moderation
	queue     *dispatch.Queue
	store     *statestore.Store
	presence  *moderation.PresenceTracker
	banPolicy *moderation.BanPolicy
	permits   *moderation.PermitEngine
	votes     *moderation.VoteTracker
	operator  string
}

func NewCommandConsumer(
	process *process.ProcessContext,
	cfg *config.Warden,
	js nats.JetStreamContext,
	queue *dispatch.Queue,
	store *statestore.Store,
	presence *moderation.PresenceTracker,
	banPolicy *moderation.BanPolicy,
	permits *moderation.PermitEngine,
	votes *moderation.VoteTracker,
) *CommandConsumer {
	return &CommandConsumer{
		ctx:       process.Context(),
		jetstream: js,
		durable:   cfg.Global.JetStream.Durable("CommandConsumer"),
		topic:     cfg.Global.JetStream.Prefixed(jetstream.InputRoomCommand),
		cfg:       &cfg.Moderation,
		queue:     queue,
		store:     store,
		presence:  presence,
		banPolicy: banPolicy,
		permits:   permits,
		votes:     votes,
		operator:  cfg.Global.UserID,
	}
}

// Start consuming from the command stream.
func (s *CommandConsumer) Start() error {
	return jetstream.Consumer(
		s.ctx, s.jetstream, s.topic, s.durable, s.onMessage,
		nats.DeliverAll(), nats.ManualAck(),
	)
}

func (s *CommandConsumer) onMessage(_ context.Context, msg *nats.Msg) bool {
	var ev api.RoomCommandEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal room command, discarding")
		return true
	}
	verb, arg := s.parse(ev.Body)
	if verb == "" {
		return true
	}

	log := logrus.WithFields(logrus.Fields{
		"room_id": ev.RoomID,
		"sender":  ev.Sender,
		"verb":    verb,
	})

	if verb == "voteban" {
		s.handleVoteBan(&ev, arg, log)
		return true
	}
	if ev.Sender != s.operator {
		log.Debug("Ignoring command from non-operator")
		return true
	}
	s.handleOperatorCommand(&ev, verb, arg, log)
	return true
}

// parse splits a command body into its verb and argument. The prefix must be
// a whole token: "!vw kick" is a command, "!vwkick" is just a message.
func (s *CommandConsumer) parse(body string) (verb, arg string) {
	body = strings.TrimSpace(body)
	prefix := s.cfg.CommandPrefix
	if body != prefix && !strings.HasPrefix(body, prefix+" ") {
		return "", ""
	}
	fields := strings.Fields(strings.TrimPrefix(body, prefix))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.ToLower(fields[0]), strings.Join(fields[1:], " ")
}

func (s *CommandConsumer) handleVoteBan(ev *api.RoomCommandEvent, target string, log *logrus.Entry) {
	if !s.cfg.VoteBan.Enabled {
		return
	}
	if target == "" {
		return
	}
	count, needed, reached := s.votes.CastVote(ev.RoomID, target, ev.Sender)
	log.WithFields(logrus.Fields{
		"target": target,
		"count":  count,
		"needed": needed,
	}).Info("Vote cast")
	if reached {
		s.banPolicy.EnforceBan(ev.RoomID, s.operator, target, "")
	}
}

func (s *CommandConsumer) handleOperatorCommand(ev *api.RoomCommandEvent, verb, arg string, log *logrus.Entry) {
	switch verb {
	case "claim":
		s.queue.Enqueue(dispatch.Item{
			Command:       s.cfg.Commands.Claim,
			RoomID:        ev.RoomID,
			Priority:      true,
			OriginEventID: ev.EventID,
		})
	case "info":
		s.queue.Enqueue(dispatch.Item{
			Command:       s.cfg.Commands.Info,
			RoomID:        ev.RoomID,
			Priority:      true,
			OriginEventID: ev.EventID,
		})
	case "kick":
		if arg == "" {
			return
		}
		roomID, target := ev.RoomID, arg
		s.queue.Enqueue(dispatch.Item{
			Command:       s.cfg.Commands.Render(s.cfg.Commands.Kick, map[string]string{"user_id": target}),
			RoomID:        roomID,
			OriginEventID: ev.EventID,
			Precondition: func() bool {
				return s.presence.IsPresent(roomID, target)
			},
		})
	case "ban":
		if arg == "" {
			return
		}
		s.banPolicy.EnforceBan(ev.RoomID, s.operator, arg, ev.EventID)
	case "unban":
		if arg == "" {
			return
		}
		s.banPolicy.Unban(ev.RoomID, s.operator, arg, ev.EventID)
	case "permit":
		if arg == "" {
			return
		}
		s.permits.Permit(ev.RoomID, s.operator, arg, ev.EventID)
	case "unpermit":
		if arg == "" {
			return
		}
		s.permits.Unpermit(ev.RoomID, s.operator, arg, ev.EventID)
	case "name":
		if arg == "" {
			return
		}
		s.store.UpdateMemberConfig(s.operator, func(m *types.MemberModerationConfig) {
			m.CustomName = arg
		})
		s.queue.Enqueue(dispatch.Item{
			Command:       s.cfg.Commands.Render(s.cfg.Commands.Name, map[string]string{"name": arg}),
			RoomID:        ev.RoomID,
			OriginEventID: ev.EventID,
		})
	case "size":
		size, err := strconv.Atoi(arg)
		if err != nil || size <= 0 {
			log.WithField("arg", arg).Debug("Ignoring size command with bad argument")
			return
		}
		s.store.UpdateMemberConfig(s.operator, func(m *types.MemberModerationConfig) {
			m.UserLimit = size
		})
		s.queue.Enqueue(dispatch.Item{
			Command:       s.cfg.Commands.Render(s.cfg.Commands.Size, map[string]string{"size": arg}),
			RoomID:        ev.RoomID,
			OriginEventID: ev.EventID,
		})
	case "lock", "unlock":
		locked := verb == "lock"
		command := s.cfg.Commands.Unlock
		if locked {
			command = s.cfg.Commands.Lock
		}
		s.store.UpdateMemberConfig(s.operator, func(m *types.MemberModerationConfig) {
			m.IsLocked = locked
		})
		s.queue.Enqueue(dispatch.Item{
			Command:       command,
			RoomID:        ev.RoomID,
			OriginEventID: ev.EventID,
		})
	case "pause":
		s.queue.SetEnabled(false)
		log.Info("Dispatch paused")
	case "resume":
		s.queue.SetEnabled(true)
		log.Info("Dispatch resumed")
	default:
		log.Debug("Unknown command verb")
	}
}
