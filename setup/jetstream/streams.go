package jetstream

import (
	"regexp"
	"time"

	"github.com/nats-io/nats.go"
)

// Message header keys.
const (
	UserIDHeader  = "user_id"
	RoomIDHeader  = "room_id"
	EventIDHeader = "event_id"
)

var (
	// InputRoomMembership carries "user entered/left room X" occurrences
	// produced by the ingest sync loop.
	InputRoomMembership = "InputRoomMembership"
	// InputBotReply carries messages authored by the external moderation bot.
	InputBotReply = "InputBotReply"
	// InputRoomCommand carries control commands typed by room occupants.
	InputRoomCommand = "InputRoomCommand"
	// OutputModerationAction carries "action executed" notifications emitted
	// by the dispatch queue after a successful send.
	OutputModerationAction = "OutputModerationAction"
)

var safeCharacters = regexp.MustCompile("[^A-Za-z0-9$]+")

func Tokenise(str string) string {
	return safeCharacters.ReplaceAllString(str, "_")
}

var streams = []*nats.StreamConfig{
	{
		Name:      InputRoomMembership,
		Retention: nats.InterestPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    time.Hour * 24,
	},
	{
		Name:      InputBotReply,
		Retention: nats.InterestPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    time.Hour * 24,
	},
	{
		Name:      InputRoomCommand,
		Retention: nats.InterestPolicy,
		Storage:   nats.MemoryStorage,
		MaxAge:    time.Minute * 10,
	},
	{
		Name:      OutputModerationAction,
		Retention: nats.InterestPolicy,
		Storage:   nats.MemoryStorage,
		MaxAge:    time.Minute * 5,
	},
}
