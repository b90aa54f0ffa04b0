// Package api contains the wire types passed between the ingest loop, the
// consumers and the dispatch queue over JetStream.
package api

import (
	"encoding/json"
	"time"
)

type MembershipChange string

const (
	MembershipJoined MembershipChange = "join"
	MembershipLeft   MembershipChange = "leave"
)

// MembershipEvent is one "user entered/left room X" occurrence from the
// membership-change feed.
type MembershipEvent struct {
	Change MembershipChange `json:"change"`
	RoomID string           `json:"room_id"`
	UserID string           `json:"user_id"`
	// Roles the member holds on the platform, as carried by the membership
	// event. Absence means the member's role data is unknown.
	Roles      []string  `json:"roles,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BotReplyEvent is a message authored by the external moderation bot. The
// content is untrusted and semi-structured; reconciliation parses it
// best-effort.
type BotReplyEvent struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Body    string `json:"body"`
	// The full event content, for embed field extraction.
	Content json.RawMessage `json:"content,omitempty"`
	// The author of the message this reply replies to, when the ingest loop
	// could resolve it locally.
	ReplyToSender string `json:"reply_to_sender,omitempty"`
}

// RoomCommandEvent is a control command typed by a room occupant.
type RoomCommandEvent struct {
	EventID string `json:"event_id"`
	RoomID  string `json:"room_id"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// ActionExecutedEvent is published after the dispatch queue successfully
// sends a command and receives a correlatable identifier back.
type ActionExecutedEvent struct {
	ItemID      string `json:"item_id"`
	RoomID      string `json:"room_id"`
	Command     string `json:"command"`
	SentEventID string `json:"sent_event_id"`
	// The originating command message, if any, so it can be cleaned up.
	OriginEventID string `json:"origin_event_id,omitempty"`
}
