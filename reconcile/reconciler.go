// Package reconcile parses the external bot's reply messages and folds the
// state they report back into the local store. The bot is the authority on
// what actually happened; replies are semi-structured text, so parsing is
// best-effort and every application is idempotent.
package reconcile

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/internal/caching"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
)

type ReplyKind string

const (
	ReplyCreated     ReplyKind = "created"
	ReplyClaimed     ReplyKind = "claimed"
	ReplyInfo        ReplyKind = "info"
	ReplyBanned      ReplyKind = "banned"
	ReplyUnbanned    ReplyKind = "unbanned"
	ReplyPermitted   ReplyKind = "permitted"
	ReplyUnpermitted ReplyKind = "unpermitted"
	ReplySizeSet     ReplyKind = "size_set"
	ReplyLocked      ReplyKind = "locked"
	ReplyUnlocked    ReplyKind = "unlocked"
	ReplyUnknown     ReplyKind = "unknown"
)

// Classification is first-match over this table, so the negated forms must
// come before the forms they contain ("unbanned" before "banned").
var replyKinds = []struct {
	kind    ReplyKind
	pattern *regexp.Regexp
}{
	{ReplyCreated, regexp.MustCompile(`(?i)\b(?:room|channel) (?:created|is ready)\b`)},
	{ReplyClaimed, regexp.MustCompile(`(?i)\b(?:claimed|now owns|new owner)\b`)},
	{ReplyInfo, regexp.MustCompile(`(?i)\b(?:room|channel) info\b`)},
	{ReplyUnbanned, regexp.MustCompile(`(?i)\bunbanned\b`)},
	{ReplyBanned, regexp.MustCompile(`(?i)\bbanned\b`)},
	{ReplyUnpermitted, regexp.MustCompile(`(?i)\b(?:unpermitted|permit removed)\b`)},
	{ReplyPermitted, regexp.MustCompile(`(?i)\bpermitted\b`)},
	{ReplySizeSet, regexp.MustCompile(`(?i)\b(?:limit|size) (?:set|changed|is now)\b`)},
	{ReplyUnlocked, regexp.MustCompile(`(?i)\bunlocked\b`)},
	{ReplyLocked, regexp.MustCompile(`(?i)\blocked\b`)},
}

var (
	mentionRegex = regexp.MustCompile(`@[0-9A-Za-z._=/+-]+:[0-9A-Za-z.-]+`)
	sizeRegex    = regexp.MustCompile(`(\d+)`)
)

// Classify returns the kind of a bot reply body.
func Classify(body string) ReplyKind {
	for _, rk := range replyKinds {
		if rk.pattern.MatchString(body) {
			return rk.kind
		}
	}
	return ReplyUnknown
}

// Reconciler applies classified bot replies to the state store.
type Reconciler struct {
	store    *statestore.Store
	caches   *caching.Caches
	cfg      ListCapacities
	operator string
}

// ListCapacities bounds the reconciled lists the same way the engines bound
// theirs, so a reply can never grow a list past what enforcement maintains.
type ListCapacities struct {
	Ban    int
	Permit int
}

func NewReconciler(store *statestore.Store, caches *caching.Caches, cfg ListCapacities, operator string) *Reconciler {
	return &Reconciler{store: store, caches: caches, cfg: cfg, operator: operator}
}

// Subject extracts the user the reply is about: an explicit mention in the
// body wins, then a user ID buried in the embedded content's icon URL
// fragment, then the author of the message the bot replied to.
func (r *Reconciler) Subject(ev *api.BotReplyEvent) string {
	if m := mentionRegex.FindString(ev.Body); m != "" {
		return m
	}
	if len(ev.Content) > 0 {
		iconURL := gjson.GetBytes(ev.Content, "embed.icon_url").String()
		if m := mentionRegex.FindString(iconURL); m != "" {
			return m
		}
	}
	return ev.ReplyToSender
}

// Apply folds one bot reply into the store. Redelivered replies are dropped
// via the event-ID dedup cache and every mutation is a no-op when the store
// already reflects the reported state.
func (r *Reconciler) Apply(ctx context.Context, ev *api.BotReplyEvent) {
	if _, seen := r.caches.ReconciledReplies.Get(ev.EventID); seen {
		return
	}
	r.caches.ReconciledReplies.Set(ev.EventID, time.Now())

	kind := Classify(ev.Body)
	repliesReconciled.WithLabelValues(string(kind)).Inc()
	if kind == ReplyUnknown {
		logrus.WithFields(logrus.Fields{
			"room_id":  ev.RoomID,
			"event_id": ev.EventID,
		}).Debug("Unrecognised bot reply")
		return
	}

	subject := r.Subject(ev)
	log := logrus.WithFields(logrus.Fields{
		"room_id": ev.RoomID,
		"kind":    kind,
		"subject": subject,
	})

	switch kind {
	case ReplyCreated:
		if subject == "" {
			return
		}
		// A redelivered reply must not touch the recorded creation time.
		if existing, ok := r.store.Ownership(ev.RoomID); ok && existing.CreatorID == subject {
			return
		}
		now := time.Now()
		r.store.SetOwnership(ev.RoomID, types.OwnershipUpdate{
			CreatorID: &subject,
			CreatedAt: &now,
		})
	case ReplyClaimed:
		if subject == "" {
			return
		}
		if existing, ok := r.store.Ownership(ev.RoomID); ok && existing.ClaimantID == subject {
			return
		}
		now := time.Now()
		r.store.SetOwnership(ev.RoomID, types.OwnershipUpdate{
			ClaimantID: &subject,
			ClaimedAt:  &now,
		})
	case ReplyInfo:
		// The info reply names the current owner. Adopt it only when the
		// room is not already tracked, so stale info never clobbers a claim
		// we saw happen.
		if subject == "" {
			return
		}
		if _, ok := r.store.Ownership(ev.RoomID); !ok {
			r.store.SetOwnership(ev.RoomID, types.OwnershipUpdate{CreatorID: &subject})
		}
	case ReplyBanned:
		r.withOwner(ev.RoomID, func(owner string) {
			if subject == "" {
				return
			}
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.BannedUsers = appendBounded(m.BannedUsers, subject, r.cfg.Ban)
			})
		})
	case ReplyUnbanned:
		r.withOwner(ev.RoomID, func(owner string) {
			if subject == "" {
				return
			}
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.BannedUsers = removeEntry(m.BannedUsers, subject)
			})
		})
	case ReplyPermitted:
		r.withOwner(ev.RoomID, func(owner string) {
			if subject == "" {
				return
			}
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.PermittedUsers = appendBounded(m.PermittedUsers, subject, r.cfg.Permit)
			})
		})
	case ReplyUnpermitted:
		r.withOwner(ev.RoomID, func(owner string) {
			if subject == "" {
				return
			}
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.PermittedUsers = removeEntry(m.PermittedUsers, subject)
			})
		})
	case ReplySizeSet:
		size, ok := parseSize(ev.Body)
		if !ok {
			log.Debug("Size reply carried no parseable number")
			return
		}
		r.withOwner(ev.RoomID, func(owner string) {
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.UserLimit = size
			})
		})
	case ReplyLocked:
		r.withOwner(ev.RoomID, func(owner string) {
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.IsLocked = true
			})
		})
	case ReplyUnlocked:
		r.withOwner(ev.RoomID, func(owner string) {
			r.store.UpdateMemberConfig(owner, func(m *types.MemberModerationConfig) {
				m.IsLocked = false
			})
		})
	}
}

// withOwner runs fn with the effective owner of a room the operator
// moderates. Replies in rooms we don't track are ignored.
func (r *Reconciler) withOwner(roomID string, fn func(owner string)) {
	ownership, ok := r.store.Ownership(roomID)
	if !ok {
		return
	}
	owner := ownership.EffectiveOwner()
	if owner != r.operator {
		return
	}
	fn(owner)
}

func parseSize(body string) (int, bool) {
	m := sizeRegex.FindString(body)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// appendBounded appends entry if absent, evicting oldest entries to stay
// within capacity. A capacity of zero means unbounded.
func appendBounded(list []string, entry string, capacity int) []string {
	for _, existing := range list {
		if existing == entry {
			return list
		}
	}
	list = append(list, entry)
	if capacity > 0 && len(list) > capacity {
		list = append([]string(nil), list[len(list)-capacity:]...)
	}
	return list
}

func removeEntry(list []string, entry string) []string {
	for i, existing := range list {
		if existing == entry {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
