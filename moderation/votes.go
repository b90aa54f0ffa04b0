package moderation

import (
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/voicewarden/voicewarden/setup/config"
)

// VoteTracker counts distinct voters per room and target within a sliding
// window. When the quorum is reached the open vote is closed so that it can
// never trigger twice.
type VoteTracker struct {
	cfg      *config.VoteBan
	presence *PresenceTracker
	votes    *gocache.Cache
}

func NewVoteTracker(cfg *config.VoteBan, presence *PresenceTracker) *VoteTracker {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute * 2
	}
	return &VoteTracker{
		cfg:      cfg,
		presence: presence,
		votes:    gocache.New(window, window*2),
	}
}

// CastVote records one vote against the target. It returns the vote count
// after the cast, the quorum required, and whether the quorum has just been
// reached. A duplicate vote from the same voter changes nothing. Each cast
// restarts the expiry window.
func (v *VoteTracker) CastVote(roomID, target, voter string) (count, needed int, reached bool) {
	needed = v.quorum(roomID)
	key := roomID + "\x00" + target

	voters := map[string]struct{}{}
	if existing, ok := v.votes.Get(key); ok {
		for voterID := range existing.(map[string]struct{}) {
			voters[voterID] = struct{}{}
		}
	}
	if _, duplicate := voters[voter]; duplicate {
		return len(voters), needed, false
	}
	voters[voter] = struct{}{}
	votesCast.Inc()

	if len(voters) >= needed {
		v.votes.Delete(key)
		return len(voters), needed, true
	}
	v.votes.SetDefault(key, voters)
	return len(voters), needed, false
}

// quorum is the occupant count scaled by the configured threshold, rounded
// up, never below one.
func (v *VoteTracker) quorum(roomID string) int {
	occupants := v.presence.Count(roomID)
	needed := int(math.Ceil(float64(occupants) * v.cfg.Threshold))
	if needed < 1 {
		needed = 1
	}
	return needed
}
