package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voicewarden/voicewarden/setup/config"
)

func voteRig(threshold float64, occupants int) *VoteTracker {
	presence := NewPresenceTracker()
	for i := 0; i < occupants; i++ {
		presence.Join("!room:test", string(rune('a'+i))+":test")
	}
	return NewVoteTracker(&config.VoteBan{
		Enabled:   true,
		Threshold: threshold,
		Window:    time.Minute,
	}, presence)
}

func TestVoteQuorumReached(t *testing.T) {
	votes := voteRig(0.5, 4)

	count, needed, reached := votes.CastVote("!room:test", "@target:test", "@v1:test")
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, needed)
	assert.False(t, reached)

	count, _, reached = votes.CastVote("!room:test", "@target:test", "@v2:test")
	assert.Equal(t, 2, count)
	assert.True(t, reached)
}

func TestVoteDuplicateVoterIsNoOp(t *testing.T) {
	votes := voteRig(0.5, 4)

	votes.CastVote("!room:test", "@target:test", "@v1:test")
	count, _, reached := votes.CastVote("!room:test", "@target:test", "@v1:test")
	assert.Equal(t, 1, count)
	assert.False(t, reached)
}

func TestVoteClosesOnceReached(t *testing.T) {
	votes := voteRig(0.5, 2)

	_, _, reached := votes.CastVote("!room:test", "@target:test", "@v1:test")
	assert.True(t, reached)

	// The vote is closed; a further vote opens a fresh one.
	count, _, _ := votes.CastVote("!room:test", "@target:test", "@v2:test")
	assert.Equal(t, 1, count)
}

func TestVoteQuorumNeverBelowOne(t *testing.T) {
	votes := voteRig(0.5, 0)
	_, needed, reached := votes.CastVote("!empty:test", "@target:test", "@v1:test")
	assert.Equal(t, 1, needed)
	assert.True(t, reached)
}

func TestVoteSeparateTargetsTrackedApart(t *testing.T) {
	votes := voteRig(0.9, 4)

	votes.CastVote("!room:test", "@first:test", "@v1:test")
	count, _, _ := votes.CastVote("!room:test", "@second:test", "@v1:test")
	assert.Equal(t, 1, count)
}
