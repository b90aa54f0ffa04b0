package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/process"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/types"
	"github.com/voicewarden/voicewarden/test/testrig"
)

func TestNameRotatorRoundRobin(t *testing.T) {
	proc := process.NewProcessContext()
	t.Cleanup(proc.Shutdown)

	disabled := false
	queue := dispatch.NewQueue(proc, &config.Dispatch{
		SendInterval: time.Millisecond,
		SendTimeout:  time.Second,
		Enabled:      &disabled,
	}, nil, nil, "")

	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)
	operator := testOperator
	store.SetOwnership("!room:test", types.OwnershipUpdate{CreatorID: &operator})
	store.UpdateMemberConfig(testOperator, func(m *types.MemberModerationConfig) {
		m.NameRotationList = []string{"Red Room", "Blue Room"}
	})

	cfg := testModerationConfig()
	rotator := NewNameRotator(cfg, store, queue, NewScheduler(proc), testOperator)

	rotator.rotate()
	assert.Equal(t, "Red Room", store.MemberConfig(testOperator).CustomName)
	_, normal := queue.PendingCounts()
	assert.Equal(t, 1, normal)

	rotator.rotate()
	assert.Equal(t, "Blue Room", store.MemberConfig(testOperator).CustomName)

	rotator.rotate()
	assert.Equal(t, "Red Room", store.MemberConfig(testOperator).CustomName, "rotation wraps around")
}

func TestNameRotatorEmptyListIsNoOp(t *testing.T) {
	proc := process.NewProcessContext()
	t.Cleanup(proc.Shutdown)

	disabled := false
	queue := dispatch.NewQueue(proc, &config.Dispatch{
		SendInterval: time.Millisecond,
		SendTimeout:  time.Second,
		Enabled:      &disabled,
	}, nil, nil, "")
	store := statestore.NewStore(testrig.NewInMemoryDB(), time.Hour)

	rotator := NewNameRotator(testModerationConfig(), store, queue, NewScheduler(proc), testOperator)
	rotator.rotate()

	priority, normal := queue.PendingCounts()
	assert.Zero(t, priority+normal)
}
