package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/process"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendCommand(_ context.Context, _, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return "$event", nil
}

func (f *fakeSender) sentCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func testDispatchConfig(startEnabled bool) *config.Dispatch {
	return &config.Dispatch{
		SendInterval:     time.Millisecond,
		SendTimeout:      time.Second,
		PriorityKeywords: []string{"claim", "info"},
		Enabled:          &startEnabled,
	}
}

func TestQueuePriorityOrdering(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	q.Enqueue(Item{Command: "kick a", RoomID: "!room"})
	q.Enqueue(Item{Command: "kick b", RoomID: "!room"})
	q.Enqueue(Item{Command: "urgent", RoomID: "!room", Priority: true})
	q.SetEnabled(true)

	require.Eventually(t, func() bool {
		return len(sender.sentCommands()) == 3
	}, time.Second*5, time.Millisecond*10)
	assert.Equal(t, []string{"urgent", "kick a", "kick b"}, sender.sentCommands())
}

func TestQueueKeywordUpgrade(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	q.Enqueue(Item{Command: "kick a", RoomID: "!room"})
	q.Enqueue(Item{Command: "!voice claim", RoomID: "!room"})

	priority, normal := q.PendingCounts()
	assert.Equal(t, 1, priority, "claim should have been upgraded")
	assert.Equal(t, 1, normal)
}

func TestQueueUnshift(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	q.Enqueue(Item{Command: "first priority", RoomID: "!room", Priority: true})
	q.Unshift(Item{Command: "jumped ahead", RoomID: "!room"})
	q.SetEnabled(true)

	require.Eventually(t, func() bool {
		return len(sender.sentCommands()) == 2
	}, time.Second*5, time.Millisecond*10)
	assert.Equal(t, []string{"jumped ahead", "first priority"}, sender.sentCommands())
}

func TestQueuePreconditionDropsWithoutDelay(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	q.Enqueue(Item{
		Command:      "kick gone",
		RoomID:       "!room",
		Precondition: func() bool { return false },
	})
	q.Enqueue(Item{Command: "kick here", RoomID: "!room"})
	q.SetEnabled(true)

	require.Eventually(t, func() bool {
		return len(sender.sentCommands()) == 1
	}, time.Second*5, time.Millisecond*10)
	assert.Equal(t, []string{"kick here"}, sender.sentCommands())
}

func TestQueueDisabledRetainsItems(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	q.Enqueue(Item{Command: "kick a", RoomID: "!room"})
	q.Enqueue(Item{Command: "kick b", RoomID: "!room"})

	time.Sleep(time.Millisecond * 50)
	assert.Empty(t, sender.sentCommands())
	priority, normal := q.PendingCounts()
	assert.Equal(t, 0, priority)
	assert.Equal(t, 2, normal)
	assert.False(t, q.Enabled())
}

func TestQueueEnqueueReturnsID(t *testing.T) {
	sender := &fakeSender{}
	proc := process.NewProcessContext()
	defer proc.Shutdown()
	q := NewQueue(proc, testDispatchConfig(false), sender, nil, "")

	id := q.Enqueue(Item{Command: "kick a", RoomID: "!room"})
	assert.NotEmpty(t, id)
	other := q.Enqueue(Item{Command: "kick b", RoomID: "!room"})
	assert.NotEqual(t, id, other)
}
