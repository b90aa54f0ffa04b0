package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testHandler struct {
	name     string
	decision Decision
	calls    int
}

func (h *testHandler) Name() string { return h.name }

func (h *testHandler) OnJoin(_ context.Context, _ *JoinEvent) Decision {
	h.calls++
	return h.decision
}

type panickyHandler struct{}

func (panickyHandler) Name() string { return "panicky" }

func (panickyHandler) OnJoin(_ context.Context, _ *JoinEvent) Decision {
	panic("boom")
}

func TestPipelineFirstDecisiveWins(t *testing.T) {
	allow := &testHandler{name: "allow", decision: Allow("listed")}
	deny := &testHandler{name: "deny", decision: Deny("listed", "kick")}

	p := NewJoinPipeline()
	p.Subscribe(allow)
	p.Subscribe(deny)

	decision := p.Evaluate(context.Background(), &JoinEvent{RoomID: "!room", UserID: "@user:test"})
	assert.Equal(t, VerdictAllow, decision.Verdict)
	assert.Equal(t, 1, allow.calls)
	assert.Equal(t, 0, deny.calls, "handlers after a decisive one must not run")
}

func TestPipelineContinueFallsThrough(t *testing.T) {
	first := &testHandler{name: "first", decision: Continue()}
	second := &testHandler{name: "second", decision: Deny("bad", "ban")}

	p := NewJoinPipeline()
	p.Subscribe(first)
	p.Subscribe(second)

	decision := p.Evaluate(context.Background(), &JoinEvent{RoomID: "!room", UserID: "@user:test"})
	assert.Equal(t, VerdictDeny, decision.Verdict)
	assert.Equal(t, "ban", decision.Action)
	assert.Equal(t, 1, first.calls)
}

func TestPipelineDefaultAllow(t *testing.T) {
	p := NewJoinPipeline()
	p.Subscribe(&testHandler{name: "indifferent", decision: Continue()})

	decision := p.Evaluate(context.Background(), &JoinEvent{RoomID: "!room", UserID: "@user:test"})
	assert.Equal(t, VerdictAllow, decision.Verdict)
}

func TestPipelinePanicIsContinue(t *testing.T) {
	after := &testHandler{name: "after", decision: Deny("bad", "kick")}

	p := NewJoinPipeline()
	p.Subscribe(panickyHandler{})
	p.Subscribe(after)

	decision := p.Evaluate(context.Background(), &JoinEvent{RoomID: "!room", UserID: "@user:test"})
	assert.Equal(t, VerdictDeny, decision.Verdict)
	assert.Equal(t, 1, after.calls, "a panicking handler must not stop the chain")
}
