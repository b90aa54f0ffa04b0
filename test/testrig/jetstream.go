package testrig

import (
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

// CreateJetStream starts an in-memory embedded queue server for a test and
// tears it down with the test.
func CreateJetStream(t *testing.T, cfg *config.Warden) nats.JetStreamContext {
	t.Helper()
	proc := process.NewProcessContext()
	instance := &jetstream.NATSInstance{}
	js, _ := instance.Prepare(proc, &cfg.Global.JetStream)
	t.Cleanup(func() {
		proc.Shutdown()
		proc.WaitForComponentsToFinish()
	})
	return js
}

// MustPublishMsgs publishes the given messages or fails the test.
func MustPublishMsgs(t *testing.T, jsctx nats.JetStreamContext, msgs ...*nats.Msg) {
	t.Helper()
	for _, msg := range msgs {
		if _, err := jsctx.PublishMsg(msg); err != nil {
			t.Fatalf("MustPublishMsgs: failed to publish message: %s", err)
		}
	}
}
