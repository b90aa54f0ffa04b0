package jetstream

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	natsserver "github.com/nats-io/nats-server/v2/server"
	natsclient "github.com/nats-io/nats.go"

	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/process"
)

// NATSInstance manages the connection to NATS, starting an embedded
// in-process server when no external addresses are configured.
type NATSInstance struct {
	*natsserver.Server
	nc *natsclient.Conn
	js natsclient.JetStreamContext
	sync.Mutex
}

// Prepare returns a JetStream context, starting the embedded NATS server
// first if needed. Stream creation is idempotent so it is safe to call this
// once per component.
func (s *NATSInstance) Prepare(process *process.ProcessContext, cfg *config.JetStream) (natsclient.JetStreamContext, *natsclient.Conn) {
	s.Lock()
	defer s.Unlock()
	// reuse existing connections
	if s.nc != nil {
		return s.js, s.nc
	}
	// check if we need an in-process NATS Server
	if len(cfg.Addresses) != 0 {
		js, nc := setupNATS(cfg, nil)
		s.js = js
		s.nc = nc
		return js, nc
	}
	if s.Server == nil {
		natsServer, err := natsserver.NewServer(&natsserver.Options{
			ServerName:      "monolith",
			DontListen:      true,
			JetStream:       true,
			StoreDir:        string(cfg.StoragePath),
			NoSystemAccount: true,
			NoSigs:          true,
			NoLog:           cfg.NoLog,
		})
		if err != nil {
			panic(err)
		}
		if !cfg.NoLog {
			natsServer.SetLogger(newNATSLogger(), false, false)
		}
		go natsServer.Start()
		s.Server = natsServer
		go func() {
			<-process.WaitForShutdown()
			natsServer.Shutdown()
			natsServer.WaitForShutdown()
		}()
	}
	if !s.ReadyForConnections(time.Second * 10) {
		logrus.Fatalln("NATS did not start in time")
	}
	nc, err := natsclient.Connect("", natsclient.InProcessServer(s))
	if err != nil {
		logrus.Fatalln("Failed to create NATS client")
	}
	js, _ := setupNATS(cfg, nc)
	s.js = js
	s.nc = nc
	return js, nc
}

func setupNATS(cfg *config.JetStream, nc *natsclient.Conn) (natsclient.JetStreamContext, *natsclient.Conn) {
	if nc == nil {
		var err error
		nc, err = natsclient.Connect(strings.Join(cfg.Addresses, ","))
		if err != nil {
			logrus.WithError(err).Panic("Unable to connect to NATS")
			return nil, nil
		}
	}

	js, err := nc.JetStream()
	if err != nil {
		logrus.WithError(err).Panic("Unable to get JetStream context")
		return nil, nil
	}

	for _, stream := range streams { // streams are defined in streams.go
		name := cfg.Prefixed(stream.Name)
		info, err := js.StreamInfo(name)
		if err != nil && err != natsclient.ErrStreamNotFound {
			logrus.WithError(err).Fatal("Unable to get stream info")
		}
		if info == nil {
			// Namespace the stream without mutating the shared definition.
			namespaced := *stream
			namespaced.Name = name
			namespaced.Subjects = []string{name}
			// If we're trying to keep everything in memory (e.g. unit tests)
			// then overwrite the storage policy.
			if cfg.InMemory {
				namespaced.Storage = natsclient.MemoryStorage
			}
			if _, err = js.AddStream(&namespaced); err != nil {
				logrus.WithError(err).WithField("stream", name).Fatal("Unable to add stream")
			}
		}
	}

	return js, nc
}
