package jetstream

import (
	"github.com/nats-io/nats-server/v2/server"
	"github.com/sirupsen/logrus"
)

// natsLogger routes the embedded broker's log output through logrus so its
// lines carry the daemon's formatting and level filtering. The embedded
// entry already satisfies everything in server.Logger except Noticef.
type natsLogger struct {
	*logrus.Entry
}

var _ server.Logger = natsLogger{}

func newNATSLogger() natsLogger {
	return natsLogger{logrus.StandardLogger().WithField("component", "nats")}
}

// Noticef maps the broker's notice level onto info.
func (l natsLogger) Noticef(format string, v ...interface{}) {
	l.Infof(format, v...)
}
