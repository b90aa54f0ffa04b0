// Package pipeline contains the module registry and the ordered evaluation
// chain that decides the outcome of a join occurrence. Handlers return an
// explicit decision instead of mutating a shared payload: the first decisive
// handler wins and later handlers are not consulted.
package pipeline

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/setup/config"
)

type Verdict int

const (
	// VerdictContinue means the handler has no opinion; the next handler in
	// the chain is consulted.
	VerdictContinue Verdict = iota
	// VerdictAllow short-circuits the chain: the join is allowed and no
	// later handler may override it.
	VerdictAllow
	// VerdictDeny short-circuits the chain: the handler has denied the join
	// and performed (or enqueued) its enforcement.
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictDeny:
		return "deny"
	default:
		return "continue"
	}
}

// A Decision is the outcome of one handler, or of the whole chain.
type Decision struct {
	Verdict Verdict
	// Reason is a short human-readable cause, e.g. "whitelisted" or
	// "missing required role".
	Reason string
	// Action names the enforcement taken on deny: "kick" or "ban".
	Action string
}

func Continue() Decision { return Decision{Verdict: VerdictContinue} }

func Allow(reason string) Decision {
	return Decision{Verdict: VerdictAllow, Reason: reason}
}

func Deny(reason, action string) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason, Action: action}
}

// JoinEvent is one "user joined a managed room" occurrence.
type JoinEvent struct {
	RoomID string
	UserID string
	Roles  []string
	At     time.Time
}

// A JoinHandler evaluates a join occurrence. Handlers run in registration
// order; ordering is a contract, not an accident: the allow-list handler
// must register before any deny policy.
type JoinHandler interface {
	Name() string
	OnJoin(ctx context.Context, ev *JoinEvent) Decision
}

// JoinPipeline is the ordered handler chain.
type JoinPipeline struct {
	handlers []JoinHandler
}

func NewJoinPipeline() *JoinPipeline {
	return &JoinPipeline{}
}

// Subscribe appends a handler to the chain. Not safe for use once Evaluate
// is being called; registration happens at startup.
func (p *JoinPipeline) Subscribe(h JoinHandler) {
	p.handlers = append(p.handlers, h)
}

// Evaluate runs the chain. A handler failure (panic) is logged and treated
// as Continue so that it never prevents the remaining handlers from
// running. If no handler is decisive the join is allowed.
func (p *JoinPipeline) Evaluate(ctx context.Context, ev *JoinEvent) Decision {
	for _, h := range p.handlers {
		decision := p.evaluateOne(ctx, h, ev)
		if decision.Verdict != VerdictContinue {
			joinDecisions.WithLabelValues(h.Name(), decision.Verdict.String()).Inc()
			return decision
		}
	}
	return Allow("no policy objected")
}

func (p *JoinPipeline) evaluateOne(ctx context.Context, h JoinHandler, ev *JoinEvent) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"handler": h.Name(),
				"room_id": ev.RoomID,
				"user_id": ev.UserID,
				"panic":   r,
			}).Error("Join handler panicked")
			sentry.CurrentHub().Recover(r)
			decision = Continue()
		}
	}()
	return h.OnJoin(ctx, ev)
}

// A Module is a unit with an init hook, run once at startup in registration
// order.
type Module interface {
	Name() string
	Init(cfg *config.Warden) error
}

// Registry is the module lifecycle container.
type Registry struct {
	modules []Module
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a module to the fixed-order list.
func (r *Registry) Register(m Module) {
	r.modules = append(r.modules, m)
}

// Init calls each module's init hook once, in registration order. A failed
// init disables that module's feature but does not stop the others.
func (r *Registry) Init(cfg *config.Warden) {
	for _, m := range r.modules {
		if err := m.Init(cfg); err != nil {
			logrus.WithError(err).WithField("module", m.Name()).Warn("Module failed to initialise")
			continue
		}
		logrus.WithField("module", m.Name()).Debug("Module initialised")
	}
}
