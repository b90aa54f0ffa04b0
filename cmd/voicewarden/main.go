package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/voicewarden/voicewarden/bot"
	"github.com/voicewarden/voicewarden/bot/consumers"
	"github.com/voicewarden/voicewarden/dispatch"
	"github.com/voicewarden/voicewarden/internal"
	"github.com/voicewarden/voicewarden/moderation"
	"github.com/voicewarden/voicewarden/pipeline"
	"github.com/voicewarden/voicewarden/reconcile"
	"github.com/voicewarden/voicewarden/setup/base"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/statestore"
	"github.com/voicewarden/voicewarden/statestore/storage/sqlite3"
)

var (
	configPath = flag.String("config", "voicewarden.yaml", "The path to the config file. For more information, see the config file in this repository.")
	version    = flag.Bool("version", false, "Shows the current version and exits immediately.")
)

func main() {
	flag.Parse()
	if *version {
		fmt.Println(internal.VersionString())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Invalid config file: %s", err)
	}

	b := base.NewBaseWarden(cfg)
	logrus.Infof("Voicewarden version %s", internal.VersionString())

	js, _ := b.JetStream()

	db, err := sqlite3.NewDatabase(&cfg.Global.DatabaseOptions)
	if err != nil {
		logrus.WithError(err).Panic("Failed to open state database")
	}
	store := statestore.NewStore(db, statestore.DefaultFlushDelay)
	store.Load(b.ProcessContext.Context())

	client, err := bot.NewClient(&cfg.Global)
	if err != nil {
		logrus.WithError(err).Panic("Failed to create homeserver client")
	}

	queue := dispatch.NewQueue(
		b.ProcessContext, &cfg.Dispatch, client, js,
		cfg.Global.JetStream.Prefixed(jetstream.OutputModerationAction),
	)

	presence := moderation.NewPresenceTracker()
	blocked := bot.NewIgnoredUsersChecker(client)
	banPolicy := moderation.NewBanPolicy(
		&cfg.Moderation, store, queue, presence, blocked, cfg.Global.UserID,
	)
	permits := moderation.NewPermitEngine(&cfg.Moderation, store, queue)
	votes := moderation.NewVoteTracker(&cfg.Moderation.VoteBan, presence)
	scheduler := moderation.NewScheduler(b.ProcessContext)

	// The allow side must run before the deny side.
	pipe := pipeline.NewJoinPipeline()
	pipe.Subscribe(moderation.NewWhitelistPolicy(&cfg.Moderation, store, cfg.Global.UserID))
	pipe.Subscribe(banPolicy)

	registry := pipeline.NewRegistry()
	registry.Register(moderation.NewNameRotator(
		&cfg.Moderation, store, queue, scheduler, cfg.Global.UserID,
	))
	registry.Init(cfg)

	reconciler := reconcile.NewReconciler(store, b.Caches, reconcile.ListCapacities{
		Ban:    cfg.Moderation.BanListCapacity,
		Permit: cfg.Moderation.PermitListCapacity,
	}, cfg.Global.UserID)

	if err := consumers.NewMembershipConsumer(b.ProcessContext, cfg, js, presence, pipe).Start(); err != nil {
		logrus.WithError(err).Panic("Failed to start membership consumer")
	}
	if err := consumers.NewReplyConsumer(b.ProcessContext, cfg, js, reconciler).Start(); err != nil {
		logrus.WithError(err).Panic("Failed to start reply consumer")
	}
	if err := consumers.NewCommandConsumer(
		b.ProcessContext, cfg, js, queue, store, presence, banPolicy, permits, votes,
	).Start(); err != nil {
		logrus.WithError(err).Panic("Failed to start command consumer")
	}
	if err := consumers.NewActionConsumer(b.ProcessContext, cfg, js, client).Start(); err != nil {
		logrus.WithError(err).Panic("Failed to start action consumer")
	}

	bot.NewIngestor(b.ProcessContext, cfg, client, js).Start()
	b.StartMetrics()

	b.WaitForShutdown()

	// Push any pending debounced state out before we go.
	store.Flush(context.Background())
}
