package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"sync/atomic"
	"time"

	"flowfinance/internal/amqp"
	"flowfinance/internal/api"
	"flowfinance/internal/backend"
	"flowfinance/internal/cli"
	"flowfinance/internal/log"
	"flowfinance/internal/session"
	"flowfinance/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "mirror once and exit")
	flag.Parse()
	os.Exit(run(*once))
}

// run starts the worker and returns the process exit status. Deferred
// cleanup runs before main exits.
func run(once bool) int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting flow-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, _ := cli.GracefulShutdown(logger, 30*time.Second, nil)
	infra := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := infra.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err.Error())
		}
	}()

	// The worker reads with the token persisted by `flow login`.
	client := api.New(cfg.APIBaseURL, nil, api.WithTimeout(cfg.APITimeout), api.WithLogger(logger))
	sess := session.New(client, infra.Tokens, session.WithLogger(logger))
	client.SetTokenSource(sess)
	if err := sess.Initialize(ctx); err != nil {
		logger.Error("Failed to restore session", log.FieldError, err.Error())
		return 1
	}
	user, ok := sess.User()
	if !ok {
		logger.Error("No valid session, run `flow login` first")
		return 1
	}

	bcfg, _ := backend.FromAppConfig(cfg)
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err.Error())
		return 1
	}

	mirrorWorker := worker.NewMirrorWorker(client, mirror, logger)

	logger.Info("Performing startup mirror", log.FieldUsername, user.Username)
	if err := mirrorWorker.Mirror(ctx); err != nil {
		logger.Error("Startup mirror failed", log.FieldError, err.Error())
		if once || api.IsAuth(err) {
			return 1
		}
	}
	if once {
		return 0
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// An auth failure on either path ends the worker with status 1.
	var authFailed atomic.Bool
	stopOnAuth := func(err error) {
		if api.IsAuth(err) {
			logger.Error("Session expired, stopping worker", log.FieldError, err.Error())
			authFailed.Store(true)
			cancel()
		}
	}

	if infra.Events != nil {
		go func() {
			err := infra.Events.ConsumeChanges(ctx, func(ctx context.Context, msg *amqp.ChangeMessage) error {
				err := mirrorWorker.HandleChange(ctx, msg)
				stopOnAuth(err)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err.Error())
			}
			cancel()
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	// Periodic mirror catches changes whose messages were lost
	if cfg.MirrorInterval > 0 {
		go func() {
			stopOnAuth(mirrorWorker.RunPeriodic(ctx, cfg.MirrorInterval))
		}()
	} else if infra.Events == nil {
		logger.Warn("Neither AMQP nor a mirror interval is configured, nothing to do")
		return 0
	}

	<-ctx.Done()
	logger.Info("Worker shutdown complete")
	if authFailed.Load() {
		return 1
	}
	return 0
}
