// Package app wires the bot together: config, logging, storage, transport,
// the conversation state machine and the delivery scheduler, plus recovery
// of stored reminders on start.
package app

import (
	"context"
	"fmt"

	"remindbot/internal/config"
	"remindbot/internal/delivery"
	"remindbot/internal/eventbus"
	"remindbot/internal/flow"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	"remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
)

const updateQueueSize = 256

type App struct {
	cfgPath string
	cfg     config.Config

	logSvc *logx.Service
	log    logx.Logger

	bus      eventbus.Bus
	store    *storage.Store
	adapter  transport.Adapter
	delivery *delivery.Service
	fsm      *flow.FSM
	maint    *maintenance

	sup     *supervisor.Supervisor
	updates chan transport.Update
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})

	bus := eventbus.New()

	busyTimeout, err := cfg.Storage.BusyTimeoutDuration()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout}, log, bus)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pollTimeout, err := cfg.Telegram.PollTimeoutDuration()
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout}, log)
	if err != nil {
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	backoff, err := cfg.Delivery.RetryBackoffDuration()
	if err != nil {
		return nil, err
	}
	ratePerSec := cfg.Delivery.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 25
	}
	del := delivery.New(
		delivery.Config{RetryBackoff: backoff, RatePerSec: ratePerSec},
		chatNotifier{adapter: adapter},
		log, bus,
	)

	a := &App{
		cfgPath:  cfgPath,
		cfg:      cfg,
		logSvc:   logSvc,
		log:      log,
		bus:      bus,
		store:    store,
		adapter:  adapter,
		delivery: del,
	}
	a.fsm = flow.New(store, del, adapter, log)
	a.maint = newMaintenance(a)
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	a.delivery.Start(ctx)
	if err := a.recover(ctx); err != nil {
		return err
	}

	a.updates = make(chan transport.Update, updateQueueSize)
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return fmt.Errorf("start transport: %w", err)
	}

	disp := newDispatcher(a.sup, a.log, func(ctx context.Context, msg *transport.Message) {
		a.fsm.HandleMessage(ctx, msg)
	})
	a.sup.Go0("dispatch", func(c context.Context) {
		disp.run(c, a.updates)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return config.Watch(c, a.cfgPath, a.log, a.applyConfig)
	})

	if a.cfg.Maintenance.Enabled {
		every, err := a.cfg.Maintenance.ReportEveryDuration()
		if err != nil {
			return err
		}
		a.maint.start(ctx, every)
	}

	a.log.Info("started")
	return nil
}

// recover restarts a delivery loop for every stored reminder so reminders
// keep firing across restarts. The full interval restarts from boot: the
// original cadence is best-effort, not offset to time-to-next-fire.
func (a *App) recover(ctx context.Context) error {
	reminders, err := a.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("recovery list: %w", err)
	}
	for _, r := range reminders {
		if err := a.delivery.StartLoop(r); err != nil {
			// A record with an unresolvable label must not block boot; it
			// stays listable/deletable without delivery.
			a.log.Error("recovery skipped reminder",
				logx.Int64("reminder_id", r.ID),
				logx.Int64("owner_id", r.OwnerID),
				logx.Err(err))
		}
	}
	a.log.Info("recovery complete", logx.Int("reminders", len(reminders)))
	return nil
}

// applyConfig handles hot reload. Only logging honors live changes; the
// transport token and storage path require a restart.
func (a *App) applyConfig(cfg config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})
	a.cfg.Logging = cfg.Logging
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")

	if a.adapter != nil {
		_ = a.adapter.Stop(ctx)
	}
	if a.maint != nil {
		a.maint.stop()
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.delivery != nil {
		_ = a.delivery.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
	return nil
}
