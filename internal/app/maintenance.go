package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/eventbus"
	"remindbot/pkg/logx"
)

// maintenance runs periodic housekeeping: an operator-visible activity
// report built from bus events, plus a sqlite WAL checkpoint.
type maintenance struct {
	app *App

	retries   atomic.Uint64
	fatals    atomic.Uint64
	created   atomic.Uint64
	deleted   atomic.Uint64
	cancelled atomic.Uint64

	c     *cron.Cron
	unsub func()
}

func newMaintenance(app *App) *maintenance {
	return &maintenance{app: app}
}

func (m *maintenance) start(ctx context.Context, every time.Duration) {
	ch, unsub := m.app.bus.Subscribe(64)
	m.unsub = unsub
	m.app.sup.Go0("maintenance.collect", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				m.observe(ev)
			}
		}
	})

	m.c = cron.New()
	spec := fmt.Sprintf("@every %s", every)
	if _, err := m.c.AddFunc(spec, func() { m.report(ctx) }); err != nil {
		m.app.log.Error("maintenance schedule rejected", logx.String("spec", spec), logx.Err(err))
		return
	}
	m.c.Start()
	m.app.log.Info("maintenance started", logx.Duration("report_every", every))
}

func (m *maintenance) stop() {
	if m.c != nil {
		<-m.c.Stop().Done()
	}
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *maintenance) observe(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.DeliveryRetry:
		m.retries.Add(1)
	case eventbus.LoopFatal:
		m.fatals.Add(1)
	case eventbus.LoopCancelled:
		m.cancelled.Add(1)
	case eventbus.ReminderCreated:
		m.created.Add(1)
	case eventbus.ReminderDeleted:
		m.deleted.Add(1)
	}
}

func (m *maintenance) report(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stored, err := m.app.store.Count(cctx)
	if err != nil {
		m.app.log.Warn("maintenance count failed", logx.Err(err))
	}
	if err := m.app.store.Checkpoint(cctx); err != nil {
		m.app.log.Warn("wal checkpoint failed", logx.Err(err))
	}

	m.app.log.Info("activity report",
		logx.Int64("stored_reminders", stored),
		logx.Int("active_loops", len(m.app.delivery.ActiveLoops())),
		logx.Any("retries", m.retries.Swap(0)),
		logx.Any("fatal_loops", m.fatals.Swap(0)),
		logx.Any("created", m.created.Swap(0)),
		logx.Any("deleted", m.deleted.Swap(0)),
		logx.Any("cancelled", m.cancelled.Swap(0)))
}
