// Package delivery runs one loop per active reminder: sleep the interval,
// send the notification, classify failures. Transient failures delay a
// notification (fixed backoff, same send retried); fatal failures terminate
// the loop while the stored record stays intact.
package delivery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"remindbot/internal/eventbus"
	"remindbot/internal/interval"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

// Notifier is the external collaborator that actually delivers a message.
// Implementations wrap network-class errors with Transient.
type Notifier interface {
	Send(ctx context.Context, ownerID int64, text string) error
}

type Config struct {
	// RetryBackoff is the fixed wait before retrying a transient send
	// failure. The full interval is NOT re-slept, so an outage delays but
	// never skips a notification.
	RetryBackoff time.Duration

	// RatePerSec paces outbound sends across all loops (Telegram throttles
	// bots globally). 0 disables pacing.
	RatePerSec int
}

func (c Config) withDefaults() Config {
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	return c
}

type loop struct {
	reminderID int64
	ownerID    int64
	every      time.Duration
	cancel     context.CancelFunc
}

// Service owns the table of cancellable delivery loops, keyed by reminder
// id. Exactly one live loop per active reminder.
type Service struct {
	mu    sync.Mutex
	loops map[int64]*loop

	cfg      Config
	log      logx.Logger
	notifier Notifier
	bus      eventbus.Bus
	limiter  *rate.Limiter

	sup    *supervisor.Supervisor
	runCtx context.Context
}

func New(cfg Config, notifier Notifier, log logx.Logger, bus eventbus.Bus) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:      cfg,
		log:      log,
		notifier: notifier,
		bus:      bus,
		loops:    map[int64]*loop{},
	}
	if cfg.RatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return s
}

// Start prepares the service. Loops spawned later are children of ctx.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.runCtx = ctx
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
}

// Stop cancels every loop and waits for them to exit (bounded by ctx).
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	for id, l := range s.loops {
		l.cancel()
		delete(s.loops, id)
	}
	s.mu.Unlock()

	if sup == nil {
		return nil
	}
	sup.Cancel()
	return sup.Wait(ctx)
}

// StartLoop spawns the delivery loop for r. Starting an id that already has
// a live loop is a no-op, which keeps recovery and live creation from racing
// into duplicate loops.
func (s *Service) StartLoop(r storage.Reminder) error {
	every, err := interval.Resolve(r.IntervalLabel)
	if err != nil {
		return err
	}
	s.startLoop(r, every)
	return nil
}

func (s *Service) startLoop(r storage.Reminder, every time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup == nil {
		s.log.Warn("delivery not started; loop ignored", logx.Int64("reminder_id", r.ID))
		return
	}
	if _, exists := s.loops[r.ID]; exists {
		return
	}

	ctx, cancel := context.WithCancel(s.runCtx)
	l := &loop{reminderID: r.ID, ownerID: r.OwnerID, every: every, cancel: cancel}
	s.loops[r.ID] = l

	s.log.Info("delivery loop started",
		logx.Int64("reminder_id", r.ID),
		logx.Int64("owner_id", r.OwnerID),
		logx.Duration("interval", every))
	s.publish(eventbus.LoopStarted, r.ID, r.OwnerID)

	text := r.MessageText
	s.sup.Go0("loop", func(context.Context) {
		s.run(ctx, l, text)
	})
}

// CancelLoop signals the loop for id to stop at its next wake point.
// Unknown ids are a no-op.
func (s *Service) CancelLoop(id int64) {
	s.mu.Lock()
	l, ok := s.loops[id]
	if ok {
		delete(s.loops, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	l.cancel()
	s.log.Info("delivery loop cancelled",
		logx.Int64("reminder_id", l.reminderID),
		logx.Int64("owner_id", l.ownerID))
	s.publish(eventbus.LoopCancelled, l.reminderID, l.ownerID)
}

// LoopInfo describes one live delivery loop.
type LoopInfo struct {
	ReminderID int64
	OwnerID    int64
	Interval   time.Duration
}

// ActiveLoops returns a snapshot of live loops, for diagnostics and tests.
func (s *Service) ActiveLoops() []LoopInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LoopInfo, 0, len(s.loops))
	for _, l := range s.loops {
		out = append(out, LoopInfo{ReminderID: l.reminderID, OwnerID: l.ownerID, Interval: l.every})
	}
	return out
}

func (s *Service) run(ctx context.Context, l *loop, text string) {
	log := s.log.With(logx.Int64("reminder_id", l.reminderID), logx.Int64("owner_id", l.ownerID))

	timer := time.NewTimer(l.every)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Retry the same send on transient failures without re-sleeping the
		// interval, so an outage delays but never skips a notification.
		if !s.send(ctx, l, log, text) {
			return
		}

		timer.Reset(l.every)
	}
}

// send delivers one notification, retrying transient failures. It returns
// false when the loop must terminate (cancellation or fatal failure).
func (s *Service) send(ctx context.Context, l *loop, log logx.Logger, text string) bool {
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return false
			}
		}

		err := s.notifier.Send(ctx, l.ownerID, text)
		if err == nil {
			log.Debug("notification sent")
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		if IsTransient(err) {
			log.Warn("transient delivery failure; will retry",
				logx.Err(err),
				logx.Duration("backoff", s.cfg.RetryBackoff))
			s.publish(eventbus.DeliveryRetry, l.reminderID, l.ownerID)

			timer := time.NewTimer(s.cfg.RetryBackoff)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return false
			case <-timer.C:
			}
			continue
		}

		// Fatal: stop delivering but leave the stored record intact so the
		// user can still list and delete it.
		log.Error("fatal delivery failure; loop terminated", logx.Err(err))
		s.publish(eventbus.LoopFatal, l.reminderID, l.ownerID)
		s.forget(l.reminderID)
		return false
	}
}

// forget removes a loop handle after a fatal exit so a later StartLoop for
// the same id (e.g. after the transport recovers) is possible again.
func (s *Service) forget(id int64) {
	s.mu.Lock()
	delete(s.loops, id)
	s.mu.Unlock()
}

func (s *Service) publish(typ string, reminderID, ownerID int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, ReminderID: reminderID, OwnerID: ownerID})
}
