package app

import (
	"context"
	"sync"

	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// dispatcher fans inbound updates out to one queue per owner: events for a
// single owner are handled strictly in arrival order, while different
// owners proceed in parallel.
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64]chan *transport.Message

	sup    *supervisor.Supervisor
	log    logx.Logger
	handle func(ctx context.Context, msg *transport.Message)
}

const ownerQueueSize = 16

func newDispatcher(sup *supervisor.Supervisor, log logx.Logger, handle func(ctx context.Context, msg *transport.Message)) *dispatcher {
	return &dispatcher{
		queues: map[int64]chan *transport.Message{},
		sup:    sup,
		log:    log,
		handle: handle,
	}
}

// run consumes the shared update channel until ctx is done.
func (d *dispatcher) run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-updates:
			if up.Message == nil {
				continue
			}
			d.route(up.Message)
		}
	}
}

func (d *dispatcher) route(msg *transport.Message) {
	ownerID := msg.ChatID

	d.mu.Lock()
	q, ok := d.queues[ownerID]
	if !ok {
		q = make(chan *transport.Message, ownerQueueSize)
		d.queues[ownerID] = q
		d.sup.Go0("owner.worker", func(ctx context.Context) {
			d.ownerWorker(ctx, q)
		})
	}
	d.mu.Unlock()

	select {
	case q <- msg:
	default:
		// An owner flooding their own queue only loses their own input.
		d.log.Warn("owner queue full; message dropped", logx.Int64("owner_id", ownerID))
	}
}

func (d *dispatcher) ownerWorker(ctx context.Context, q <-chan *transport.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q:
			d.handle(ctx, msg)
		}
	}
}
