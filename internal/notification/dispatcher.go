package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher fans intents out to a small worker pool. Enqueue never blocks
// the caller: when the buffer is full the intent is dropped with a warning,
// because an email is a courtesy while the state change behind it has
// already committed.
type Dispatcher struct {
	mailer Mailer
	log    *zap.Logger

	workers int
	intents chan Intent

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewDispatcher builds a dispatcher over the given mailer.
func NewDispatcher(mailer Mailer, workers, buffer int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = workers * 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		mailer:  mailer,
		log:     log,
		workers: workers,
		intents: make(chan Intent, buffer),
	}
}

// Start launches the workers. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.log.Info("notification dispatcher started", zap.Int("workers", d.workers))
}

// Stop cancels the workers and waits for them to finish. Workers drain
// whatever is already buffered before exiting, so a graceful shutdown does
// not abandon queued mail.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.log.Info("notification dispatcher stopped")
}

// Enqueue hands an intent to the workers, best-effort.
func (d *Dispatcher) Enqueue(intent Intent) {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		d.log.Warn("dispatcher not started, dropping mail",
			zap.String("to", intent.Recipient), zap.String("kind", string(intent.Kind)))
		return
	}

	select {
	case d.intents <- intent:
	default:
		d.log.Warn("mail buffer full, dropping mail",
			zap.String("to", intent.Recipient), zap.String("kind", string(intent.Kind)))
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			d.drain()
			return
		case intent := <-d.intents:
			d.deliver(intent)
		}
	}
}

// drain delivers what is left in the buffer after cancellation.
func (d *Dispatcher) drain() {
	for {
		select {
		case intent := <-d.intents:
			d.deliver(intent)
		default:
			return
		}
	}
}

// deliver sends one intent with a single retry. Failures end here.
func (d *Dispatcher) deliver(intent Intent) {
	err := d.mailer.Send(d.ctx, intent)
	if err == nil {
		return
	}
	d.log.Warn("mail send failed, retrying once",
		zap.String("to", intent.Recipient),
		zap.String("kind", string(intent.Kind)),
		zap.Error(err),
	)
	if err = d.mailer.Send(d.ctx, intent); err != nil {
		d.log.Error("mail send failed, giving up",
			zap.String("to", intent.Recipient),
			zap.String("kind", string(intent.Kind)),
			zap.Error(err),
		)
	}
}
