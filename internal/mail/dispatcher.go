package mail

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher sends in the background so callers never wait on a provider.
// Failures are logged and dropped.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

func (d *Dispatcher) Dispatch(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		ctx = d.log.WithContext(ctx)

		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error().
				Err(err).
				Str("to", msg.To).
				Str("kind", string(msg.Kind)).
				Msg("email delivery failed")
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
