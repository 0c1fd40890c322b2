package events

import (
	"context"
	"io"
	"log"
	"sync"
	"time"
)

// AsyncPublisher runs the handler in a goroutine so the caller never waits
// on it. It is used when no broker is configured.
type AsyncPublisher struct {
	handler Handler
	timeout time.Duration
	logger  *log.Logger
	wg      sync.WaitGroup
}

func NewAsync(handler Handler, timeout time.Duration, logger *log.Logger) *AsyncPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncPublisher{handler: handler, timeout: timeout, logger: logger}
}

func (p *AsyncPublisher) Publish(ctx context.Context, ev Event) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.handler.Handle(hctx, ev); err != nil {
			p.logger.Printf("events: async handle kind=%s order_id=%s error=%v", ev.Kind, ev.OrderID, err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight handler has returned.
func (p *AsyncPublisher) Wait() {
	p.wg.Wait()
}
