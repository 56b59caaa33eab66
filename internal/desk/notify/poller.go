package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/desk/session"
)

// DefaultPollInterval is how often the badge count refreshes.
const DefaultPollInterval = 30 * time.Second

// Poller refreshes the badge count: once on Start, then every interval
// until Stop.
type Poller struct {
	agg      *Aggregator
	interval time.Duration
	onCount  func(int)
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	last   int
}

// NewPoller refreshes the badge every interval and reports it to onCount.
func NewPoller(agg *Aggregator, interval time.Duration, onCount func(int), logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{agg: agg, interval: interval, onCount: onCount, logger: logger}
}

// Start begins polling for sess, replacing any previous run. A nil session
// does nothing.
func (p *Poller) Start(sess *session.Session) {
	p.Stop()
	if sess == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go p.run(ctx, sess, done)
}

func (p *Poller) run(ctx context.Context, sess *session.Session, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.refresh(ctx, sess)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) refresh(ctx context.Context, sess *session.Session) {
	n := p.agg.Count(ctx, sess)
	if ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	p.last = n
	p.mu.Unlock()
	p.logger.Debug().Int("count", n).Msg("notification count refreshed")
	if p.onCount != nil {
		p.onCount(n)
	}
}

// Stop cancels polling and waits for the poll goroutine to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Last is the most recent count.
func (p *Poller) Last() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
