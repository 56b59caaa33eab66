// Package console ties the desk together: the session store drives the
// live channel and the badge poller, and both feed the notification panel.
package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/desk/alert"
	"github.com/clinica/clinic/internal/desk/channel"
	"github.com/clinica/clinic/internal/desk/notify"
	"github.com/clinica/clinic/internal/desk/session"
)

// Options configures the channel and poller a Console owns.
type Options struct {
	Channel      channel.Options
	PollInterval time.Duration
	// OnCount receives every badge refresh.
	OnCount func(int)
}

// Console runs the live channel and poller for whoever is signed in.
type Console struct {
	store   *session.Store
	channel *channel.Channel
	agg     *notify.Aggregator
	poller  *notify.Poller
	panel   *notify.Panel
	logger  zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
}

// New builds the console and subscribes it to store.
func New(store *session.Store, src notify.Source, sink alert.Sink, opts Options, logger zerolog.Logger) *Console {
	c := &Console{
		store:  store,
		panel:  notify.NewPanel(),
		logger: logger.With().Str("component", "console").Logger(),
		ctx:    context.Background(),
	}

	hook := opts.Channel.OnMessage
	opts.Channel.OnMessage = func(m channel.Message) {
		if e, ok := notify.EntryFromMessage(m); ok {
			c.panel.Push(e)
		}
		if hook != nil {
			hook(m)
		}
	}
	c.channel = channel.New(opts.Channel, sink, logger)
	c.agg = notify.NewAggregator(src, logger)
	c.poller = notify.NewPoller(c.agg, opts.PollInterval, opts.OnCount, logger)
	store.OnChange(c.apply)
	return c
}

// Start restores the persisted session, which activates the channel and the
// poller when one exists. ctx bounds the dials made on session changes.
func (c *Console) Start(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	c.ctx = ctx
	c.stopped = false
	c.mu.Unlock()
	return c.store.Restore()
}

// apply reacts to a session change: everything tied to the previous
// session is torn down before anything for the new one starts.
func (c *Console) apply(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	c.poller.Stop()
	c.channel.Close()
	if sess == nil {
		c.channel.ClearMessages()
		c.panel.Reset()
		c.logger.Debug().Msg("signed out, live updates stopped")
		return
	}

	if err := c.channel.Activate(c.ctx, sess.Token); err != nil && !errors.Is(err, channel.ErrNoToken) {
		c.logger.Warn().Err(err).Msg("live channel unavailable")
	}
	c.poller.Start(sess)
}

// OpenPanel refreshes the fetched part of the panel and returns the full
// list.
func (c *Console) OpenPanel(ctx context.Context) notify.Result {
	res := c.agg.Collect(ctx, c.store.Current())
	c.panel.Replace(res.Entries)
	res.Entries = c.panel.Entries()
	return res
}

// Panel is the notification list fed by refreshes and live pushes.
func (c *Console) Panel() *notify.Panel {
	return c.panel
}

// Channel is the live connection of the signed-in user.
func (c *Console) Channel() *channel.Channel {
	return c.channel
}

// Stop tears down the channel and the poller. Later session changes are
// ignored.
func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.poller.Stop()
	c.channel.Close()
}
