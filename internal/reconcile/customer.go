package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"food-market/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher loads the current state of one order.
type Fetcher interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// CustomerConfig tunes the poll loop.
type CustomerConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	MaxBackoff   time.Duration
}

// DefaultCustomerConfig polls every three seconds.
func DefaultCustomerConfig() CustomerConfig {
	return CustomerConfig{
		Interval:     3 * time.Second,
		FetchTimeout: 5 * time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// Customer tracks one order by polling until it reaches a terminal status.
type Customer struct {
	orderID uuid.UUID
	fetcher Fetcher
	cfg     CustomerConfig
	view    *View

	mu       sync.Mutex
	onChange func(order model.Order)

	logger zerolog.Logger
}

// NewCustomer creates a reconciler for orderID. Zero config values take the defaults.
func NewCustomer(orderID uuid.UUID, fetcher Fetcher, cfg CustomerConfig, logger zerolog.Logger) *Customer {
	defaults := DefaultCustomerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = max(defaults.MaxBackoff, cfg.Interval)
	}

	return &Customer{
		orderID: orderID,
		fetcher: fetcher,
		cfg:     cfg,
		view:    NewView(),
		logger:  logger.With().Str("component", "customer-reconciler").Str("order_id", orderID.String()).Logger(),
	}
}

// OnChange registers fn to receive the order whenever a newer version is seen.
func (c *Customer) OnChange(fn func(order model.Order)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Current returns the last known state of the order.
func (c *Customer) Current() (model.Order, bool) {
	return c.view.Get(c.orderID)
}

// Run polls until the order is terminal or ctx is cancelled; neither is an
// error. A failed fetch keeps the last known order and backs off. An order
// that was never seen and is reported missing ends the loop with
// model.ErrOrderNotFound.
func (c *Customer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.Interval
	b.MaxInterval = c.cfg.MaxBackoff
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		wait := c.cfg.Interval

		order, err := c.fetch(ctx)
		switch {
		case err == nil:
			b.Reset()
			if c.apply(*order) && order.Status.IsTerminal() {
				c.logger.Info().Str("status", string(order.Status)).Msg("order reached a final status")
				return nil
			}
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, model.ErrOrderNotFound):
			if _, known := c.Current(); !known {
				return err
			}
			wait = b.NextBackOff()
			c.logger.Warn().Err(err).Dur("retry_in", wait).Msg("order fetch failed")
		default:
			wait = b.NextBackOff()
			c.logger.Warn().Err(err).Dur("retry_in", wait).Msg("order fetch failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Customer) fetch(ctx context.Context) (*model.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	return c.fetcher.GetOrder(ctx, c.orderID)
}

// apply stores a fetched order and reports whether it is the state now held.
func (c *Customer) apply(order model.Order) bool {
	prev, known := c.Current()
	if !c.view.Upsert(order) {
		c.logger.Debug().Int("version", order.Version).Msg("ignoring stale order")
		return false
	}
	if known && prev.Version == order.Version {
		return true
	}

	c.logger.Info().Str("status", string(order.Status)).Int("version", order.Version).Msg("order changed")

	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(order)
	}
	return true
}
