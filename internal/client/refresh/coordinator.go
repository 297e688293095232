// Package refresh serialises credential renewal for every request that
// discovers an expired access token.
//
// The Coordinator is either Idle or Refreshing. The first ReportExpired call
// in Idle starts the renewal; calls made while Refreshing queue behind it.
// When the renewal settles every queued caller observes the same outcome in
// the order it queued, and the Coordinator returns to Idle. A failed renewal
// clears the session once and fires OnTerminated once; it is never retried.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
)

// Renewer obtains a fresh access token, usually by calling /auth/refresh.
type Renewer func(ctx context.Context) (string, error)

// errEmptyToken is returned when a renewal succeeds without a token.
var errEmptyToken = errors.New("renewal returned an empty access token")

type waiter func(token string, err error)

type result struct {
	token string
	err   error
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	session      session.Accessor
	renew        Renewer
	logger       logging.Logger
	metrics      *metrics.Metrics
	onTerminated func(error)

	mu         sync.Mutex
	refreshing bool
	waiters    []waiter
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics records renewal outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithOnTerminated registers the session-terminated signal. It is called
// once per failed renewal, after every waiter has been settled.
func WithOnTerminated(fn func(error)) Option {
	return func(c *Coordinator) { c.onTerminated = fn }
}

// New returns an Idle Coordinator.
func New(s session.Accessor, renew Renewer, opts ...Option) *Coordinator {
	c := &Coordinator{
		session: s,
		renew:   renew,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AcquireToken returns the current access token, or "" when logged out.
func (c *Coordinator) AcquireToken() string {
	return c.session.Snapshot().AccessToken
}

// Refreshing reports whether a renewal is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// ReportExpired is called after a request carrying staleToken was rejected.
// It returns a fresh token, starting a renewal only when none is in flight.
//
// If the session already holds a different non-empty token, an earlier
// renewal has replaced staleToken and that token is returned directly.
//
// The renewal itself is detached from ctx: a caller that gives up returns
// ctx.Err() but the renewal still settles every other waiter. A failed
// renewal surfaces as common.ErrSessionTerminated wrapping the cause.
func (c *Coordinator) ReportExpired(ctx context.Context, staleToken string) (string, error) {
	done := make(chan result, 1)
	w := func(token string, err error) { done <- result{token: token, err: err} }

	if !c.enqueue(w) {
		if current := c.lead(ctx, staleToken, w); current != "" {
			c.metrics.ObserveRefresh(metrics.RefreshSkipped)
			return current, nil
		}
	}

	select {
	case r := <-done:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// enqueue adds w behind the in-flight renewal. It reports false in Idle.
func (c *Coordinator) enqueue(w waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.refreshing {
		return false
	}
	c.waiters = append(c.waiters, w)
	return true
}

// lead starts a renewal with w as its first waiter. If a renewal started
// after enqueue failed, w joins that one instead. A non-empty result is the
// session token that already replaced staleToken; w is not queued then.
func (c *Coordinator) lead(ctx context.Context, staleToken string, w waiter) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		c.waiters = append(c.waiters, w)
		return ""
	}
	if current := c.session.Snapshot().AccessToken; current != "" && current != staleToken {
		return current
	}
	c.refreshing = true
	c.waiters = append(c.waiters, w)
	go c.run(context.WithoutCancel(ctx))
	return ""
}

func (c *Coordinator) run(ctx context.Context) {
	start := time.Now()
	c.logger.Debug(ctx, "access token renewal started")

	token, err := c.renew(ctx)
	if err == nil && token == "" {
		err = errEmptyToken
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", common.ErrSessionTerminated, err)
	}

	c.mu.Lock()
	if err == nil {
		c.session.SetAccessToken(token)
	} else {
		c.session.Clear()
	}
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, w := range waiters {
		w(token, err)
	}

	if err != nil {
		c.metrics.ObserveRefresh(metrics.RefreshFailed)
		c.logger.Error(ctx, "access token renewal failed",
			"waiters", len(waiters), "duration", time.Since(start), "error", err)
		if c.onTerminated != nil {
			c.onTerminated(err)
		}
		return
	}

	c.metrics.ObserveRefresh(metrics.RefreshSucceeded)
	c.logger.Info(ctx, "access token renewed",
		"waiters", len(waiters), "duration", time.Since(start))
}
