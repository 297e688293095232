package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// countingStore records how often the session was cleared.
type countingStore struct {
	*session.MemoryStore
	clears atomic.Int32
}

func (s *countingStore) Clear() {
	s.clears.Add(1)
	s.MemoryStore.Clear()
}

func newStore(token string) *countingStore {
	s := &countingStore{MemoryStore: session.NewMemoryStore()}
	s.SetUser(&session.User{UserID: "u1"})
	s.SetAccessToken(token)
	return s
}

// gatedRenewer blocks every renewal until release is closed.
type gatedRenewer struct {
	calls   atomic.Int32
	release chan struct{}
	token   string
	err     error
}

func newGatedRenewer(token string, err error) *gatedRenewer {
	return &gatedRenewer{release: make(chan struct{}), token: token, err: err}
}

func (g *gatedRenewer) renew(ctx context.Context) (string, error) {
	g.calls.Add(1)
	<-g.release
	return g.token, g.err
}

func waiterCount(c *Coordinator) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func TestReportExpired_SingleFlight(t *testing.T) {
	const n = 10
	store := newStore("old")
	g := newGatedRenewer("new", nil)
	c := New(store, g.renew)

	tokens := make([]string, n)
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			tok, err := c.ReportExpired(context.Background(), "old")
			tokens[i] = tok
			return err
		})
	}

	require.Eventually(t, func() bool { return waiterCount(c) == n }, time.Second, time.Millisecond)
	close(g.release)
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(1), g.calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "new", tok)
	}
	assert.Equal(t, "new", c.AcquireToken())
	assert.False(t, c.Refreshing())
}

func TestReportExpired_SettlesWaitersInQueueOrder(t *testing.T) {
	store := newStore("old")
	g := newGatedRenewer("new", nil)
	c := New(store, g.renew)

	leader := make(chan result, 1)
	go func() {
		tok, err := c.ReportExpired(context.Background(), "old")
		leader <- result{tok, err}
	}()
	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.True(t, c.enqueue(func(token string, err error) {
			defer wg.Done()
			assert.Equal(t, "new", token)
			assert.NoError(t, err)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	close(g.release)
	r := <-leader
	wg.Wait()

	require.NoError(t, r.err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestReportExpired_FailureFansOutAndClearsOnce(t *testing.T) {
	const n = 6
	cause := errors.New("refresh cookie expired")
	store := newStore("old")
	g := newGatedRenewer("", cause)

	var terminated atomic.Int32
	m := metrics.New()
	c := New(store, g.renew,
		WithMetrics(m),
		WithOnTerminated(func(err error) {
			assert.ErrorIs(t, err, common.ErrSessionTerminated)
			terminated.Add(1)
		}))

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ReportExpired(context.Background(), "old")
		}(i)
	}

	require.Eventually(t, func() bool { return waiterCount(c) == n }, time.Second, time.Millisecond)
	close(g.release)
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrSessionTerminated)
		assert.ErrorIs(t, err, cause)
	}
	require.Eventually(t, func() bool { return terminated.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), store.clears.Load())
	assert.Equal(t, int32(1), g.calls.Load())
	assert.False(t, store.Snapshot().IsAuthenticated)
	assert.Nil(t, store.Snapshot().User)
	series, err := testutil.GatherAndCount(m.Registry(), "eumgrid_auth_refresh_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestReportExpired_AlreadyRenewedToken(t *testing.T) {
	store := newStore("fresh")
	var calls atomic.Int32
	c := New(store, func(context.Context) (string, error) {
		calls.Add(1)
		return "unused", nil
	})

	tok, err := c.ReportExpired(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Zero(t, calls.Load())
}

func TestReportExpired_EmptySessionStillRenews(t *testing.T) {
	store := newStore("")
	c := New(store, func(context.Context) (string, error) { return "new", nil })

	tok, err := c.ReportExpired(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "new", tok)
	assert.True(t, store.Snapshot().IsAuthenticated)
}

func TestReportExpired_EmptyTokenTerminates(t *testing.T) {
	store := newStore("old")
	c := New(store, func(context.Context) (string, error) { return "", nil })

	_, err := c.ReportExpired(context.Background(), "old")
	require.ErrorIs(t, err, common.ErrSessionTerminated)
	assert.ErrorIs(t, err, errEmptyToken)
	assert.Equal(t, int32(1), store.clears.Load())
}

func TestReportExpired_CallerCancellationDoesNotAbortRenewal(t *testing.T) {
	store := newStore("old")
	var renewCtxErr atomic.Value
	release := make(chan struct{})
	c := New(store, func(ctx context.Context) (string, error) {
		<-release
		renewCtxErr.Store(ctx.Err() == nil)
		return "new", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.ReportExpired(ctx, "old")
		leaderErr <- err
	}()
	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	follower := make(chan result, 1)
	go func() {
		tok, err := c.ReportExpired(context.Background(), "old")
		follower <- result{tok, err}
	}()
	require.Eventually(t, func() bool { return waiterCount(c) == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	r := <-follower
	require.NoError(t, r.err)
	assert.Equal(t, "new", r.token)
	assert.Equal(t, true, renewCtxErr.Load())
}

func TestReportExpired_NewEpisodeAfterFailure(t *testing.T) {
	store := newStore("old")
	var calls atomic.Int32
	c := New(store, func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("boom")
		}
		return "second", nil
	})

	_, err := c.ReportExpired(context.Background(), "old")
	require.Error(t, err)
	assert.False(t, c.Refreshing())

	tok, err := c.ReportExpired(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "second", tok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEnqueue_IdleRejects(t *testing.T) {
	c := New(newStore("t"), func(context.Context) (string, error) { return "x", nil })
	assert.False(t, c.enqueue(func(string, error) {}))
	assert.Equal(t, "t", c.AcquireToken())
}

func TestLead_JoinsRenewalStartedMeanwhile(t *testing.T) {
	store := newStore("old")
	g := newGatedRenewer("new", nil)
	c := New(store, g.renew)

	leader := make(chan result, 1)
	go func() {
		tok, err := c.ReportExpired(context.Background(), "old")
		leader <- result{tok, err}
	}()
	require.Eventually(t, c.Refreshing, time.Second, time.Millisecond)

	joined := make(chan result, 1)
	assert.Empty(t, c.lead(context.Background(), "old", func(token string, err error) {
		joined <- result{token, err}
	}))
	assert.Equal(t, 2, waiterCount(c))

	close(g.release)
	assert.Equal(t, result{token: "new"}, <-leader)
	assert.Equal(t, result{token: "new"}, <-joined)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestLead_IdleWithNewerTokenQueuesNothing(t *testing.T) {
	c := New(newStore("fresh"), func(context.Context) (string, error) {
		t.Fatal("renewal must not start")
		return "", nil
	})

	assert.Equal(t, "fresh", c.lead(context.Background(), "old", func(string, error) {}))
	assert.False(t, c.Refreshing())
	assert.Zero(t, waiterCount(c))
}
