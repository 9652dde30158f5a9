package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
)

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }

func (stubSource) Location() *time.Location { return time.UTC }

func (stubSource) ListEvents(context.Context, time.Time, time.Time) ([]calendar.EventSummary, error) {
	return nil, nil
}

func newTestServerContext(t *testing.T, factory SourceFactory) *ServerContext {
	t.Helper()
	if factory == nil {
		factory = func(_ context.Context, account string) (calendar.Source, error) {
			return stubSource{name: account}, nil
		}
	}
	sc, err := NewServerContext(context.Background(), Options{Factory: factory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContext_RequiresFactory(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{})
	assert.Error(t, err)
}

func TestNewServerContext_Defaults(t *testing.T) {
	sc := newTestServerContext(t, nil)
	assert.Equal(t, availability.DefaultSearchParameters(), sc.Defaults())
	assert.WithinDuration(t, time.Now(), sc.Now(), time.Minute)
	assert.NotNil(t, sc.Logger())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())
}

func TestNewServerContext_InvalidDefaults(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{
		Factory:  func(context.Context, string) (calendar.Source, error) { return stubSource{}, nil },
		Defaults: availability.SearchParameters{DurationMinutes: 5, SearchDays: 7, WorkingHoursStart: 9, WorkingHoursEnd: 17},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, availability.ErrInvalidParameter)
}

func TestServerContext_SourceForAccountCaches(t *testing.T) {
	calls := 0
	sc := newTestServerContext(t, func(_ context.Context, account string) (calendar.Source, error) {
		calls++
		return stubSource{name: account}, nil
	})

	src, err := sc.Source(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", src.Name())

	again, err := sc.SourceForAccount(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, src, again)

	work, err := sc.SourceForAccount(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "work", work.Name())

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, sc.SourceCount())
}

func TestServerContext_FactoryErrorIsNotCached(t *testing.T) {
	fail := true
	sc := newTestServerContext(t, func(_ context.Context, account string) (calendar.Source, error) {
		if fail {
			return nil, errors.New("no token")
		}
		return stubSource{name: account}, nil
	})

	_, err := sc.Source(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, sc.SourceCount())

	fail = false
	_, err = sc.Source(context.Background())
	require.NoError(t, err)
}

func TestServerContext_SetSourceForAccount(t *testing.T) {
	sc := newTestServerContext(t, func(context.Context, string) (calendar.Source, error) {
		return nil, errors.New("factory should not be called")
	})
	sc.SetSourceForAccount("default", stubSource{name: "preset"})

	src, err := sc.Source(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "preset", src.Name())
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := newTestServerContext(t, nil)
	assert.False(t, sc.IsShutdown())

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	_, err := sc.Source(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestServerContext_SourceForAccountBuildsConcurrently(t *testing.T) {
	const buildTime = 200 * time.Millisecond

	var mu sync.Mutex
	calls := map[string]int{}
	sc := newTestServerContext(t, func(_ context.Context, account string) (calendar.Source, error) {
		mu.Lock()
		calls[account]++
		mu.Unlock()
		time.Sleep(buildTime)
		return stubSource{name: account}, nil
	})

	accounts := []string{"a", "b", "c", "d", "a", "b", "c", "d"}
	start := time.Now()
	var wg sync.WaitGroup
	for _, account := range accounts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := sc.SourceForAccount(context.Background(), account)
			assert.NoError(t, err)
			assert.Equal(t, account, src.Name())
		}()
	}

	// Observability accessors do not wait for factory calls.
	metricsDone := make(chan struct{})
	go func() {
		_ = sc.Metrics()
		_ = sc.AuditLogger()
		close(metricsDone)
	}()
	select {
	case <-metricsDone:
	case <-time.After(buildTime / 2):
		t.Fatal("Metrics blocked behind a source build")
	}

	wg.Wait()
	assert.Less(t, time.Since(start), 3*buildTime)
	assert.Equal(t, 4, sc.SourceCount())
	for _, account := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 1, calls[account], account)
	}
}

func TestServerContext_SourceForAccountHonorsCallerContext(t *testing.T) {
	aborted := make(chan error, 1)
	sc := newTestServerContext(t, func(ctx context.Context, account string) (calendar.Source, error) {
		if account == "slow" {
			<-ctx.Done()
			aborted <- ctx.Err()
			return nil, ctx.Err()
		}
		return stubSource{name: account}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sc.SourceForAccount(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case err := <-aborted:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("factory was not cancelled with the caller")
	}
	assert.Equal(t, 0, sc.SourceCount())

	src, err := sc.SourceForAccount(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, "other", src.Name())
}

func TestServerContext_ShutdownCancelsBuild(t *testing.T) {
	started := make(chan struct{})
	sc := newTestServerContext(t, func(ctx context.Context, _ string) (calendar.Source, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	errs := make(chan error, 1)
	go func() {
		_, err := sc.SourceForAccount(context.Background(), "work")
		errs <- err
	}()

	<-started
	require.NoError(t, sc.Shutdown())
	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("build outlived Shutdown")
	}
}
