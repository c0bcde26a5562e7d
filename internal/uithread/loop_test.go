package uithread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsSequentially(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(4)
	l.Start(ctx)

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(ctx, func() error {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestDoReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(1)
	l.Start(ctx)

	want := errors.New("boom")
	assert.Equal(t, want, l.Do(ctx, func() error { return want }))
}

func TestDoRecoversPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(1)
	l.Start(ctx)

	err := l.Do(ctx, func() error { panic("bad window") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad window")

	assert.NoError(t, l.Do(ctx, func() error { return nil }))
}

func TestDoAfterStop(t *testing.T) {
	l := New(1)
	l.Start(context.Background())
	l.Stop()

	err := l.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPostFromLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(1)
	l.Start(ctx)

	done := make(chan struct{})
	require.NoError(t, l.Do(ctx, func() error {
		l.Post(func() { close(done) })
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted task never ran")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(1)

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	<-l.started
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestDoWaitsForQueuedTaskAfterCancel(t *testing.T) {
	loopCtx, stop := context.WithCancel(context.Background())
	defer stop()

	l := New(1)
	l.Start(loopCtx)

	ctx, cancel := context.WithCancel(context.Background())
	running := make(chan struct{})
	release := make(chan struct{})
	applied := false

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Do(ctx, func() error {
			close(running)
			<-release
			applied = true
			return nil
		})
	}()

	<-running
	cancel()
	select {
	case err := <-errCh:
		t.Fatalf("Do returned %v before the queued task finished", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-errCh)
	assert.True(t, applied)
}
