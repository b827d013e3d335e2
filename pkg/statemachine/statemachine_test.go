package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/statemachine"
)

const (
	idle    = statemachine.StringState("idle")
	running = statemachine.StringState("running")
	done    = statemachine.StringState("done")

	start  = statemachine.StringEvent("start")
	finish = statemachine.StringEvent("finish")
	stop   = statemachine.StringEvent("stop")
)

func TestFire(t *testing.T) {
	t.Parallel()

	t.Run("follows declared transitions", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, running, start),
			statemachine.WithTransition(running, done, finish),
		)

		require.NoError(t, sm.Fire(context.Background(), start, nil))
		assert.True(t, sm.Is(running))
		require.NoError(t, sm.Fire(context.Background(), finish, nil))
		assert.Equal(t, done, sm.Current())
	})

	t.Run("no transition available", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(idle, statemachine.WithTransition(idle, running, start))

		err := sm.Fire(context.Background(), finish, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, statemachine.ErrNoTransition)
		assert.Equal(t, idle, sm.Current())
	})

	t.Run("guard rejects", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, running, start,
				statemachine.WithGuard(func(ctx context.Context, from statemachine.State, e statemachine.Event, data any) bool {
					return data == "ok"
				}),
			),
		)

		assert.False(t, sm.CanFire(context.Background(), start, nil))
		err := sm.Fire(context.Background(), start, nil)
		assert.ErrorIs(t, err, statemachine.ErrRejected)
		assert.True(t, sm.CanFire(context.Background(), start, "ok"))
		require.NoError(t, sm.Fire(context.Background(), start, "ok"))
	})

	t.Run("failing action aborts", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		sm := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, running, start,
				statemachine.WithAction(func(ctx context.Context, from, to statemachine.State, e statemachine.Event, data any) error {
					return boom
				}),
			),
		)

		require.ErrorIs(t, sm.Fire(context.Background(), start, nil), boom)
		assert.Equal(t, idle, sm.Current())
	})

	t.Run("any state fallback and priority", func(t *testing.T) {
		t.Parallel()
		sm := statemachine.MustNew(idle,
			statemachine.WithTransition(idle, running, start),
			statemachine.WithTransition(statemachine.Any, idle, stop),
			statemachine.WithTransition(done, done, stop),
			statemachine.WithTransitionFrom([]statemachine.State{running}, done, finish),
		)

		require.NoError(t, sm.Fire(context.Background(), start, nil))
		require.NoError(t, sm.Fire(context.Background(), stop, nil))
		assert.Equal(t, idle, sm.Current())

		require.NoError(t, sm.Fire(context.Background(), start, nil))
		require.NoError(t, sm.Fire(context.Background(), finish, nil))
		require.NoError(t, sm.Fire(context.Background(), stop, nil))
		assert.Equal(t, done, sm.Current(), "concrete transition wins over Any")

		require.NoError(t, sm.Reset())
		assert.Equal(t, idle, sm.Current())
	})
}

func TestListener(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	sm := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, running, start),
		statemachine.WithListener(func(from, to statemachine.State, e statemachine.Event) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, from.Name()+">"+to.Name()+":"+e.Name())
		}),
	)

	require.NoError(t, sm.Fire(context.Background(), start, nil))
	assert.Equal(t, []string{"idle>running:start"}, seen)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := statemachine.New(nil)
	require.ErrorIs(t, err, statemachine.ErrNilState)

	_, err = statemachine.New(idle, statemachine.WithTransition(nil, running, start))
	require.ErrorIs(t, err, statemachine.ErrInvalidTransition)

	sm := statemachine.MustNew(idle)
	assert.ErrorIs(t, sm.Fire(context.Background(), nil, nil), statemachine.ErrInvalidEvent)
	assert.False(t, sm.CanFire(context.Background(), nil, nil))
}

func TestConcurrentFire(t *testing.T) {
	t.Parallel()

	sm := statemachine.MustNew(idle,
		statemachine.WithTransition(idle, running, start),
		statemachine.WithTransition(running, idle, stop),
	)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() { defer wg.Done(); _ = sm.Fire(context.Background(), start, nil) }()
		go func() { defer wg.Done(); _ = sm.Fire(context.Background(), stop, nil) }()
	}
	wg.Wait()

	state := sm.Current()
	assert.True(t, state == idle || state == running)
}
