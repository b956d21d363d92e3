package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testCloser struct {
	closed chan struct{}
}

func (c *testCloser) Close() error {
	close(c.closed)
	return nil
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.Nil(t, errs.Add(nil).Aggregate())
	e1, e2 := errors.New("e1"), errors.New("e2")
	errs.Add(e1)
	require.Equal(t, "e1", errs.Aggregate().Error())
	errs.Add(nil, e2)
	err := errs.Aggregate()
	require.Equal(t, "Multiple errors:\n  e1\n  e2", err.Error())
	require.True(t, errors.Is(err, e2))
	require.False(t, errors.Is(err, context.Canceled))
}

func TestRunnerFirstStopCancelsOthers(t *testing.T) {
	failure := errors.New("failure")
	r := NewRunner()
	r.Go(
		NamedRun("blocking", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failing", RunFunc(func(ctx context.Context) error {
			return failure
		})),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Wait() }()
	select {
	case err := <-errCh:
		require.Error(t, err)
		require.True(t, errors.Is(err, failure))
		require.Contains(t, err.Error(), "failing")
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.closed
		return nil
	})
	require.Equal(t, context.Canceled, err)

	c = &testCloser{closed: make(chan struct{})}
	require.NoError(t, RunWithContextCloser(context.Background(), c, func() error {
		return nil
	}))
	select {
	case <-c.closed:
	default:
		t.Fatal("closer not called")
	}
}
