package sdnext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ server = (*fakeServer)(nil)

// fakeServer scripts Status and Log results in call order. Past the end of a
// script, Status succeeds and Log returns its last entry.
type fakeServer struct {
	statusErrs  []error
	logLines    [][]string
	logErrs     []error
	statusCalls int
	logCalls    int
}

func (s *fakeServer) Status(ctx context.Context) error {
	s.statusCalls++
	if s.statusCalls <= len(s.statusErrs) {
		return s.statusErrs[s.statusCalls-1]
	}
	return nil
}

func (s *fakeServer) Log(ctx context.Context, lines int, clear bool) ([]string, error) {
	s.logCalls++
	i := s.logCalls - 1
	if i < len(s.logErrs) && s.logErrs[i] != nil {
		return nil, s.logErrs[i]
	}
	if len(s.logLines) == 0 {
		return nil, nil
	}
	if i >= len(s.logLines) {
		i = len(s.logLines) - 1
	}
	return s.logLines[i], nil
}

// sleepRecorder counts sleeps without sleeping.
func sleepRecorder(n *int) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*n++
		return ctx.Err()
	}
}

func TestProberWaitReady(t *testing.T) {
	t.Run("first attempt success does not sleep", func(t *testing.T) {
		sleeps := 0
		srv := &fakeServer{}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		require.NoError(t, p.WaitReady(context.Background()))
		assert.Equal(t, 1, srv.statusCalls)
		assert.Equal(t, 0, sleeps)
	})

	t.Run("retries connection refusal", func(t *testing.T) {
		sleeps := 0
		refused := errors.New("connection refused")
		srv := &fakeServer{statusErrs: []error{refused, refused, refused}}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		require.NoError(t, p.WaitReady(context.Background()))
		assert.Equal(t, 4, srv.statusCalls)
		assert.Equal(t, 3, sleeps)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		sleeps := 0
		errs := make([]error, readyAttempts+10)
		for i := range errs {
			errs[i] = errors.New("connection refused")
		}
		p := &Prober{Server: &fakeServer{statusErrs: errs}, Sleep: sleepRecorder(&sleeps)}

		err := p.WaitReady(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sleeps := 0
		srv := &fakeServer{statusErrs: []error{errors.New("connection refused")}}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		err := p.WaitReady(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestProberWaitModelLoaded(t *testing.T) {
	t.Run("returns when the startup marker appears", func(t *testing.T) {
		sleeps := 0
		srv := &fakeServer{logLines: [][]string{
			{"loading weights"},
			{"applying optimizations", "Startup time: 42.0s"},
		}}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		require.NoError(t, p.WaitModelLoaded(context.Background()))
		assert.Equal(t, 2, srv.logCalls)
		assert.Equal(t, 1, sleeps)
	})

	t.Run("fails after the consecutive failure budget", func(t *testing.T) {
		sleeps := 0
		errs := make([]error, loadFailureBudget)
		for i := range errs {
			errs[i] = errors.New("connection reset")
		}
		p := &Prober{Server: &fakeServer{logErrs: errs}, Sleep: sleepRecorder(&sleeps)}

		err := p.WaitModelLoaded(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "consecutive")
	})

	t.Run("a success resets the failure count", func(t *testing.T) {
		sleeps := 0
		reset := errors.New("connection reset")
		logErrs := make([]error, 0, 2*(loadFailureBudget-1)+2)
		logLines := make([][]string, 0)
		for i := 0; i < loadFailureBudget-1; i++ {
			logErrs = append(logErrs, reset)
			logLines = append(logLines, nil)
		}
		logErrs = append(logErrs, nil)
		logLines = append(logLines, []string{"still loading"})
		for i := 0; i < loadFailureBudget-1; i++ {
			logErrs = append(logErrs, reset)
			logLines = append(logLines, nil)
		}
		logErrs = append(logErrs, nil)
		logLines = append(logLines, []string{"Startup time: 9.1s"})

		srv := &fakeServer{logErrs: logErrs, logLines: logLines}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		require.NoError(t, p.WaitModelLoaded(context.Background()))
	})

	t.Run("gives up when the marker never appears", func(t *testing.T) {
		sleeps := 0
		srv := &fakeServer{logLines: [][]string{{"still loading"}}}
		p := &Prober{Server: srv, Sleep: sleepRecorder(&sleeps)}

		err := p.WaitModelLoaded(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not loaded")
		assert.Equal(t, loadAttempts, srv.logCalls)
	})
}
