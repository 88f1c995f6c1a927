package sdnext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	readyAttempts     = 300
	loadAttempts      = 300
	loadFailureBudget = 10
	pollInterval      = 1 * time.Second

	// startupMarker is the log line SDNext prints when the model has
	// finished loading. There is no dedicated readiness endpoint for it.
	startupMarker = "Startup time:"
)

// server is the probing surface of Client.
type server interface {
	Status(ctx context.Context) error
	Log(ctx context.Context, lines int, clear bool) ([]string, error)
}

// Prober polls a starting SDNext server until it is usable. Server startup is
// asynchronous: first the process begins listening, then the model loads.
// WaitReady covers the former, WaitModelLoaded the latter.
type Prober struct {
	Server server                                       // required
	Sleep  func(ctx context.Context, d time.Duration) error // optional, for tests
}

// WaitReady polls the status endpoint once per second until it answers.
// A success on the first attempt returns immediately without sleeping.
func (p *Prober) WaitReady(ctx context.Context) error {
	for attempt := 0; attempt < readyAttempts; attempt++ {
		err := p.Server.Status(ctx)
		if err == nil {
			return nil
		}
		slog.Info("server not ready", "attempt", attempt+1, "err", err)
		if err = p.sleep(ctx, pollInterval); err != nil {
			return fmt.Errorf("sdnext.Prober: %w", err)
		}
	}
	return fmt.Errorf("sdnext.Prober: server not ready after %d attempts", readyAttempts)
}

// WaitModelLoaded tails the server log until the startup marker appears.
// Individual log requests may fail while the server is busy loading; up to
// loadFailureBudget consecutive failures are tolerated.
func (p *Prober) WaitModelLoaded(ctx context.Context) error {
	failures := 0
	for attempt := 0; attempt < loadAttempts; attempt++ {
		lines, err := p.Server.Log(ctx, 5, true)
		if err != nil {
			failures++
			if failures >= loadFailureBudget {
				return fmt.Errorf("sdnext.Prober: %d consecutive log failures: %w", failures, err)
			}
			slog.Info("log fetch failed", "attempt", attempt+1, "failures", failures, "err", err)
			if err = p.sleep(ctx, pollInterval); err != nil {
				return fmt.Errorf("sdnext.Prober: %w", err)
			}
			continue
		}
		failures = 0

		for _, line := range lines {
			if strings.Contains(line, startupMarker) {
				return nil
			}
		}
		if err = p.sleep(ctx, pollInterval); err != nil {
			return fmt.Errorf("sdnext.Prober: %w", err)
		}
	}
	return fmt.Errorf("sdnext.Prober: model not loaded after %d attempts", loadAttempts)
}

func (p *Prober) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
