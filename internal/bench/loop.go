// Package bench runs the benchmark control loop against an SDNext server.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmvolok/sdbench/internal/job"
	"github.com/dmvolok/sdbench/internal/sdnext"
	"github.com/dmvolok/sdbench/internal/sink"
	"github.com/dmvolok/sdbench/internal/sysinfo"
)

// InferenceClient is the loop's view of the SDNext client.
type InferenceClient interface {
	Txt2Img(ctx context.Context, req *sdnext.GenerationRequest) (*sdnext.GenerationResponse, error)
}

// Reporter is the loop's view of the collector client.
type Reporter interface {
	Report(ctx context.Context, rec *sink.Record) error
}

// Loop sequences the benchmark: one warm-up request, then fetch-submit-persist
// iterations until the image target is reached or the context is cancelled.
//
// Submissions are strictly sequential: job N+1 is never submitted before job
// N's response arrives, so each measured duration covers exactly one batch.
// Persistence of job N runs in the background and overlaps later iterations.
type Loop struct {
	Client   InferenceClient // required
	Source   job.Source      // required
	Sink     sink.Sink       // required
	Reporter Reporter        // optional
	System   *sysinfo.Info   // optional, copied into result records

	Warmup sdnext.GenerationRequest
	Target int // total images to generate; negative runs until interrupted

	DrainTimeout time.Duration                                // optional, default 30s
	Sleep        func(ctx context.Context, d time.Duration) error // optional, for tests
}

// Summary is the final benchmark result.
type Summary struct {
	Images  int
	Elapsed time.Duration
}

func (s *Summary) String() string {
	perImage := 0.0
	if s.Images > 0 {
		perImage = s.Elapsed.Seconds() / float64(s.Images)
	}
	return fmt.Sprintf("%d images in %s (%.2fs per image)", s.Images, s.Elapsed.Round(time.Millisecond), perImage)
}

// Run executes the loop. Cancelling ctx stops the loop between operations;
// an in-flight generation request is never aborted, so shutdown latency is
// bounded by the slowest outstanding request. An interrupted run returns its
// summary normally.
func (l *Loop) Run(ctx context.Context) (*Summary, error) {
	// The warm-up response is discarded. It confirms the server is fully
	// operational so that timing starts from a steady state.
	slog.Info("warming up", "batch_size", l.Warmup.BatchSize)
	if _, err := l.Client.Txt2Img(context.WithoutCancel(ctx), &l.Warmup); err != nil {
		return nil, fmt.Errorf("bench.Loop: warm-up: %w", err)
	}
	slog.Info("warm-up done, benchmarking", "target", l.Target)

	var wg sync.WaitGroup
	images := 0
	start := time.Now()

	for ctx.Err() == nil && !l.reached(images) {
		j, err := l.Source.Next(ctx)
		if errors.Is(err, job.ErrNoJob) {
			if err = l.sleep(ctx, 1*time.Second); err != nil {
				break
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break // interrupted while waiting for a job
			}
			return nil, fmt.Errorf("bench.Loop: %w", err)
		}

		submitted := time.Now()
		resp, err := l.Client.Txt2Img(context.WithoutCancel(ctx), &j.Request)
		if err != nil {
			return nil, fmt.Errorf("bench.Loop: %w", err)
		}
		took := time.Since(submitted)

		images += len(resp.Images)
		slog.Info("batch generated", "job", j.ID, "images", len(resp.Images), "took", took, "total", images)

		// Upload, report and complete run as a background chain so the next
		// job can be fetched while the previous batch is still persisting.
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.persist(context.WithoutCancel(ctx), j, resp.Images, took)
		}()
	}

	elapsed := time.Since(start)
	l.drain(&wg)
	return &Summary{Images: images, Elapsed: elapsed}, nil
}

func (l *Loop) reached(images int) bool {
	return l.Target >= 0 && images >= l.Target
}

// persist uploads every image of the job in order, then reports the result,
// then completes the job. Completion strictly follows the uploads: a job
// whose images were not all persisted stays visible for redelivery.
func (l *Loop) persist(ctx context.Context, j *job.Job, images []string, took time.Duration) {
	locations := make([]string, 0, len(images))
	for i, img := range images {
		data, err := sdnext.DecodeImage(img)
		if err != nil {
			slog.Error("image decode failed", "job", j.ID, "image", i, "err", err)
			return
		}
		location, err := l.Sink.Put(ctx, data, j, i)
		if err != nil {
			slog.Error("image upload failed", "job", j.ID, "image", i, "err", err)
			return
		}
		locations = append(locations, location)
	}

	if l.Reporter != nil {
		rec := &sink.Record{
			JobID:            j.ID,
			Prompt:           j.Request.Prompt,
			InferenceSeconds: took.Seconds(),
			OutputURLs:       locations,
			System:           l.System,
		}
		// Best-effort: a failed report never stops the loop or the job.
		if err := l.Reporter.Report(ctx, rec); err != nil {
			slog.Warn("result report failed", "job", j.ID, "err", err)
		}
	}

	if err := l.Source.Complete(ctx, j); err != nil {
		slog.Error("job completion failed", "job", j.ID, "err", err)
	}
}

// drain waits for outstanding persistence chains, bounded so a hung upload
// can't keep the process alive indefinitely.
func (l *Loop) drain(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timeout := l.DrainTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("persistence still in flight at exit", "waited", timeout)
	}
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) error {
	if l.Sleep != nil {
		return l.Sleep(ctx, d)
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
