package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dmvolok/sdbench/internal/bench"
	"github.com/dmvolok/sdbench/internal/job"
	"github.com/dmvolok/sdbench/internal/sdnext"
	"github.com/dmvolok/sdbench/internal/sink"
	"github.com/dmvolok/sdbench/internal/sysinfo"
)

func main() {
	run := func() int {
		_ = godotenv.Load()

		cfg, err := parseConfig(os.Environ())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}

		// Interrupt stops the benchmarking loop between operations; it never
		// aborts an in-flight generation request.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		info, err := sysinfo.Capture(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		slog.Info("starting worker", "gpu", info.GPUName, "cpus", info.CPUCount, "memory", info.MemoryBytes)

		client := sdnext.NewClient(cfg.Server.BaseURL())
		prober := &sdnext.Prober{Server: client}
		slog.Info("waiting for server", "url", cfg.Server.BaseURL())
		if err = prober.WaitReady(ctx); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if err = prober.WaitModelLoaded(ctx); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		if cfg.Server.Refiner != "" {
			if err = client.EnableRefiner(ctx, cfg.Server.Refiner); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return 1
			}
			slog.Info("enabled refiner", "model", cfg.Server.Refiner)
		}

		template := cfg.Server.Template()
		source := job.NewSource(&cfg.Queue, template, cfg.Bench.BatchSize)
		if closer, ok := source.(io.Closer); ok {
			defer func() {
				_ = closer.Close()
			}()
		}

		imageSink, err := newSink(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}

		warmup := template
		if cfg.Bench.BatchSize > 0 {
			warmup.BatchSize = cfg.Bench.BatchSize
		}

		loop := bench.NewLoop(&cfg.Bench, client, source, imageSink, sink.NewReporter(&cfg.Collector), info, warmup)
		summary, err := loop.Run(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}

		fmt.Println(summary)
		return 0
	}
	os.Exit(run())
}

// newSink picks the fallback sink from the configuration. Jobs that carry
// pre-signed upload URLs always go through the pre-signed sink regardless.
func newSink(cfg *config) (sink.Sink, error) {
	var fallback sink.Sink
	if cfg.S3.URL != "" {
		s3Sink, err := sink.NewS3Sink(&cfg.S3)
		if err != nil {
			return nil, err
		}
		fallback = s3Sink
	} else {
		dirSink, err := sink.NewDirSink(cfg.outputDir())
		if err != nil {
			return nil, err
		}
		fallback = dirSink
	}
	return &sink.Router{Presigned: &sink.PresignedSink{}, Fallback: fallback}, nil
}
