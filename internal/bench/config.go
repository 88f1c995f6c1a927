package bench

import (
	"time"

	"github.com/dmvolok/sdbench/internal/job"
	"github.com/dmvolok/sdbench/internal/sdnext"
	"github.com/dmvolok/sdbench/internal/sink"
	"github.com/dmvolok/sdbench/internal/sysinfo"
)

// Config holds the benchmark-loop configuration.
type Config struct {
	TargetImages int           `env:"TARGET_IMAGES"` // default: 100; negative runs until interrupted
	BatchSize    int           `env:"BATCH_SIZE"`    // images per submission; default: 1
	DrainTimeout time.Duration `env:"DRAIN_TIMEOUT"` // default: 30s
}

func (c *Config) targetImages() int {
	if c.TargetImages == 0 {
		return 100
	}
	return c.TargetImages
}

// NewLoop wires a Loop from its collaborators. A nil reporter disables
// result reporting.
func NewLoop(cfg *Config, client InferenceClient, source job.Source, sk sink.Sink, reporter *sink.Reporter, system *sysinfo.Info, warmup sdnext.GenerationRequest) *Loop {
	l := &Loop{
		Client:       client,
		Source:       source,
		Sink:         sk,
		System:       system,
		Warmup:       warmup,
		Target:       cfg.targetImages(),
		DrainTimeout: cfg.DrainTimeout,
	}
	if reporter != nil {
		l.Reporter = reporter
	}
	return l
}
