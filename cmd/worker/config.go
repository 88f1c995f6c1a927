package main

import (
	"github.com/caarlos0/env/v11"

	"github.com/dmvolok/sdbench/internal/bench"
	"github.com/dmvolok/sdbench/internal/job"
	"github.com/dmvolok/sdbench/internal/sdnext"
	"github.com/dmvolok/sdbench/internal/sink"
)

// config holds the worker configuration.
type config struct {
	OutputDir string               `env:"SDBENCH_OUTPUT_DIR"` // default: "output"
	Bench     bench.Config         `envPrefix:"SDBENCH_"`
	Server    sdnext.Config        `envPrefix:"SDBENCH_SERVER_"`
	Queue     job.Config           `envPrefix:"SDBENCH_QUEUE_"`
	Collector sink.CollectorConfig `envPrefix:"SDBENCH_COLLECTOR_"`
	S3        sink.S3Config        `envPrefix:"SDBENCH_S3_"`
}

// parseConfig parses the worker configuration from the environment variables.
func parseConfig(environ []string) (*config, error) {
	var cfg config

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *config) outputDir() string {
	d := c.OutputDir
	if d == "" {
		d = "output"
	}
	return d
}
