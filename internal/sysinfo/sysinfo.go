// Package sysinfo captures a snapshot of the host the benchmark runs on.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info describes the benchmark host. It is captured once at startup and
// treated as immutable for the process lifetime.
type Info struct {
	CPUCount    int    `json:"cpu_count"`
	MemoryBytes uint64 `json:"memory_bytes"`
	GPUName     string `json:"gpu_name"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
}

// Capture collects the host snapshot. A failing GPU probe is an error because
// a benchmark result without a GPU name is meaningless.
func Capture(ctx context.Context) (*Info, error) {
	count, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("sysinfo.Capture: %w", err)
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("sysinfo.Capture: %w", err)
	}

	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return nil, fmt.Errorf("sysinfo.Capture: nvidia-smi: %w", err)
	}
	gpu, err := parseGPUName(out)
	if err != nil {
		return nil, fmt.Errorf("sysinfo.Capture: nvidia-smi: %w", err)
	}

	return &Info{
		CPUCount:    count,
		MemoryBytes: vm.Total,
		GPUName:     gpu,
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
	}, nil
}

// parseGPUName takes the first line of nvidia-smi's csv,noheader output.
// Multi-GPU hosts report one line per device; the benchmark drives a single
// inference server, so the first device is the one that matters.
func parseGPUName(out []byte) (string, error) {
	line, _, _ := strings.Cut(string(out), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty output")
	}
	return line, nil
}
