package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/dmvolok/sdbench/internal/job"
)

var _ Sink = (*DirSink)(nil)

// DirSink writes sequentially numbered image files into a directory.
// Persistence chains from different jobs may overlap, so numbers are only
// guaranteed unique, not ordered by job submission.
type DirSink struct {
	dir  string
	next atomic.Int64
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("sink.NewDirSink: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Put(ctx context.Context, image []byte, j *job.Job, index int) (string, error) {
	n := s.next.Add(1)
	name := filepath.Join(s.dir, fmt.Sprintf("%d.png", n-1))
	if err := os.WriteFile(name, image, 0o666); err != nil {
		return "", fmt.Errorf("sink.DirSink: %w", err)
	}
	return name, nil
}
