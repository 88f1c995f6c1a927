package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmvolok/sdbench/internal/sdnext"
)

var _ Source = (*StaticSource)(nil)

// StaticSource returns a fresh copy of a fixed template on every call.
// It never fails and never blocks.
type StaticSource struct {
	Template  sdnext.GenerationRequest
	BatchSize int // overrides the template batch size when positive
}

func (s *StaticSource) Next(ctx context.Context) (*Job, error) {
	req := s.Template
	if s.BatchSize > 0 {
		req.BatchSize = s.BatchSize
	}
	if req.BatchSize == 0 {
		req.BatchSize = 1
	}
	return &Job{ID: uuid.NewString(), Request: req}, nil
}

// Complete is a no-op: static jobs have no queue message to acknowledge.
func (s *StaticSource) Complete(ctx context.Context, j *Job) error {
	return nil
}
