// Package job produces generation requests for the benchmark loop, either
// from a fixed local template or from a remote work queue.
package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmvolok/sdbench/internal/sdnext"
)

// ErrNoJob is returned by queue-backed sources when the queue is empty.
// It is an expected outcome, not a failure; the caller backs off and retries.
var ErrNoJob = errors.New("job: no job available")

// Job is one unit of benchmark work. MessageID and UploadURLs are set only
// for queue-supplied jobs. When UploadURLs is non-empty, its length equals
// Request.BatchSize and images are persisted to it positionally.
type Job struct {
	ID         string
	Request    sdnext.GenerationRequest
	MessageID  string
	UploadURLs []string
}

// Source produces jobs. Complete acknowledges a job after its images have
// been persisted; a job never completed stays visible for redelivery.
type Source interface {
	Next(ctx context.Context) (*Job, error)
	Complete(ctx context.Context, j *Job) error
}

// descriptor is the body of a queue message.
type descriptor struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	BatchSize  int      `json:"batch_size"`
	UploadURLs []string `json:"upload_urls"`
}

// job merges the descriptor into a copy of the template. A descriptor whose
// upload-URL count disagrees with its batch size is rejected outright rather
// than truncated, since images are uploaded by position.
func (d *descriptor) job(template sdnext.GenerationRequest) (*Job, error) {
	req := template
	if d.Prompt != "" {
		req.Prompt = d.Prompt
	}
	if d.BatchSize > 0 {
		req.BatchSize = d.BatchSize
	}
	if req.BatchSize == 0 {
		req.BatchSize = 1
	}

	if len(d.UploadURLs) > 0 && len(d.UploadURLs) != req.BatchSize {
		return nil, fmt.Errorf("job: descriptor has %d upload urls for batch size %d", len(d.UploadURLs), req.BatchSize)
	}

	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Job{ID: id, Request: req, UploadURLs: d.UploadURLs}, nil
}
