// Package sink persists generated images and reports benchmark results.
package sink

import (
	"context"

	"github.com/dmvolok/sdbench/internal/job"
)

// Sink stores one image of a job and returns its accessible location.
// Index is the image's position within the job's batch.
type Sink interface {
	Put(ctx context.Context, image []byte, j *job.Job, index int) (string, error)
}

var _ Sink = (*Router)(nil)

// Router sends images of jobs that carry pre-signed upload URLs to Presigned
// and everything else to Fallback.
type Router struct {
	Presigned Sink // required
	Fallback  Sink // required
}

func (r *Router) Put(ctx context.Context, image []byte, j *job.Job, index int) (string, error) {
	if len(j.UploadURLs) > 0 {
		return r.Presigned.Put(ctx, image, j, index)
	}
	return r.Fallback.Put(ctx, image, j, index)
}
