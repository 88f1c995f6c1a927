package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmvolok/sdbench/internal/job"
)

var _ Sink = (*PresignedSink)(nil)

// PresignedSink PUTs each image to the job's pre-signed upload URL for that
// position. The returned location is the URL with its query string stripped:
// the query encodes a single-use signature not meant for later retrieval.
type PresignedSink struct {
	HTTPClient *http.Client // optional
}

func (s *PresignedSink) Put(ctx context.Context, image []byte, j *job.Job, index int) (string, error) {
	if index >= len(j.UploadURLs) {
		return "", fmt.Errorf("sink.PresignedSink: job %s has no upload url for image %d", j.ID, index)
	}
	uploadURL := j.UploadURLs[index]

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("sink.PresignedSink: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	httpc := s.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("sink.PresignedSink: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("sink.PresignedSink: got status %d", resp.StatusCode)
	}

	u, err := url.Parse(uploadURL)
	if err != nil {
		return "", fmt.Errorf("sink.PresignedSink: %w", err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
