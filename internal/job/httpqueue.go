package job

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmvolok/sdbench/internal/sdnext"
)

var _ Source = (*HTTPQueueSource)(nil)

// HTTPQueueSource fetches jobs from an HTTP work queue. A fetched message
// stays visible-but-not-deleted until Complete issues the DELETE, so a crash
// mid-processing leaves it for redelivery (at-least-once, no dedup).
type HTTPQueueSource struct {
	Template    sdnext.GenerationRequest
	URL         string // queue base URL without trailing slash
	Name        string // queue name
	HeaderName  string // shared-secret header name
	HeaderValue string

	HTTPClient *http.Client // optional
}

type queueMessage struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

func (s *HTTPQueueSource) Next(ctx context.Context) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/"+s.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("job.HTTPQueueSource: %w", err)
	}
	if s.HeaderName != "" {
		req.Header.Set(s.HeaderName, s.HeaderValue)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("job.HTTPQueueSource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("job.HTTPQueueSource: got status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Messages []queueMessage `json:"messages"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("job.HTTPQueueSource: %w", err)
	}
	if len(payload.Messages) == 0 {
		return nil, ErrNoJob
	}
	m := payload.Messages[0]

	var desc descriptor
	if err = json.Unmarshal(m.Body, &desc); err != nil {
		return nil, fmt.Errorf("job.HTTPQueueSource: invalid message body: %w", err)
	}

	j, err := desc.job(s.Template)
	if err != nil {
		return nil, err
	}
	j.MessageID = m.ID
	return j, nil
}

// Complete deletes the job's message from the queue.
func (s *HTTPQueueSource) Complete(ctx context.Context, j *Job) error {
	if j.MessageID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.URL+"/"+s.Name+"/"+j.MessageID, nil)
	if err != nil {
		return fmt.Errorf("job.HTTPQueueSource: %w", err)
	}
	if s.HeaderName != "" {
		req.Header.Set(s.HeaderName, s.HeaderValue)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("job.HTTPQueueSource: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("job.HTTPQueueSource: delete got status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPQueueSource) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}
