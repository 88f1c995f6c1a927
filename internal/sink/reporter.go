package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmvolok/sdbench/internal/sysinfo"
)

// Record is the result of one completed job, sent to the collector and then
// discarded. There is no local retention.
type Record struct {
	JobID            string        `json:"job_id"`
	Prompt           string        `json:"prompt"`
	InferenceSeconds float64       `json:"inference_seconds"`
	OutputURLs       []string      `json:"output_urls"`
	System           *sysinfo.Info `json:"system"`
}

// Reporter posts result records to a collector endpoint. Reporting is
// best-effort; the benchmark loop logs failures and moves on.
type Reporter struct {
	URL         string // collector base URL without trailing slash
	BenchmarkID string
	HeaderName  string
	HeaderValue string

	HTTPClient *http.Client // optional
}

func (r *Reporter) Report(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink.Reporter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL+"/"+r.BenchmarkID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink.Reporter: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.HeaderName != "" {
		req.Header.Set(r.HeaderName, r.HeaderValue)
	}

	httpc := r.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sink.Reporter: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink.Reporter: got status %d", resp.StatusCode)
	}
	return nil
}
