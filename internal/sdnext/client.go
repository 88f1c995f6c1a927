package sdnext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Client talks to one SDNext server.
//
// The underlying http.Client carries no timeout on purpose: a slow or hanging
// generation stalls the whole loop, and truncating it would corrupt the
// throughput measurement.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
	}
}

// Txt2Img submits one generation request and waits for the full response.
func (c *Client) Txt2Img(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}
	defer httpResp.Body.Close()

	if err = checkStatus(httpResp); err != nil {
		return nil, fmt.Errorf("sdnext.Client: txt2img: %w", err)
	}

	var resp GenerationResponse
	if err = json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}
	return &resp, nil
}

// SetOptions posts server options. It is used once to enable the refiner
// model before the warm-up request.
func (c *Client) SetOptions(ctx context.Context, options map[string]any) error {
	body, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("sdnext.Client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/options", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sdnext.Client: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sdnext.Client: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return fmt.Errorf("sdnext.Client: options: %w", err)
	}
	return nil
}

// EnableRefiner points the server at the given refiner model.
func (c *Client) EnableRefiner(ctx context.Context, model string) error {
	return c.SetOptions(ctx, map[string]any{"sd_model_refiner": model})
}

// Status probes the server. Any non-error response means the server is
// listening, regardless of whether the model has finished loading.
func (c *Client) Status(ctx context.Context) error {
	u := c.baseURL + "/sdapi/v1/system-info/status?state=true&memory=true&full=true&refresh=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("sdnext.Client: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sdnext.Client: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sdnext.Client: status: got status %d", resp.StatusCode)
	}
	return nil
}

// Log fetches the server's recent log lines. With clear set, the server
// drops the returned lines, so each call observes only new output.
func (c *Client) Log(ctx context.Context, lines int, clear bool) ([]string, error) {
	q := url.Values{}
	q.Set("lines", strconv.Itoa(lines))
	q.Set("clear", strconv.FormatBool(clear))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sdapi/v1/log?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return nil, fmt.Errorf("sdnext.Client: log: %w", err)
	}

	var logLines []string
	if err = json.NewDecoder(resp.Body).Decode(&logLines); err != nil {
		return nil, fmt.Errorf("sdnext.Client: %w", err)
	}
	return logLines, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("got status %d: %s", resp.StatusCode, body)
}
