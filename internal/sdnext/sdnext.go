// Package sdnext is a client for the SDNext (Stable Diffusion) HTTP API.
package sdnext

import (
	"encoding/base64"
	"strings"
)

// GenerationRequest is one txt2img submission. It is rebuilt fresh per
// iteration from a template merged with job-supplied overrides.
type GenerationRequest struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Steps             int     `json:"steps"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	CFGScale          float64 `json:"cfg_scale"`
	BatchSize         int     `json:"batch_size"`
	SamplerName       string  `json:"sampler_name,omitempty"`
	RefinerCheckpoint string  `json:"refiner_checkpoint,omitempty"`
	RefinerSwitchAt   float64 `json:"refiner_switch_at,omitempty"`
}

// GenerationResponse is the server's txt2img reply. Images are base64-encoded
// in submission order. Parameters and Info are server-reported metadata passed
// through without interpretation.
type GenerationResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

// DecodeImage decodes one base64 image from a generation response.
// Some server versions prefix the payload with a data URL header.
func DecodeImage(s string) ([]byte, error) {
	if _, rest, ok := strings.Cut(s, "base64,"); ok {
		s = rest
	}
	return base64.StdEncoding.DecodeString(s)
}
