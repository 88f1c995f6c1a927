package sdnext

// Config holds the inference-server configuration and the generation
// template. Template fields merged with job overrides become the per-request
// payload.
type Config struct {
	URL            string  `env:"URL"`             // default: "http://127.0.0.1:7860"
	Refiner        string  `env:"REFINER"`         // refiner model name; empty disables the refiner
	Prompt         string  `env:"PROMPT"`          // default: astronaut prompt below
	NegativePrompt string  `env:"NEGATIVE_PROMPT"`
	Steps          int     `env:"STEPS"`     // default: 20
	Width          int     `env:"WIDTH"`     // default: 1024
	Height         int     `env:"HEIGHT"`    // default: 1024
	CFGScale       float64 `env:"CFG_SCALE"` // default: 7
	Sampler        string  `env:"SAMPLER"`
}

const defaultPrompt = "a photograph of an astronaut riding a horse"

// refinerSwitchAt is the denoising fraction at which generation hands over
// to the refiner model.
const refinerSwitchAt = 0.8

func (c *Config) BaseURL() string {
	if c.URL == "" {
		return "http://127.0.0.1:7860"
	}
	return c.URL
}

// Template builds the fixed generation request the benchmark repeats.
func (c *Config) Template() GenerationRequest {
	req := GenerationRequest{
		Prompt:         c.Prompt,
		NegativePrompt: c.NegativePrompt,
		Steps:          c.Steps,
		Width:          c.Width,
		Height:         c.Height,
		CFGScale:       c.CFGScale,
		SamplerName:    c.Sampler,
		BatchSize:      1,
	}
	if req.Prompt == "" {
		req.Prompt = defaultPrompt
	}
	if req.Steps == 0 {
		req.Steps = 20
	}
	if req.Width == 0 {
		req.Width = 1024
	}
	if req.Height == 0 {
		req.Height = 1024
	}
	if req.CFGScale == 0 {
		req.CFGScale = 7
	}
	if c.Refiner != "" {
		req.RefinerCheckpoint = c.Refiner
		req.RefinerSwitchAt = refinerSwitchAt
	}
	return req
}
