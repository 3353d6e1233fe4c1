package models

// ChatConfig configures the OpenAI-backed conversation engine.
type ChatConfig struct {
	APIKey          string  `json:"api_key" yaml:"api_key"`
	BaseURL         string  `json:"base_url,omitzero" yaml:"base_url"`
	Model           string  `json:"model,omitzero" yaml:"model"`
	ExtractionModel string  `json:"extraction_model,omitzero" yaml:"extraction_model"`
	MaxTokens       int64   `json:"max_tokens,omitzero" yaml:"max_tokens"`
	Temperature     float64 `json:"temperature,omitzero" yaml:"temperature"`
	TimeoutMs       int     `json:"timeout_ms,omitzero" yaml:"timeout_ms"`
}
