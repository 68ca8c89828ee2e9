package provider

import (
	"context"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
	openai_provider "github.com/mohammad-safakhou/arxiv-digest/provider/openai"
)

// Summarizer is the interface that all summary backends must satisfy
type Summarizer interface {
	Summarize(ctx context.Context, paper digest.Paper) (digest.Summary, error)
}

// NewSummarizer creates the summary backend described by cfg. A missing API key is not
// reported here; the backend fails on first use.
func NewSummarizer(cfg config.LLMConfig) Summarizer {
	return openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout)
}
