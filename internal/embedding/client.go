// Package embedding turns listing text into vectors. Every failure degrades to
// an absent (nil) vector instead of an error.
package embedding

import (
	"context"
	"expvar"
	"strings"

	"go.uber.org/zap"
)

const DefaultDimensions = 1024

var outcomes = expvar.NewMap("embedding_outcomes")

// Provider produces one vector per input text.
type Provider interface {
	Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error)
}

type Client struct {
	provider   Provider
	dimensions int
	inputType  string
	logger     *zap.SugaredLogger
}

func NewClient(p Provider, dimensions int, logger *zap.SugaredLogger) *Client {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		provider:   p,
		dimensions: dimensions,
		inputType:  "search_document",
		logger:     logger,
	}
}

func (c *Client) Dimensions() int { return c.dimensions }

// ListingText is the text a listing is embedded from.
func ListingText(name, description string) string {
	return strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(description))
}

// Embed returns nil when text is blank, no provider is configured, the
// provider fails, or the result has the wrong dimensionality.
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		outcomes.Add("skipped", 1)
		return nil
	}
	if c == nil || c.provider == nil {
		outcomes.Add("unconfigured", 1)
		if c != nil {
			c.logger.Warnw("embedding skipped", "reason", "no provider configured")
		}
		return nil
	}

	vecs, err := c.provider.Embed(ctx, []string{text}, c.inputType)
	if err != nil {
		outcomes.Add("failed", 1)
		c.logger.Warnw("embedding failed", "error", err)
		return nil
	}
	if len(vecs) != 1 {
		outcomes.Add("failed", 1)
		c.logger.Warnw("embedding failed", "error", "unexpected vector count", "count", len(vecs))
		return nil
	}
	if len(vecs[0]) != c.dimensions {
		outcomes.Add("failed", 1)
		c.logger.Warnw("embedding rejected", "got_dimensions", len(vecs[0]), "want_dimensions", c.dimensions)
		return nil
	}

	outcomes.Add("ok", 1)
	return vecs[0]
}
