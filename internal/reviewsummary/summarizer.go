// Package reviewsummary condenses a rental's reviews into one sentence using
// a hosted text-generation model.
package reviewsummary

import (
	"context"
	"expvar"
	"fmt"
	"strings"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/reviews"

	"go.uber.org/zap"
)

const Unavailable = "AI summary is currently unavailable."

var outcomes = expvar.NewMap("review_summary_outcomes")

// Generator produces text for a single prompt.
type Generator interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

type Summarizer struct {
	gen    Generator
	logger *zap.SugaredLogger
}

func New(gen Generator, logger *zap.SugaredLogger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Summarizer{gen: gen, logger: logger}
}

// Prompt builds the instruction sent to the model, one line per review.
func Prompt(rs []reviews.Review) string {
	var b strings.Builder
	b.WriteString("Based on the following user reviews for a rental item, provide a concise, one-sentence summary highlighting the main pros and cons. Do not mention specific user names.\n\nReviews:\n")
	for _, r := range rs {
		fmt.Fprintf(&b, "- \"%s\" (Rating: %d/5)\n", r.Comment, r.Rating)
	}
	b.WriteString("\nSummary:")
	return b.String()
}

// Summarize never fails: no reviews yields the default summary and any
// generator problem yields Unavailable.
func (s *Summarizer) Summarize(ctx context.Context, rs []reviews.Review) string {
	if len(rs) == 0 {
		return listings.DefaultReviewSummary
	}
	if s == nil || s.gen == nil {
		outcomes.Add("unconfigured", 1)
		return Unavailable
	}

	text, err := s.gen.Chat(ctx, Prompt(rs))
	if err != nil {
		outcomes.Add("failed", 1)
		s.logger.Warnw("review summary failed", "error", err, "reviews", len(rs))
		return Unavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		outcomes.Add("failed", 1)
		s.logger.Warnw("review summary failed", "error", "empty response", "reviews", len(rs))
		return Unavailable
	}

	outcomes.Add("ok", 1)
	return text
}
