package reviewsummary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/reviews"
)

type stubGenerator struct {
	prompt string
	text   string
	err    error
}

func (g *stubGenerator) Chat(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

var tentReviews = []reviews.Review{
	{Rating: 5, Comment: "Kept us dry all weekend"},
	{Rating: 2, Comment: "Zip broke on day two"},
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		reviews []reviews.Review
		gen     *stubGenerator
		want    string
	}{
		{"no reviews", nil, &stubGenerator{text: "unused"}, listings.DefaultReviewSummary},
		{"success", tentReviews, &stubGenerator{text: " Waterproof but the zip is fragile. "}, "Waterproof but the zip is fragile."},
		{"generator error", tentReviews, &stubGenerator{err: errors.New("503")}, Unavailable},
		{"empty text", tentReviews, &stubGenerator{text: "   "}, Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.gen, nil).Summarize(context.Background(), tt.reviews)
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeWithoutGenerator(t *testing.T) {
	if got := New(nil, nil).Summarize(context.Background(), tentReviews); got != Unavailable {
		t.Errorf("Summarize() = %q, want %q", got, Unavailable)
	}
}

func TestPromptListsEveryReview(t *testing.T) {
	p := Prompt(tentReviews)
	for _, want := range []string{
		`- "Kept us dry all weekend" (Rating: 5/5)`,
		`- "Zip broke on day two" (Rating: 2/5)`,
		"Do not mention specific user names.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("Prompt() missing %q:\n%s", want, p)
		}
	}
	if !strings.HasSuffix(p, "Summary:") {
		t.Errorf("Prompt() should end with Summary:, got %q", p[len(p)-20:])
	}
}

func TestPromptKeepsCommentTextVerbatim(t *testing.T) {
	p := Prompt([]reviews.Review{{Rating: 4, Comment: "Said \"waterproof\" and meant it\nwould rent again"}})
	want := "- \"Said \"waterproof\" and meant it\nwould rent again\" (Rating: 4/5)\n"
	if !strings.Contains(p, want) {
		t.Errorf("Prompt() = %q, want it to contain %q", p, want)
	}
	if strings.Contains(p, `\"`) || strings.Contains(p, `\n`) {
		t.Errorf("Prompt() escaped the comment: %q", p)
	}
}
