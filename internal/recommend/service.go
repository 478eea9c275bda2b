package recommend

import (
	"context"
	"expvar"

	"campusmart/internal/domain/listings"
	"campusmart/internal/embedding"

	"go.uber.org/zap"
)

var similarRequests = expvar.NewMap("similar_listing_requests")

type ListingStore interface {
	GetByID(ctx context.Context, id int64) (*listings.Listing, error)
	ListSimilarityCandidates(ctx context.Context, kind listings.Kind, excludeID int64) ([]listings.Listing, error)
}

// Embedder returns nil when no vector could be produced.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Service hooks similarity into the listing lifecycle: vectors are made once
// at creation and compared on every view.
type Service struct {
	store    ListingStore
	embedder Embedder
	topK     int
	logger   *zap.SugaredLogger
}

func NewService(store ListingStore, embedder Embedder, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, embedder: embedder, topK: DefaultTopK, logger: logger}
}

// EmbedListing sets l.Embedding from its name and description. The listing
// is left without a vector when embedding is unavailable.
func (s *Service) EmbedListing(ctx context.Context, l *listings.Listing) {
	l.Embedding = nil
	if s.embedder != nil {
		l.Embedding = s.embedder.Embed(ctx, embedding.ListingText(l.Name, l.Description))
	}
	l.HasEmbedding = len(l.Embedding) > 0
	if !l.HasEmbedding {
		s.logger.Infow("listing stored without embedding", "name", l.Name, "kind", l.Kind)
	}
}

// Similar looks up the listing and returns its most similar available
// listings. It returns listings.ErrNotFound for an unknown id.
func (s *Service) Similar(ctx context.Context, id int64) ([]listings.Listing, error) {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SimilarTo(ctx, target)
}

// SimilarTo ranks the other available listings of target's kind. A target
// that has no vector or is itself unavailable gets an empty result.
func (s *Service) SimilarTo(ctx context.Context, target *listings.Listing) ([]listings.Listing, error) {
	if len(target.Embedding) == 0 {
		similarRequests.Add("no_embedding", 1)
		return []listings.Listing{}, nil
	}
	if !target.Available() {
		similarRequests.Add("inactive_target", 1)
		return []listings.Listing{}, nil
	}

	pool, err := s.store.ListSimilarityCandidates(ctx, target.Kind, target.ID)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate[listings.Listing], 0, len(pool))
	for _, l := range pool {
		if l.ID == target.ID || l.Kind != target.Kind || !l.Available() {
			continue
		}
		candidates = append(candidates, Candidate[listings.Listing]{Item: l, Vector: l.Embedding})
	}

	similarRequests.Add("ranked", 1)
	return Rank(target.Embedding, candidates, s.topK), nil
}
