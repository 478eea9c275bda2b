package recommend

import (
	"math"
	"sort"
)

// DefaultTopK is how many similar listings a detail view shows.
const DefaultTopK = 3

// Candidate pairs an item with its (possibly absent) embedding.
type Candidate[T any] struct {
	Item   T
	Vector []float32
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|). It returns 0 when either
// vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type scored[T any] struct {
	item  T
	score float64
}

// Rank orders candidates by cosine similarity to target and returns at most k
// items. Candidates without a vector, or with a vector of a different length
// than target, are skipped. Ties keep their input order.
func Rank[T any](target []float32, candidates []Candidate[T], k int) []T {
	if len(target) == 0 || len(candidates) == 0 || k <= 0 {
		return []T{}
	}

	pool := make([]scored[T], 0, len(candidates))
	for _, c := range candidates {
		if len(c.Vector) != len(target) {
			continue
		}
		pool = append(pool, scored[T]{item: c.Item, score: CosineSimilarity(target, c.Vector)})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].score > pool[j].score
	})

	if len(pool) > k {
		pool = pool[:k]
	}

	out := make([]T, len(pool))
	for i, s := range pool {
		out[i] = s.item
	}
	return out
}
