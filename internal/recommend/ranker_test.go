package recommend

import (
	"math"
	"reflect"
	"testing"
)

const tolerance = 1e-6

// unitAt returns a 2-d unit vector whose cosine with [1, 0] is s.
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

func TestCosineSimilaritySymmetry(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}},
		{"parallel", []float32{1, 2, 3}, []float32{2, 4, 6}},
		{"opposite", []float32{1, -1}, []float32{-1, 1}},
		{"arbitrary", []float32{0.3, -0.7, 1.2, 4}, []float32{-2, 0.5, 0.25, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := CosineSimilarity(tt.a, tt.b)
			ba := CosineSimilarity(tt.b, tt.a)
			if ab != ba {
				t.Errorf("CosineSimilarity(a,b) = %v, CosineSimilarity(b,a) = %v", ab, ba)
			}
		})
	}
}

func TestCosineSimilaritySelf(t *testing.T) {
	vectors := [][]float32{
		{1},
		{3, 4},
		{-0.5, 0.25, 8},
		{1e-3, 2e-3, -5e-3, 7e-3},
	}

	for _, v := range vectors {
		got := CosineSimilarity(v, v)
		if math.Abs(got-1) > tolerance {
			t.Errorf("CosineSimilarity(%v, self) = %v, want 1", v, got)
		}
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"left zero", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"right zero", []float32{1, 2, 3}, []float32{0, 0, 0}},
		{"both zero", []float32{0, 0}, []float32{0, 0}},
		{"empty", nil, nil},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
			if math.IsNaN(got) {
				t.Error("CosineSimilarity() returned NaN")
			}
		})
	}
}

func TestRankOrdersAndTruncates(t *testing.T) {
	target := []float32{1, 0}
	candidates := []Candidate[string]{
		{Item: "s0.9", Vector: unitAt(0.9)},
		{Item: "s0.5", Vector: unitAt(0.5)},
		{Item: "s0.2", Vector: unitAt(0.2)},
		{Item: "s0.8", Vector: unitAt(0.8)},
	}

	got := Rank(target, candidates, DefaultTopK)
	want := []string{"s0.9", "s0.8", "s0.5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}

func TestRankExcludesAbsentAndMismatchedVectors(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []Candidate[string]{
		{Item: "absent", Vector: nil},
		{Item: "short", Vector: []float32{1, 0}},
		{Item: "long", Vector: []float32{1, 0, 0, 0}},
		{Item: "weak", Vector: []float32{0, 1, 0}},
		{Item: "strong", Vector: []float32{1, 0.1, 0}},
	}

	got := Rank(target, candidates, DefaultTopK)
	want := []string{"strong", "weak"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
	for _, item := range got {
		if item == "absent" || item == "short" || item == "long" {
			t.Errorf("Rank() returned excluded candidate %q", item)
		}
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	target := []float32{1, 1}
	candidates := []Candidate[int]{
		{Item: 1, Vector: []float32{0, 1}},
		{Item: 2, Vector: []float32{2, 2}},
		{Item: 3, Vector: []float32{2, 2}},
		{Item: 4, Vector: []float32{2, 2}},
		{Item: 5, Vector: []float32{2, 2}},
	}

	got := Rank(target, candidates, DefaultTopK)
	want := []int{2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %v, want %v", got, want)
	}
}

func TestRankEmpty(t *testing.T) {
	tests := []struct {
		name       string
		target     []float32
		candidates []Candidate[string]
	}{
		{"no target vector", nil, []Candidate[string]{{Item: "a", Vector: []float32{1}}}},
		{"empty pool", []float32{1}, nil},
		{"all excluded", []float32{1, 0}, []Candidate[string]{{Item: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.target, tt.candidates, DefaultTopK)
			if got == nil {
				t.Fatal("Rank() = nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("Rank() = %v, want empty", got)
			}
		})
	}
}
