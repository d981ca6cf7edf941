package retrieval

import (
	"math"
	"sort"
)

// Cosine returns dot(a,b) / (|a||b|). ok is false when the pair cannot be
// compared: either side empty, lengths differ, a zero magnitude, or a
// non-finite component.
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	score = dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, score)), true
}

// Candidate is one stored vector in scan order.
type Candidate[T any] struct {
	Item   T
	Vector []float32
}

type Scored[T any] struct {
	Item  T
	Score float64
}

// TopK scores every candidate against query, drops pairs Cosine rejects and
// returns at most k results by descending score. Equal scores keep scan order.
// skipped counts the rejected pairs.
func TopK[T any](query []float32, candidates []Candidate[T], k int) (top []Scored[T], skipped int) {
	if k <= 0 {
		return nil, 0
	}
	out := make([]Scored[T], 0, len(candidates))
	for _, c := range candidates {
		s, ok := Cosine(query, c.Vector)
		if !ok {
			skipped++
			continue
		}
		out = append(out, Scored[T]{Item: c.Item, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, skipped
}
