// Package vecmath provides the vector primitives used by the curation core:
// normalization, cosine similarity/distance, centroid averaging, steering,
// and the pgvector text codec. All functions are pure and allocation-light;
// accumulation happens in float64 for numerical stability.
package vecmath

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero-norm or empty vector is
// returned unchanged rather than dividing by zero; callers that care about
// the degenerate case should check Norm themselves.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	if n == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Empty inputs, mismatched lengths, and zero-norm vectors all yield
// 0 rather than an error: this feeds ranking heuristics where a neutral
// score is safer than a crash.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 - CosineSimilarity(a, b), matching the pgvector
// <=> operator. Range is conventionally [0, 2]; smaller means more similar.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Mean averages the given vectors element-wise. Nil vectors and vectors
// whose length differs from the first non-nil one are skipped. Returns nil
// when no usable vector remains; the result is NOT normalized.
func Mean(vecs [][]float32) []float32 {
	var dim int
	for _, v := range vecs {
		if len(v) > 0 {
			dim = len(v)
			break
		}
	}
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	var count int
	for _, v := range vecs {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}
	if count == 0 {
		return nil
	}
	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(count))
	}
	return out
}

// Axis is a qualitative steering direction defined by two anchor vectors,
// e.g. the centroid of high-energy tracks (Pos) and low-energy tracks (Neg).
type Axis struct {
	Pos []float32
	Neg []float32
}

// Steer nudges base along the given axes: base + sum(w_i * (pos_i - neg_i)).
// Axes whose anchors are missing or dimension-mismatched are skipped. The
// output is not normalized; callers normalize before similarity search.
func Steer(base []float32, axes []Axis, weights []float64) []float32 {
	out := make([]float32, len(base))
	copy(out, base)
	for i, ax := range axes {
		if i >= len(weights) {
			break
		}
		if len(ax.Pos) != len(base) || len(ax.Neg) != len(base) {
			continue
		}
		w := weights[i]
		for j := range out {
			out[j] += float32(w * float64(ax.Pos[j]-ax.Neg[j]))
		}
	}
	return out
}

// EncodeVector renders v in the pgvector text format: "[0.1,0.2,...]".
// Returns "" for an empty vector.
func EncodeVector(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// DecodeVector parses the pgvector text format produced by EncodeVector
// (and by PostgreSQL itself). Returns nil for an empty string.
func DecodeVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("vecmath: malformed vector literal %q", truncate(s, 32))
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vecmath: parsing vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
