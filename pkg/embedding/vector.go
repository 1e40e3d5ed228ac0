package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors.
//
// Returns 0 for vectors of different length, empty vectors or zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0.0 || magB == 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Mean returns the element-wise mean of vectors. Vectors whose length differs from
// the first one are ignored. Returns nil for no input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dims := len(vectors[0])
	sum := make([]float64, dims)
	n := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}

	out := make([]float32, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}

// l2Normalize scales vector to unit length in place.
func l2Normalize(vector []float32) {
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}

	norm := float32(math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] /= norm
	}
}

// ContentHash returns the SHA-256 hex digest of text, used as a memoization key.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
