package dedupe

import (
	"fmt"
	"math"
)

// compare scores a pair using the highest-confidence available signal.
//
// Precedence:
//  1. Exact hash equality: score 1.0, short-circuits everything else.
//  2. Perceptual hash Hamming similarity, images only, equal bit widths.
//  3. Embedding cosine similarity, equal length and same modality, rescaled
//     from [-1, 1] to [0, 1] so all methods share one scale.
//
// When no signal is comparable the method is MethodNone and no edge exists;
// "unknown" must stay distinct from "score 0".
func compare(a, b *FileDescriptor) (float64, Method) {
	if a.SHA256 == b.SHA256 {
		return 1.0, MethodExactHash
	}

	if a.IsImage() && b.IsImage() && a.PerceptualHash != "" && b.PerceptualHash != "" {
		if score, err := perceptualSimilarity(a.PerceptualHash, b.PerceptualHash); err == nil {
			return score, MethodPerceptualHash
		}
	}

	if embeddingComparable(a, b) {
		if cos, ok := cosineSimilarity(a.Embedding, b.Embedding); ok {
			return (clampCosine(cos) + 1) / 2, MethodEmbedding
		}
	}

	return 0, MethodNone
}

// embeddingComparable reports whether two descriptors carry embeddings that
// may be compared: both present, equal length, same modality. Cross-modality
// comparison is undefined and is rejected here rather than computed.
func embeddingComparable(a, b *FileDescriptor) bool {
	if len(a.Embedding) == 0 || len(b.Embedding) == 0 {
		return false
	}
	if len(a.Embedding) != len(b.Embedding) {
		return false
	}
	return effectiveModality(a) == effectiveModality(b)
}

// effectiveModality resolves the declared modality, inferring from the MIME
// type when the caller left it empty.
func effectiveModality(f *FileDescriptor) Modality {
	if f.Modality != "" {
		return f.Modality
	}
	if f.IsImage() {
		return ModalityImage
	}
	return ModalityText
}

// cosineSimilarity computes dot(a,b) / (||a|| * ||b||).
//
// The second return is false when either vector has zero magnitude: the
// pair is non-comparable rather than a NaN score.
func cosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0, false
	}

	return dot / (magA * magB), true
}

// clampCosine bounds a cosine to [-1, 1]; accumulated floating point error
// can push the raw value slightly outside.
func clampCosine(cos float64) float64 {
	if cos > 1 {
		return 1
	}
	if cos < -1 {
		return -1
	}
	return cos
}

// validateEmbedding rejects vectors containing NaN or Inf components.
func validateEmbedding(f *FileDescriptor) error {
	for i, v := range f.Embedding {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: file %s embedding component %d is %v", ErrInvalidVector, f.ID, i, v)
		}
	}
	return nil
}
