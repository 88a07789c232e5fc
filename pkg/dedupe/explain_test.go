package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainReason(t *testing.T) {
	tests := []struct {
		name     string
		method   Method
		modality Modality
		score    float64
		expected string
	}{
		{
			name:     "exact duplicate",
			method:   MethodExactHash,
			modality: ModalityText,
			score:    1.0,
			expected: "Exact duplicate (identical content)",
		},
		{
			name:     "perceptual hash",
			method:   MethodPerceptualHash,
			modality: ModalityImage,
			score:    0.953,
			expected: "Visual similarity: 95%",
		},
		{
			name:     "image embedding reads as visual",
			method:   MethodEmbedding,
			modality: ModalityImage,
			score:    0.91,
			expected: "Visual similarity: 91%",
		},
		{
			name:     "text embedding",
			method:   MethodEmbedding,
			modality: ModalityText,
			score:    0.92,
			expected: "Text similarity: 92%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := explainReason(tt.method, tt.modality, tt.score)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExplainReasonUnknownMethod(t *testing.T) {
	_, err := explainReason(Method("bogus"), ModalityText, 0.9)
	require.ErrorIs(t, err, ErrUnknownMethod)

	_, err = explainReason(MethodNone, ModalityText, 0.9)
	require.ErrorIs(t, err, ErrUnknownMethod)
}
