package dedupe

import "fmt"

// explainReason formats the human-readable reason for a group from its
// dominant method and average score. Pure formatting; the only failure mode
// is an unrecognized method, which is a programming error.
//
// Embedding matches read as visual or text similarity depending on the
// modality of the matched files.
func explainReason(method Method, modality Modality, score float64) (string, error) {
	switch method {
	case MethodExactHash:
		return "Exact duplicate (identical content)", nil
	case MethodPerceptualHash:
		return fmt.Sprintf("Visual similarity: %.0f%%", score*100), nil
	case MethodEmbedding:
		if modality == ModalityImage {
			return fmt.Sprintf("Visual similarity: %.0f%%", score*100), nil
		}
		return fmt.Sprintf("Text similarity: %.0f%%", score*100), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}
