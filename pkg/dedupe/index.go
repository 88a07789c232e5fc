package dedupe

import (
	"context"
	"fmt"
	"sort"

	chromem "github.com/philippgille/chromem-go"
)

// lshBandCount sizes the banded LSH for a hash of hexLen nibbles at the
// given score cutoff. A pair at Hamming distance d differs in at most d
// nibbles, and bands split on nibble boundaries, so d+1 bands guarantee a
// shared band for every pair scoring >= cutoff (pigeonhole). Capped at one
// band per nibble; recall beyond that cap is approximate.
func lshBandCount(hexLen int, cutoff float64) int {
	maxDistance := int(float64(hexLen*4) * (1 - cutoff))
	bands := maxDistance + 1
	if bands > hexLen {
		bands = hexLen
	}
	return bands
}

// pairSet collects unordered candidate pairs without duplicates.
// Keys always hold the smaller index first.
type pairSet map[[2]int]struct{}

func (s pairSet) add(a, b int) {
	if a == b {
		return
	}
	if a > b {
		a, b = b, a
	}
	s[[2]int{a, b}] = struct{}{}
}

// sorted returns the pairs in deterministic order.
func (s pairSet) sorted() [][2]int {
	pairs := make([][2]int, 0, len(s))
	for p := range s {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// allPairs enumerates every unordered pair, the exact O(n^2) default for
// small batches.
func allPairs(n int) [][2]int {
	pairs := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// candidatePairs generates the near-neighbor candidate set for large
// batches, replacing exhaustive pair enumeration with per-signal indexes:
//
//   - sha256 buckets for exact matches (a star per bucket is enough, since
//     union-find closes the component either way);
//   - banded LSH over perceptual hashes, with bands sized for the active
//     clustering cutoff;
//   - a chromem-go in-memory vector index, queried top-k per file, for
//     embeddings.
//
// Every candidate is still verified by the full similarity function, so
// only embedding recall is approximate (bounded by topK).
func candidatePairs(ctx context.Context, files []*FileDescriptor, topK int, cutoff float64) ([][2]int, error) {
	candidates := make(pairSet)

	exactCandidates(files, candidates)
	perceptualCandidates(files, cutoff, candidates)
	if err := embeddingCandidates(ctx, files, topK, candidates); err != nil {
		return nil, err
	}

	return candidates.sorted(), nil
}

// exactCandidates links every member of a sha256 bucket to the bucket's
// first member.
func exactCandidates(files []*FileDescriptor, out pairSet) {
	buckets := make(map[string][]int)
	for i, f := range files {
		buckets[f.SHA256] = append(buckets[f.SHA256], i)
	}
	for _, bucket := range buckets {
		for _, i := range bucket[1:] {
			out.add(bucket[0], i)
		}
	}
}

// perceptualCandidates buckets image hashes by (width, band, band bits) and
// pairs files sharing a bucket.
func perceptualCandidates(files []*FileDescriptor, cutoff float64, out pairSet) {
	buckets := make(map[string][]int)
	for i, f := range files {
		if !f.IsImage() || f.PerceptualHash == "" {
			continue
		}
		hash := f.PerceptualHash
		bands := lshBandCount(len(hash), cutoff)
		for band := 0; band < bands; band++ {
			start := band * len(hash) / bands
			end := (band + 1) * len(hash) / bands
			key := fmt.Sprintf("%d:%d:%s", len(hash), band, hash[start:end])
			buckets[key] = append(buckets[key], i)
		}
	}
	for _, bucket := range buckets {
		for x := 0; x < len(bucket); x++ {
			for y := x + 1; y < len(bucket); y++ {
				out.add(bucket[x], bucket[y])
			}
		}
	}
}

// embeddingCandidates builds one chromem collection per (modality, length)
// cohort and queries each file's top-k neighbors. chromem-go is an
// embeddable pure-Go vector database; collections here are in-memory only
// and never outlive the run.
func embeddingCandidates(ctx context.Context, files []*FileDescriptor, topK int, out pairSet) error {
	type cohortKey struct {
		modality Modality
		length   int
	}

	cohorts := make(map[cohortKey][]int)
	for i, f := range files {
		if len(f.Embedding) == 0 {
			continue
		}
		// Zero-magnitude vectors are non-comparable and would break
		// chromem's normalization.
		if _, ok := cosineSimilarity(f.Embedding, f.Embedding); !ok {
			continue
		}
		key := cohortKey{modality: effectiveModality(f), length: len(f.Embedding)}
		cohorts[key] = append(cohorts[key], i)
	}

	db := chromem.NewDB()
	for key, cohort := range cohorts {
		if len(cohort) < 2 {
			continue
		}

		name := fmt.Sprintf("emb_%s_%d", key.modality, key.length)
		collection, err := db.CreateCollection(name, nil, noEmbeddingFunc)
		if err != nil {
			return fmt.Errorf("creating candidate collection %s: %w", name, err)
		}

		docs := make([]chromem.Document, 0, len(cohort))
		for _, i := range cohort {
			docs = append(docs, chromem.Document{
				ID:        fmt.Sprintf("%d", i),
				Content:   files[i].ID,
				Embedding: toFloat32(files[i].Embedding),
			})
		}
		if err := collection.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("indexing embeddings in %s: %w", name, err)
		}

		// chromem caps nResults at the document count.
		k := topK + 1
		if k > len(cohort) {
			k = len(cohort)
		}

		for _, i := range cohort {
			results, err := collection.QueryEmbedding(ctx, toFloat32(files[i].Embedding), k, nil, nil)
			if err != nil {
				return fmt.Errorf("querying neighbors in %s: %w", name, err)
			}
			for _, r := range results {
				var j int
				if _, err := fmt.Sscanf(r.ID, "%d", &j); err != nil {
					continue
				}
				out.add(i, j)
			}
		}
	}

	return nil
}

// noEmbeddingFunc guards the chromem collections: every document arrives
// with a precomputed vector, so text embedding must never be attempted.
func noEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("candidate index only accepts precomputed embeddings")
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
