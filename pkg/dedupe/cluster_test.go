package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(6)

	uf.union(0, 1)
	uf.union(1, 2)
	uf.union(4, 5)

	assert.Equal(t, uf.find(0), uf.find(2))
	assert.Equal(t, uf.find(4), uf.find(5))
	assert.NotEqual(t, uf.find(0), uf.find(3))
	assert.NotEqual(t, uf.find(2), uf.find(4))
}

func TestUnionFindMergeOrderIrrelevant(t *testing.T) {
	edges := [][2]int{{0, 1}, {2, 3}, {1, 2}, {5, 6}}

	partition := func(order [][2]int) map[int]int {
		uf := newUnionFind(8)
		for _, e := range order {
			uf.union(e[0], e[1])
		}
		roots := make(map[int]int)
		for i := 0; i < 8; i++ {
			roots[i] = uf.find(i)
		}
		return roots
	}

	forward := partition(edges)
	reversed := partition([][2]int{{5, 6}, {1, 2}, {2, 3}, {0, 1}})

	// Same partition regardless of merge order: compare co-membership.
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			assert.Equal(t, forward[i] == forward[j], reversed[i] == reversed[j], "pair %d/%d", i, j)
		}
	}
}

// imageFile builds an image descriptor with the given 64-bit perceptual hash.
func imageFile(id, sha, phash string) *FileDescriptor {
	return &FileDescriptor{ID: id, Name: id + ".png", MIMEType: "image/png", SHA256: sha, PerceptualHash: phash}
}

func TestEvaluatePairsTransitiveChain(t *testing.T) {
	// A-B and B-C are 4 bits apart (score 0.9375 >= 0.90), A-C is 8 bits
	// apart (score 0.875, below threshold). Transitive closure still puts
	// all three in one component.
	files := []*FileDescriptor{
		imageFile("a", "s1", "0000000000000000"),
		imageFile("b", "s2", "000000000000000f"),
		imageFile("c", "s3", "00000000000000ff"),
	}

	edges, err := evaluatePairs(context.Background(), files, allPairs(3), 0.90, 2)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	components := connectedComponents(3, edges)
	require.Len(t, components, 1)
	assert.Equal(t, []int{0, 1, 2}, components[0].members)
}

func TestEvaluatePairsExactHashAlwaysEdges(t *testing.T) {
	// Exact hash equality must create an edge at any threshold.
	files := []*FileDescriptor{
		{ID: "a", MIMEType: "text/plain", SHA256: "same"},
		{ID: "b", MIMEType: "text/plain", SHA256: "same"},
	}

	edges, err := evaluatePairs(context.Background(), files, allPairs(2), 1.0, 1)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, MethodExactHash, edges[0].method)
	assert.Equal(t, 1.0, edges[0].score)
}

func TestEvaluatePairsThresholdMonotonicity(t *testing.T) {
	files := []*FileDescriptor{
		imageFile("a", "s1", "0000000000000000"),
		imageFile("b", "s2", "0000000000000003"),
		imageFile("c", "s3", "000000000000ffff"),
		imageFile("d", "s4", "0f0f0f0f0f0f0f0f"),
	}
	pairs := allPairs(len(files))

	grouped := func(cutoff float64) int {
		edges, err := evaluatePairs(context.Background(), files, pairs, cutoff, 1)
		require.NoError(t, err)
		total := 0
		for _, c := range connectedComponents(len(files), edges) {
			total += len(c.members)
		}
		return total
	}

	// Raising the threshold never increases total grouped membership.
	previous := grouped(0.50)
	for _, cutoff := range []float64{0.75, 0.90, 0.99} {
		current := grouped(cutoff)
		assert.LessOrEqual(t, current, previous, "cutoff %v", cutoff)
		previous = current
	}
}

func TestConnectedComponentsDropsSingletons(t *testing.T) {
	files := []*FileDescriptor{
		{ID: "a", SHA256: "s1"},
		{ID: "b", SHA256: "s1"},
		{ID: "c", SHA256: "s2"},
	}

	edges, err := evaluatePairs(context.Background(), files, allPairs(3), 0.9, 1)
	require.NoError(t, err)

	components := connectedComponents(3, edges)
	require.Len(t, components, 1)
	assert.Equal(t, []int{0, 1}, components[0].members)
}

func TestDominantMethod(t *testing.T) {
	edges := []scoredPair{
		{a: 0, b: 1, score: 1.0, method: MethodExactHash},
		{a: 1, b: 2, score: 0.95, method: MethodPerceptualHash},
		{a: 2, b: 3, score: 0.92, method: MethodPerceptualHash},
	}

	method, score := dominantMethod(edges)
	assert.Equal(t, MethodPerceptualHash, method)
	assert.InDelta(t, 0.935, score, 1e-9)

	// Tie on count: higher average score wins.
	tied := []scoredPair{
		{a: 0, b: 1, score: 0.91, method: MethodEmbedding},
		{a: 1, b: 2, score: 0.99, method: MethodPerceptualHash},
	}
	method, score = dominantMethod(tied)
	assert.Equal(t, MethodPerceptualHash, method)
	assert.InDelta(t, 0.99, score, 1e-9)

	method, _ = dominantMethod(nil)
	assert.Equal(t, MethodNone, method)
}

func TestAverageScore(t *testing.T) {
	assert.Equal(t, 0.0, averageScore(nil))
	edges := []scoredPair{
		{score: 1.0},
		{score: 0.9},
	}
	assert.InDelta(t, 0.95, averageScore(edges), 1e-9)
}
