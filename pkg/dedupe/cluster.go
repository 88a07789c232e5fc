package dedupe

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// pairChunkSize is how many candidate pairs a worker evaluates between
// cancellation checks.
const pairChunkSize = 1024

// unionFind is an arena-backed disjoint-set over node indexes. Index-based
// references keep the structure flat; merges are commutative and
// associative, so edge application order never affects the final partition.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: make([]int, n)}
}

// find returns the set root of x with path halving.
func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union merges the sets containing a and b.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// scoredPair is a candidate pair that cleared the clustering cutoff.
type scoredPair struct {
	a, b   int
	score  float64
	method Method
}

// evaluatePairs scores candidate pairs and keeps those that clear the
// per-method cutoff. Pair evaluation is embarrassingly parallel: the pair
// set is sharded across workers with a full fan-in before the
// single-threaded union-find merge, which preserves determinism.
//
// Cutoff rules: exact-hash edges always survive (the only non-configurable
// threshold); perceptual and embedding edges must meet cutoff.
func evaluatePairs(ctx context.Context, files []*FileDescriptor, pairs [][2]int, cutoff float64, workers int) ([]scoredPair, error) {
	if workers < 1 {
		workers = 1
	}

	chunks := make([][][2]int, 0, len(pairs)/pairChunkSize+1)
	for start := 0; start < len(pairs); start += pairChunkSize {
		end := start + pairChunkSize
		if end > len(pairs) {
			end = len(pairs)
		}
		chunks = append(chunks, pairs[start:end])
	}

	results := make([][]scoredPair, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kept := make([]scoredPair, 0, len(chunk))
			for _, p := range chunk {
				score, method := compare(files[p[0]], files[p[1]])
				if method == MethodNone {
					continue
				}
				if method != MethodExactHash && score < cutoff {
					continue
				}
				kept = append(kept, scoredPair{a: p[0], b: p[1], score: score, method: method})
			}
			results[i] = kept
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var edges []scoredPair
	for _, kept := range results {
		edges = append(edges, kept...)
	}
	return edges, nil
}

// component is one connected component of the similarity graph, before it
// is turned into a DuplicateGroup.
type component struct {
	members []int
	edges   []scoredPair
}

// connectedComponents partitions the files along the kept edges and returns
// components of size >= 2 together with their internal edges. Components
// are ordered by their smallest member index so output is stable.
func connectedComponents(n int, edges []scoredPair) []component {
	uf := newUnionFind(n)
	for _, e := range edges {
		uf.union(e.a, e.b)
	}

	memberships := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		memberships[root] = append(memberships[root], i)
	}

	byRoot := make(map[int]*component)
	var roots []int
	for root, members := range memberships {
		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		byRoot[root] = &component{members: members}
		roots = append(roots, root)
	}

	for _, e := range edges {
		if c, ok := byRoot[uf.find(e.a)]; ok {
			c.edges = append(c.edges, e)
		}
	}

	sort.Slice(roots, func(i, j int) bool {
		return byRoot[roots[i]].members[0] < byRoot[roots[j]].members[0]
	})

	components := make([]component, 0, len(roots))
	for _, root := range roots {
		components = append(components, *byRoot[root])
	}
	return components
}

// dominantMethod picks the method responsible for the most edges in a
// component, breaking ties by the higher average score per method.
func dominantMethod(edges []scoredPair) (Method, float64) {
	counts := make(map[Method]int)
	sums := make(map[Method]float64)
	for _, e := range edges {
		counts[e.method]++
		sums[e.method] += e.score
	}

	best := MethodNone
	for _, m := range []Method{MethodExactHash, MethodPerceptualHash, MethodEmbedding} {
		if counts[m] == 0 {
			continue
		}
		if best == MethodNone || counts[m] > counts[best] {
			best = m
			continue
		}
		if counts[m] == counts[best] && sums[m]/float64(counts[m]) > sums[best]/float64(counts[best]) {
			best = m
		}
	}
	if best == MethodNone {
		return MethodNone, 0
	}
	return best, sums[best] / float64(counts[best])
}

// averageScore is the mean over all edges inside a component.
func averageScore(edges []scoredPair) float64 {
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.score
	}
	return sum / float64(len(edges))
}
