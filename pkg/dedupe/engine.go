package dedupe

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// engineTracer for OpenTelemetry instrumentation.
var engineTracer = otel.Tracer("dedupd.engine")

// ReviewPolicy decides what happens to edges scoring inside the review band
// [ReviewThreshold, SimilarityThreshold).
type ReviewPolicy string

const (
	// ReviewPolicyIgnore applies a single hard cutoff at
	// SimilarityThreshold. This is the default.
	ReviewPolicyIgnore ReviewPolicy = "ignore"

	// ReviewPolicyFlag keeps review-band edges and marks every group held
	// together by at least one of them with NeedsReview.
	ReviewPolicyFlag ReviewPolicy = "flag"
)

// Config holds the engine's tunables.
type Config struct {
	// SimilarityThreshold is the minimum score for a perceptual or
	// embedding edge. Exact-hash edges always qualify. Default: 0.90.
	SimilarityThreshold float64

	// ReviewThreshold is the lower bound of the "likely duplicate" band.
	// Only consulted when ReviewPolicy is "flag". Default: 0.85.
	ReviewThreshold float64

	// ReviewPolicy selects the review band behavior. Default: ignore.
	ReviewPolicy ReviewPolicy

	// Workers bounds parallel pair evaluation. Default: GOMAXPROCS.
	Workers int

	// BruteForceLimit is the batch size above which candidate indexes
	// replace exhaustive pair enumeration. Default: 2000.
	BruteForceLimit int

	// CandidateTopK is how many approximate neighbors the embedding index
	// returns per file in candidate mode. Default: 16.
	CandidateTopK int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.90,
		ReviewThreshold:     0.85,
		ReviewPolicy:        ReviewPolicyIgnore,
		Workers:             runtime.GOMAXPROCS(0),
		BruteForceLimit:     2000,
		CandidateTopK:       16,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if c.ReviewThreshold == 0 {
		c.ReviewThreshold = defaults.ReviewThreshold
		// A similarity threshold below the default review bound collapses
		// the defaulted band to empty instead of failing validation.
		if c.ReviewThreshold > c.SimilarityThreshold {
			c.ReviewThreshold = c.SimilarityThreshold
		}
	}
	if c.ReviewPolicy == "" {
		c.ReviewPolicy = defaults.ReviewPolicy
	}
	if c.Workers == 0 {
		c.Workers = defaults.Workers
	}
	if c.BruteForceLimit == 0 {
		c.BruteForceLimit = defaults.BruteForceLimit
	}
	if c.CandidateTopK == 0 {
		c.CandidateTopK = defaults.CandidateTopK
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v outside (0, 1]", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.ReviewThreshold <= 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("%w: review threshold %v outside (0, 1]", ErrInvalidConfig, c.ReviewThreshold)
	}
	switch c.ReviewPolicy {
	case ReviewPolicyIgnore, ReviewPolicyFlag:
	default:
		return fmt.Errorf("%w: unknown review policy %q", ErrInvalidConfig, c.ReviewPolicy)
	}
	// The band ordering only matters when review-band edges are acted on.
	if c.ReviewPolicy == ReviewPolicyFlag && c.ReviewThreshold > c.SimilarityThreshold {
		return fmt.Errorf("%w: review threshold %v above similarity threshold %v", ErrInvalidConfig, c.ReviewThreshold, c.SimilarityThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.CandidateTopK < 1 {
		return fmt.Errorf("%w: candidate top-k must be positive", ErrInvalidConfig)
	}
	return nil
}

// Engine runs duplicate detection over batches of file descriptors.
//
// The engine is stateless across invocations; a single Engine is safe for
// concurrent use over disjoint batches.
type Engine struct {
	config  Config
	logger  *zap.Logger
	metrics *Metrics
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(config Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:  config,
		logger:  logger,
		metrics: NewMetrics(logger),
	}, nil
}

// DetectDuplicates partitions the batch into duplicate groups.
//
// Files matching nothing are absent from the result; an empty batch or a
// batch of all-unique files yields an empty group list and no error.
//
// Errors: ErrInvalidInput when any descriptor is missing its sha256 or has
// a duplicated id (the whole batch fails); ErrCancelled when ctx fires
// mid-run (no partial groups are returned). Invalid embedding vectors are
// recovered locally: the file degrades to hash-based signals only.
func (e *Engine) DetectDuplicates(ctx context.Context, files []FileDescriptor) ([]DuplicateGroup, error) {
	ctx, span := engineTracer.Start(ctx, "Engine.DetectDuplicates")
	defer span.End()

	span.SetAttributes(attribute.Int("file_count", len(files)))
	start := time.Now()

	nodes, err := e.prepare(ctx, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	groups, pairCount, err := e.run(ctx, nodes)
	e.metrics.RecordRun(ctx, time.Since(start), pairCount, len(groups), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("pairs_evaluated", pairCount),
		attribute.Int("group_count", len(groups)),
	)
	span.SetStatus(codes.Ok, "success")

	e.logger.Info("duplicate detection complete",
		zap.Int("files", len(files)),
		zap.Int("pairs_evaluated", pairCount),
		zap.Int("groups", len(groups)),
		zap.Duration("duration", time.Since(start)),
	)

	return groups, nil
}

// prepare validates the batch and builds the engine's working copies.
// Caller descriptors are never mutated: files with invalid embedding
// vectors get a copy with the embedding stripped.
func (e *Engine) prepare(ctx context.Context, files []FileDescriptor) ([]*FileDescriptor, error) {
	seen := make(map[string]struct{}, len(files))
	nodes := make([]*FileDescriptor, len(files))

	for i := range files {
		f := files[i]
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate descriptor id %s", ErrInvalidInput, f.ID)
		}
		seen[f.ID] = struct{}{}

		// Producers disagree on hex case; normalize so hash equality and
		// bucketing see one form.
		f.SHA256 = strings.ToLower(f.SHA256)
		f.PerceptualHash = strings.ToLower(f.PerceptualHash)

		if err := validateEmbedding(&f); err != nil {
			// Degrade to hash-only signals; one bad vector must not block
			// detection for the rest of the batch.
			e.logger.Warn("excluding invalid embedding from comparison",
				zap.String("file_id", f.ID),
				zap.Error(err),
			)
			e.metrics.RecordInvalidVector(ctx)
			f.Embedding = nil
		}
		nodes[i] = &f
	}

	return nodes, nil
}

// run executes the clustering pipeline over prepared nodes.
func (e *Engine) run(ctx context.Context, nodes []*FileDescriptor) ([]DuplicateGroup, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	cutoff := e.config.SimilarityThreshold
	if e.config.ReviewPolicy == ReviewPolicyFlag {
		cutoff = e.config.ReviewThreshold
	}

	var pairs [][2]int
	if len(nodes) <= e.config.BruteForceLimit {
		pairs = allPairs(len(nodes))
	} else {
		var err error
		pairs, err = candidatePairs(ctx, nodes, e.config.CandidateTopK, cutoff)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			return nil, 0, fmt.Errorf("building candidate pairs: %w", err)
		}
		e.logger.Debug("candidate indexes built",
			zap.Int("files", len(nodes)),
			zap.Int("candidate_pairs", len(pairs)),
		)
	}

	edges, err := evaluatePairs(ctx, nodes, pairs, cutoff, e.config.Workers)
	if err != nil {
		// A truncated clustering result is worse than an explicit failure.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, len(pairs), fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return nil, len(pairs), err
	}

	groups, err := e.buildGroups(nodes, edges)
	if err != nil {
		return nil, len(pairs), err
	}
	return groups, len(pairs), nil
}

// buildGroups turns graph components into DuplicateGroups.
func (e *Engine) buildGroups(nodes []*FileDescriptor, edges []scoredPair) ([]DuplicateGroup, error) {
	components := connectedComponents(len(nodes), edges)

	groups := make([]DuplicateGroup, 0, len(components))
	for _, comp := range components {
		members := make([]*FileDescriptor, len(comp.members))
		for i, idx := range comp.members {
			members[i] = nodes[idx]
		}
		// Fix the member order by id so keep-file selection and group ids
		// are independent of input permutation.
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		memberIDs := make([]string, len(members))
		for i, m := range members {
			memberIDs[i] = m.ID
		}

		method, methodScore := dominantMethod(comp.edges)
		reason, err := explainReason(method, componentModality(members), methodScore)
		if err != nil {
			return nil, err
		}

		needsReview := false
		if e.config.ReviewPolicy == ReviewPolicyFlag {
			for _, edge := range comp.edges {
				if edge.method != MethodExactHash && edge.score < e.config.SimilarityThreshold {
					needsReview = true
					break
				}
			}
		}

		groups = append(groups, DuplicateGroup{
			ID:            groupID(memberIDs),
			MemberFileIDs: memberIDs,
			KeepFileID:    selectKeepFile(members),
			Reason:        reason,
			AverageScore:  averageScore(comp.edges),
			NeedsReview:   needsReview,
		})
	}

	// Stable output order under any input permutation.
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].MemberFileIDs[0] < groups[j].MemberFileIDs[0]
	})

	return groups, nil
}

// componentModality resolves a group's modality for explanation wording.
// Any image member makes the match visual.
func componentModality(members []*FileDescriptor) Modality {
	for _, m := range members {
		if effectiveModality(m) == ModalityImage {
			return ModalityImage
		}
	}
	return ModalityText
}
