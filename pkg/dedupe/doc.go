// Package dedupe implements the duplicate detection and grouping engine.
//
// The engine is a pure, synchronous batch computation: given a set of file
// descriptors carrying content hashes, optional perceptual hashes, and
// optional embedding vectors, it scores every comparable pair on the
// strongest available signal, links pairs above a configurable threshold
// into an undirected graph, and emits the connected components as duplicate
// groups. Each group is annotated with a deterministically chosen keep file
// and a human-readable reason for the match.
//
// The engine performs no I/O of its own. Fingerprints and embeddings are
// either supplied by the caller or computed over in-memory bytes via
// Fingerprinter; embedding generation lives in an external service.
//
// Basic usage:
//
//	engine, err := dedupe.NewEngine(dedupe.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	groups, err := engine.DetectDuplicates(ctx, files)
package dedupe
