package dedupe

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors for the duplicate detection engine.
var (
	// ErrInvalidInput indicates a descriptor violates an engine precondition
	// (missing sha256, empty or duplicated id). Fatal for the whole batch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVector indicates an embedding contains NaN/Inf components.
	// The affected file degrades to hash-only comparison; the batch continues.
	ErrInvalidVector = errors.New("invalid embedding vector")

	// ErrCancelled indicates the context was cancelled mid-computation.
	// No partial group set is returned.
	ErrCancelled = errors.New("detection cancelled")

	// ErrUnknownMethod indicates a similarity method outside the known enum.
	// This is a programming error, not a runtime condition.
	ErrUnknownMethod = errors.New("unknown similarity method")

	// ErrInvalidConfig indicates an engine configuration error.
	ErrInvalidConfig = errors.New("invalid engine config")
)

// Modality identifies the model family that produced an embedding.
// Embeddings are only comparable within the same modality.
type Modality string

const (
	// ModalityText marks embeddings produced by a text model.
	ModalityText Modality = "text"

	// ModalityImage marks embeddings produced by an image model.
	ModalityImage Modality = "image"
)

// Method identifies the signal that produced a similarity score.
type Method string

const (
	// MethodExactHash means the sha256 content hashes were equal.
	MethodExactHash Method = "exact_hash"

	// MethodPerceptualHash means the score came from perceptual hash
	// Hamming distance.
	MethodPerceptualHash Method = "perceptual_hash"

	// MethodEmbedding means the score came from embedding cosine similarity.
	MethodEmbedding Method = "embedding"

	// MethodNone means the pair shares no comparable signal. Not an error:
	// "unknown" is distinct from "definitely different".
	MethodNone Method = "none"
)

// Resolution is the pixel dimensions of an image, used only for tie-breaking.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns the total pixel count.
func (r Resolution) Pixels() int64 {
	return int64(r.Width) * int64(r.Height)
}

// FileDescriptor is a file entering the engine. All fields are immutable
// from the engine's perspective; the engine never mutates caller input.
type FileDescriptor struct {
	// ID is an opaque unique identifier assigned by the caller.
	ID string `json:"id"`

	// Name is the original file name.
	Name string `json:"name"`

	// MIMEType is the declared content type (e.g. "image/png").
	MIMEType string `json:"mime_type"`

	// SizeBytes is the file size, used only for tie-breaking.
	SizeBytes int64 `json:"size_bytes"`

	// SHA256 is the hex-encoded exact-content hash. Required.
	SHA256 string `json:"sha256"`

	// PerceptualHash is a hex-encoded fixed-width bit string, present only
	// for raster images. Optional.
	PerceptualHash string `json:"perceptual_hash,omitempty"`

	// Embedding is a fixed-length vector produced by an external model.
	// Optional. Only comparable against vectors of equal length and the
	// same modality.
	Embedding []float64 `json:"embedding,omitempty"`

	// Modality declares which model family produced Embedding. When empty
	// and an embedding is present, the engine infers image for image MIME
	// types and text otherwise.
	Modality Modality `json:"modality,omitempty"`

	// ModifiedAt is the last modification time, used only for tie-breaking.
	ModifiedAt *time.Time `json:"modified_at,omitempty"`

	// Resolution is present only for images, used only for tie-breaking.
	Resolution *Resolution `json:"resolution,omitempty"`
}

// IsImage reports whether the descriptor declares an image MIME type.
func (f *FileDescriptor) IsImage() bool {
	return strings.HasPrefix(f.MIMEType, "image/")
}

// Validate checks the engine's mandatory preconditions.
func (f *FileDescriptor) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("%w: descriptor %q has empty id", ErrInvalidInput, f.Name)
	}
	if f.SHA256 == "" {
		return fmt.Errorf("%w: file %s is missing sha256", ErrInvalidInput, f.ID)
	}
	return nil
}

// DuplicateGroup is one set of mutually duplicate files. Groups are values
// created fresh on every run and owned by the caller afterwards.
type DuplicateGroup struct {
	// ID is derived deterministically from the sorted member ids, so the
	// same partition always yields the same ids regardless of input order.
	ID string `json:"id"`

	// MemberFileIDs holds the ids of all group members, sorted. Always >= 2.
	MemberFileIDs []string `json:"member_file_ids"`

	// KeepFileID is the canonical member selected by the tie-breaker.
	KeepFileID string `json:"keep_file_id"`

	// Reason is a human-readable explanation of the dominant match signal.
	Reason string `json:"reason"`

	// AverageScore is the mean score of the edges inside the group.
	AverageScore float64 `json:"average_score"`

	// NeedsReview is set when the review policy is "flag" and at least one
	// edge holding the group together scored inside the review band.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// groupID derives a stable group identifier from the member ids.
// UUIDv5 over the sorted ids keeps the id independent of input order.
func groupID(memberIDs []string) string {
	sorted := make([]string, len(memberIDs))
	copy(sorted, memberIDs)
	sort.Strings(sorted)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("dedupd:group:"+strings.Join(sorted, ","))).String()
}
