// Package manifest loads file descriptor manifests for the dedupd CLI.
//
// A manifest is a JSON array of descriptor entries. Entries may reference a
// local byte source via "path"; missing fingerprints and metadata are then
// backfilled from those bytes before the batch is handed to the engine.
// This keeps all I/O on the caller side of the engine boundary.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/dedupd/pkg/dedupe"
)

// ErrEmptyManifest indicates the manifest contained no entries.
var ErrEmptyManifest = errors.New("manifest contains no entries")

// Entry is one manifest record. All fields except Path map directly onto
// dedupe.FileDescriptor.
type Entry struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	MIMEType       string             `json:"mime_type"`
	SizeBytes      int64              `json:"size_bytes"`
	SHA256         string             `json:"sha256"`
	PerceptualHash string             `json:"perceptual_hash"`
	Embedding      []float64          `json:"embedding"`
	Modality       string             `json:"modality"`
	ModifiedAt     *time.Time         `json:"modified_at"`
	Resolution     *dedupe.Resolution `json:"resolution"`

	// Path optionally points at a local byte source used to backfill
	// missing fingerprints and size/mtime metadata.
	Path string `json:"path"`
}

// Load reads and decodes a manifest file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyManifest
	}
	return entries, nil
}

// Descriptors converts manifest entries into engine descriptors.
//
// Entries without an id get a generated UUID. When an entry carries a Path,
// missing sha256 and perceptual hashes are computed over the file bytes,
// and zero size/mtime fields are filled from the file's stat. Perceptual
// hash backfill failures are not fatal: the engine falls back to the other
// signals for that file.
func Descriptors(entries []Entry) ([]dedupe.FileDescriptor, error) {
	var fp dedupe.Fingerprinter

	files := make([]dedupe.FileDescriptor, 0, len(entries))
	for i, e := range entries {
		desc := dedupe.FileDescriptor{
			ID:             e.ID,
			Name:           e.Name,
			MIMEType:       e.MIMEType,
			SizeBytes:      e.SizeBytes,
			SHA256:         e.SHA256,
			PerceptualHash: e.PerceptualHash,
			Embedding:      e.Embedding,
			Modality:       dedupe.Modality(e.Modality),
			ModifiedAt:     e.ModifiedAt,
			Resolution:     e.Resolution,
		}
		if desc.ID == "" {
			desc.ID = uuid.New().String()
		}

		if e.Path != "" {
			if err := backfill(&desc, e.Path, fp); err != nil {
				return nil, fmt.Errorf("entry %d (%s): %w", i, e.Path, err)
			}
		}

		files = append(files, desc)
	}
	return files, nil
}

// backfill computes missing fingerprints and metadata from the byte source.
func backfill(desc *dedupe.FileDescriptor, path string, fp dedupe.Fingerprinter) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading byte source: %w", err)
	}

	if desc.SHA256 == "" {
		desc.SHA256 = fp.SHA256(data)
	}
	if desc.PerceptualHash == "" && desc.IsImage() {
		hash, err := fp.PerceptualHash(data)
		if err == nil {
			desc.PerceptualHash = hash
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat byte source: %w", err)
	}
	if desc.SizeBytes == 0 {
		desc.SizeBytes = info.Size()
	}
	if desc.ModifiedAt == nil {
		mtime := info.ModTime()
		desc.ModifiedAt = &mtime
	}
	if desc.Name == "" {
		desc.Name = info.Name()
	}

	return nil
}
