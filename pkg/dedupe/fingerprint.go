package dedupe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"math/bits"

	"github.com/corona10/goimagehash"

	// Raster decoders for perceptual hashing. The engine itself does no
	// file I/O; these only act on bytes the caller hands in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Fingerprinter derives content fingerprints from in-memory bytes.
//
// It exists for callers whose upload/scan layer did not precompute
// fingerprints. Both methods are pure functions over the supplied bytes.
type Fingerprinter struct{}

// SHA256 returns the hex-encoded sha256 of data.
func (Fingerprinter) SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash computes a 64-bit average hash over the decoded image and
// returns it as a 16-character hex string. Supported formats: png, jpeg,
// gif, bmp, tiff, webp.
func (Fingerprinter) PerceptualHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", fmt.Errorf("computing average hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// perceptualSimilarity scores two hex-encoded perceptual hashes as
// 1 - hammingDistance/bitLength. Both hashes must be non-empty, equal
// length, and valid hex.
func perceptualSimilarity(a, b string) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("perceptual hash width mismatch: %d vs %d bits", len(a)*4, len(b)*4)
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		na, err := hexNibble(a[i])
		if err != nil {
			return 0, err
		}
		nb, err := hexNibble(b[i])
		if err != nil {
			return 0, err
		}
		distance += bits.OnesCount8(na ^ nb)
	}
	bitLength := len(a) * 4
	return 1.0 - float64(distance)/float64(bitLength), nil
}

func hexNibble(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex character %q in perceptual hash", c)
	}
}
