package dedupe

// selectKeepFile deterministically picks the canonical file of a group.
//
// Rules, in order, first one that disambiguates:
//  1. Restrict to members involved in an exact-hash match inside the group,
//     when any exist. Identical bytes carry no further distinguishing
//     signal, so the remaining rules order them.
//  2. Larger resolution (width * height), images only.
//  3. More recent modification time, when present on both sides.
//  4. Larger size in bytes.
//  5. Lexicographically smallest id. Always terminates, so the function is
//     total: every group of >= 2 members yields exactly one keep file.
func selectKeepFile(members []*FileDescriptor) string {
	candidates := exactHashMembers(members)
	if len(candidates) == 0 {
		candidates = members
	}

	best := candidates[0]
	for _, m := range candidates[1:] {
		if keepPreferred(m, best) {
			best = m
		}
	}
	return best.ID
}

// exactHashMembers returns the members whose sha256 appears more than once
// in the group, i.e. those involved in an exact-hash match.
func exactHashMembers(members []*FileDescriptor) []*FileDescriptor {
	counts := make(map[string]int, len(members))
	for _, m := range members {
		counts[m.SHA256]++
	}

	var matched []*FileDescriptor
	for _, m := range members {
		if counts[m.SHA256] > 1 {
			matched = append(matched, m)
		}
	}
	return matched
}

// keepPreferred reports whether a should be kept over b.
func keepPreferred(a, b *FileDescriptor) bool {
	// Rule 2: resolution, only when both sides are images with known
	// dimensions; non-image members fall through.
	if a.IsImage() && b.IsImage() && a.Resolution != nil && b.Resolution != nil {
		if a.Resolution.Pixels() != b.Resolution.Pixels() {
			return a.Resolution.Pixels() > b.Resolution.Pixels()
		}
	}

	// Rule 3: most recently modified.
	if a.ModifiedAt != nil && b.ModifiedAt != nil && !a.ModifiedAt.Equal(*b.ModifiedAt) {
		return a.ModifiedAt.After(*b.ModifiedAt)
	}

	// Rule 4: larger file.
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}

	// Rule 5: stable fallback.
	return a.ID < b.ID
}
