package transcript

// Chunk splits seq into at most requested contiguous parts.
//
// When len(seq) is below requested or below minEntries (0 disables the
// minimum) the whole sequence is returned as a single chunk. Otherwise the
// parts differ in size by at most one, with the earlier parts taking the
// remainder. Boundaries depend on position only. An empty seq yields one
// empty chunk so callers always have a document to write.
func Chunk[T any](seq []T, requested, minEntries int) [][]T {
	n := len(seq)
	if requested < 1 {
		requested = 1
	}
	if n < requested || n < minEntries || requested == 1 {
		return [][]T{seq}
	}
	base, rem := n/requested, n%requested
	out := make([][]T, 0, requested)
	start := 0
	for i := range requested {
		size := base
		if i < rem {
			size++
		}
		out = append(out, seq[start:start+size:start+size])
		start += size
	}
	return out
}
