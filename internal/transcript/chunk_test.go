package transcript_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/scribe/internal/transcript"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func sizes[T any](chunks [][]T) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = len(c)
	}
	return out
}

func TestChunk_Sizes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		n          int
		requested  int
		minEntries int
		want       []int
	}{
		{"single", 10, 1, 0, []int{10}},
		{"even", 10, 2, 0, []int{5, 5}},
		{"remainder goes first", 10, 3, 0, []int{4, 3, 3}},
		{"fewer than requested", 3, 5, 0, []int{3}},
		{"below minimum", 3, 2, 5, []int{3}},
		{"meets minimum", 5, 2, 5, []int{3, 2}},
		{"zero requested", 4, 0, 0, []int{4}},
		{"one per chunk", 4, 4, 0, []int{1, 1, 1, 1}},
		{"empty", 0, 3, 0, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transcript.Chunk(seq(tt.n), tt.requested, tt.minEntries)
			if !slices.Equal(sizes(got), tt.want) {
				t.Errorf("sizes = %v, want %v", sizes(got), tt.want)
			}
		})
	}
}

func TestChunk_ConcatenationPreservesOrder(t *testing.T) {
	t.Parallel()
	for n := range 30 {
		for k := 1; k <= 7; k++ {
			chunks := transcript.Chunk(seq(n), k, 0)
			var flat []int
			for _, c := range chunks {
				flat = append(flat, c...)
			}
			if !slices.Equal(flat, seq(n)) {
				t.Fatalf("n=%d k=%d: concatenation = %v", n, k, flat)
			}
			if n >= k {
				if len(chunks) != k {
					t.Fatalf("n=%d k=%d: got %d chunks", n, k, len(chunks))
				}
				lo, hi := slices.Min(sizes(chunks)), slices.Max(sizes(chunks))
				if hi-lo > 1 {
					t.Fatalf("n=%d k=%d: sizes %v differ by more than one", n, k, sizes(chunks))
				}
			}
		}
	}
}
