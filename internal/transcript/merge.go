package transcript

import (
	"cmp"
	"container/heap"
	"slices"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/pkg/cue"
)

// SpeakerCues is one speaker's cue sequence together with the identity it
// resolved to.
type SpeakerCues struct {
	Speaker speaker.Mapping
	Cues    []cue.Cue
}

// Entry is a merged cue carrying the display label of its speaker.
type Entry struct {
	cue.Cue
	Label string
}

// Merged is the globally ordered cue sequence of a session.
type Merged struct {
	Entries []Entry

	// Summary lists the distinct speakers in order of first appearance.
	Summary []speaker.Mapping
}

// mergeItem is the head of one speaker's sequence inside the merge heap.
type mergeItem struct {
	rank int // speaker order, ascending Index
	pos  int // position within the speaker's sorted cues
}

// mergeHeap orders heads by start time, then speaker rank, then position.
// The last two make the merge stable and deterministic for equal starts.
type mergeHeap struct {
	items []mergeItem
	seqs  [][]cue.Cue
}

func (h *mergeHeap) Len() int { return len(h.items) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	sa, sb := h.seqs[a.rank][a.pos].Start, h.seqs[b.rank][b.pos].Start
	if sa != sb {
		return sa < sb
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.pos < b.pos
}

func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap) Push(x any) { h.items = append(h.items, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// Merge performs a k-way merge of the speakers' cue sequences by start time
// in O(N log K).
//
// Speakers are ranked by ascending [speaker.Mapping.Index] (input order breaks
// ties); each speaker's cues are stable-sorted by start time first, so the
// merge does not rely on upstream ordering. Cues with equal start times keep
// (speaker rank, original position) order, which makes the result
// reproducible for identical input.
func Merge(inputs []SpeakerCues) Merged {
	ordered := slices.Clone(inputs)
	slices.SortStableFunc(ordered, func(a, b SpeakerCues) int {
		return cmp.Compare(a.Speaker.Index, b.Speaker.Index)
	})

	h := &mergeHeap{seqs: make([][]cue.Cue, len(ordered))}
	total := 0
	for rank, in := range ordered {
		seq := slices.Clone(in.Cues)
		slices.SortStableFunc(seq, func(a, b cue.Cue) int { return cmp.Compare(a.Start, b.Start) })
		h.seqs[rank] = seq
		total += len(seq)
		if len(seq) > 0 {
			h.items = append(h.items, mergeItem{rank: rank})
		}
	}
	heap.Init(h)

	out := Merged{Entries: make([]Entry, 0, total)}
	seen := make(map[int]bool, len(ordered))
	for h.Len() > 0 {
		it := h.items[0]
		sp := ordered[it.rank].Speaker
		c := h.seqs[it.rank][it.pos]
		c.Speaker = sp.Username
		out.Entries = append(out.Entries, Entry{Cue: c, Label: sp.Label()})
		if !seen[it.rank] {
			seen[it.rank] = true
			out.Summary = append(out.Summary, sp)
		}

		if it.pos+1 < len(h.seqs[it.rank]) {
			h.items[0].pos++
			heap.Fix(h, 0)
		} else {
			heap.Pop(h)
		}
	}
	return out
}
