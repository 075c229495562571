package codegen

import (
	"sort"
	"strings"
)

const mergedRepeat = 2

// eliminateRedundancy drops blocks whose code was already emitted
func eliminateRedundancy(blocks []*Block) []*Block {
	seen := make(map[string]bool)
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		k := b.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}

// mergeSimilar folds pairs of similar sequential blocks into a loop block
// that holds both. The loop takes the position of the first block and the
// higher priority of the two.
func mergeSimilar(blocks []*Block) []*Block {
	out := append([]*Block(nil), blocks...)

	for i := 0; i < len(out); i++ {
		if out[i].Kind != Sequential {
			continue
		}
		for j := i + 1; j < len(out); j++ {
			if out[j].Kind != Sequential || !similar(out[i], out[j]) {
				continue
			}

			a, b := out[i], out[j]
			out[i] = &Block{
				Kind:     Loop,
				Repeat:   mergedRepeat,
				Children: []*Block{a, b},
				Priority: max(a.Priority, b.Priority),
				Vertex:   -1,
				Defines:  union(a.Defines, b.Defines),
				Reads:    union(a.Reads, b.Reads),
			}
			out = append(out[:j], out[j+1:]...)
			break
		}
	}

	return out
}

// similar compares blocks line by line, ignoring each block's declaration
// of its own neighbor set
func similar(a, b *Block) bool {
	if len(a.Lines) != len(b.Lines) {
		return false
	}
	for i := range a.Lines {
		if declaresOwnNeighbors(a, a.Lines[i]) && declaresOwnNeighbors(b, b.Lines[i]) {
			continue
		}
		if a.Lines[i] != b.Lines[i] {
			return false
		}
	}
	return true
}

func declaresOwnNeighbors(b *Block, line string) bool {
	if b.Vertex < 0 {
		return false
	}
	return strings.HasPrefix(line, neighborVar(b.Vertex)+" = ")
}

// reorder sorts blocks by descending priority, keeping ties in place.
// When every edge points to a higher vertex, this moves each neighbor
// declaration ahead of the set operations reading it.
func reorder(blocks []*Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Priority > blocks[j].Priority
	})
}

// partition greedily groups consecutive blocks that do not conflict.
// A limit below one yields one block per group.
func partition(blocks []*Block, limit int) [][]*Block {
	if limit < 1 {
		limit = 1
	}

	groups := [][]*Block{}
	var current []*Block
	for _, b := range blocks {
		if len(current) > 0 && (len(current) >= limit || conflictsWithAny(current, b)) {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, b)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func conflictsWithAny(group []*Block, b *Block) bool {
	for _, member := range group {
		if conflicts(member, b) {
			return true
		}
	}
	return false
}
