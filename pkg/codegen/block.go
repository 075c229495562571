package codegen

import "strings"

// Kind tags a code block
type Kind string

const (
	Sequential  Kind = "sequential"
	Parallel    Kind = "parallel"
	Conditional Kind = "conditional"
	Loop        Kind = "loop"
)

// Block is one unit of generated code
type Block struct {
	Kind     Kind
	Lines    []string
	Children []*Block
	Priority int

	Condition string // Conditional only
	Repeat    int    // Loop only

	// Vertex that produced the block, or -1 for merged blocks
	Vertex int

	// Variables written and read by the block
	Defines []string
	Reads   []string
}

// key identifies blocks with the same code
func (b *Block) key() string {
	return string(b.Kind) + "\x00" + b.Condition + "\x00" + strings.Join(b.Lines, "\n")
}

// conflicts reports whether a and b touch a variable one of them defines
func conflicts(a, b *Block) bool {
	return writesInto(a, b) || writesInto(b, a)
}

func writesInto(w, r *Block) bool {
	for _, d := range w.Defines {
		for _, v := range r.Defines {
			if d == v {
				return true
			}
		}
		for _, v := range r.Reads {
			if d == v {
				return true
			}
		}
	}
	return false
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, v := range b {
		found := false
		for _, x := range out {
			if x == v {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}
