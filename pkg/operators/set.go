package operators

import (
	"fmt"
	"sort"
	"strings"
)

// Set is a sorted, duplicate-free list of vertex ids
type Set []int

// NewSet builds a Set from arbitrary values
func NewSet(values ...int) Set {
	if len(values) == 0 {
		return Set{}
	}
	s := append(Set(nil), values...)
	sort.Ints(s)

	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// Contains reports whether v is in the set
func (s Set) Contains(v int) bool {
	i := sort.SearchInts(s, v)
	return i < len(s) && s[i] == v
}

// Equal reports whether both sets hold the same values
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// String renders the set as {a, b, c}
func (s Set) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// merge walks two sorted sets once. keep decides, per value, whether it
// belongs to the result given membership in a and b.
func merge(a, b Set, keep func(inA, inB bool) bool) Set {
	out := Set{}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i] < b[j]):
			if keep(true, false) {
				out = append(out, a[i])
			}
			i++
		case i == len(a) || b[j] < a[i]:
			if keep(false, true) {
				out = append(out, b[j])
			}
			j++
		default:
			if keep(true, true) {
				out = append(out, a[i])
			}
			i++
			j++
		}
	}
	return out
}

// Intersect returns a ∩ b
func Intersect(a, b Set) Set {
	return merge(a, b, func(inA, inB bool) bool { return inA && inB })
}

// Union returns a ∪ b
func Union(a, b Set) Set {
	return merge(a, b, func(inA, inB bool) bool { return inA || inB })
}

// Difference returns a \ b
func Difference(a, b Set) Set {
	return merge(a, b, func(inA, inB bool) bool { return inA && !inB })
}

// SymmetricDifference returns a △ b
func SymmetricDifference(a, b Set) Set {
	return merge(a, b, func(inA, inB bool) bool { return inA != inB })
}
