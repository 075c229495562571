package codegen

import (
	"fmt"
	"strings"
)

const indent = "    "

// Render linearizes one block
func Render(b *Block) string {
	return strings.Join(renderLines(b), "\n")
}

func renderGroup(group []*Block) string {
	if len(group) == 1 {
		return Render(group[0])
	}
	return Render(&Block{Kind: Parallel, Children: group, Vertex: -1})
}

func renderLines(b *Block) []string {
	switch b.Kind {
	case Conditional:
		lines := []string{fmt.Sprintf("if %s {", b.Condition)}
		lines = append(lines, indented(b.Lines, indent)...)
		lines = append(lines, indented(renderChildren(b), indent)...)
		return append(lines, "}")
	case Loop:
		lines := []string{fmt.Sprintf("repeat %d {", b.Repeat)}
		lines = append(lines, indented(b.Lines, indent)...)
		lines = append(lines, indented(renderChildren(b), indent)...)
		return append(lines, "}")
	case Parallel:
		lines := []string{"parallel {"}
		for _, c := range b.Children {
			lines = append(lines, indent+"section {")
			lines = append(lines, indented(renderLines(c), indent+indent)...)
			lines = append(lines, indent+"}")
		}
		return append(lines, "}")
	default:
		return append(append([]string(nil), b.Lines...), renderChildren(b)...)
	}
}

func renderChildren(b *Block) []string {
	var lines []string
	for _, c := range b.Children {
		lines = append(lines, renderLines(c)...)
	}
	return lines
}

func indented(lines []string, prefix string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = prefix + l
	}
	return out
}
