// Package matrix provides the fixed-size adjacency matrix shared by every
// stage of the pattern pipeline.
package matrix

import (
	"errors"
	"fmt"
	"strings"
)

// Cell values.
const (
	None   = 0 // no edge
	Edge   = 1 // structural edge or dependency
	Marked = 2 // update edge anchoring canonicalization
)

var (
	// ErrInvalidSize is returned for a non-positive matrix size
	ErrInvalidSize = errors.New("invalid matrix size")

	// ErrSizeMismatch is returned when a buffer or a second matrix does not
	// match the expected size
	ErrSizeMismatch = errors.New("matrix size mismatch")
)

// Matrix is a dense, row-major square matrix over {None, Edge, Marked}.
// Its size is fixed at construction.
type Matrix struct {
	size  int
	cells []int
}

// New creates an empty size x size matrix
func New(size int) (*Matrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Matrix{size: size, cells: make([]int, size*size)}, nil
}

// FromRows builds a matrix from a square slice of rows
func FromRows(rows [][]int) (*Matrix, error) {
	m, err := New(len(rows))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != m.size {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrSizeMismatch, i, len(row), m.size)
		}
		copy(m.cells[i*m.size:], row)
	}
	return m, nil
}

// Parse decodes a row-major ASCII buffer of size*size characters.
// '1' is an edge, '2' marks the update edge (mirrored to the transposed
// cell) and any other character is no edge.
func Parse(size int, buf string) (*Matrix, error) {
	m, err := New(size)
	if err != nil {
		return nil, err
	}
	if len(buf) != size*size {
		return nil, fmt.Errorf("%w: buffer has %d characters, want %d", ErrSizeMismatch, len(buf), size*size)
	}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			switch buf[i*size+j] {
			case '1':
				if m.At(i, j) == None {
					m.Set(i, j, Edge)
				}
			case '2':
				m.Set(i, j, Marked)
				m.Set(j, i, Marked)
			}
		}
	}
	return m, nil
}

// Size returns the number of vertices
func (m *Matrix) Size() int {
	return m.size
}

func (m *Matrix) index(i, j int) int {
	if i < 0 || i >= m.size || j < 0 || j >= m.size {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range for size %d", i, j, m.size))
	}
	return i*m.size + j
}

// At returns the value of cell (i, j)
func (m *Matrix) At(i, j int) int {
	return m.cells[m.index(i, j)]
}

// Set stores v in cell (i, j)
func (m *Matrix) Set(i, j, v int) {
	m.cells[m.index(i, j)] = v
}

// Row returns a copy of row i
func (m *Matrix) Row(i int) []int {
	start := m.index(i, 0)
	row := make([]int, m.size)
	copy(row, m.cells[start:start+m.size])
	return row
}

// Rows returns the matrix as a slice of row copies
func (m *Matrix) Rows() [][]int {
	rows := make([][]int, m.size)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{size: m.size, cells: make([]int, len(m.cells))}
	copy(c.cells, m.cells)
	return c
}

// Equal reports whether both matrices have the same size and cells
func (m *Matrix) Equal(o *Matrix) bool {
	if o == nil || m.size != o.size {
		return false
	}
	for i := range m.cells {
		if m.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// SwapVertices exchanges vertices a and b, moving both their rows and
// their columns.
func (m *Matrix) SwapVertices(a, b int) {
	if a == b {
		m.index(a, b)
		return
	}
	for k := 0; k < m.size; k++ {
		ia, ib := m.index(a, k), m.index(b, k)
		m.cells[ia], m.cells[ib] = m.cells[ib], m.cells[ia]
	}
	for k := 0; k < m.size; k++ {
		ia, ib := m.index(k, a), m.index(k, b)
		m.cells[ia], m.cells[ib] = m.cells[ib], m.cells[ia]
	}
}

// Permute returns a new matrix in which position p holds original vertex
// order[p], so that result.At(p, q) == m.At(order[p], order[q]).
func (m *Matrix) Permute(order []int) (*Matrix, error) {
	if len(order) != m.size {
		return nil, fmt.Errorf("%w: ordering has %d entries, want %d", ErrSizeMismatch, len(order), m.size)
	}
	seen := make([]bool, m.size)
	for _, v := range order {
		if v < 0 || v >= m.size || seen[v] {
			return nil, fmt.Errorf("ordering %v is not a permutation of 0..%d", order, m.size-1)
		}
		seen[v] = true
	}

	out := &Matrix{size: m.size, cells: make([]int, len(m.cells))}
	for p := 0; p < m.size; p++ {
		for q := 0; q < m.size; q++ {
			out.cells[p*m.size+q] = m.cells[order[p]*m.size+order[q]]
		}
	}
	return out, nil
}

// MarkedPairs returns every unordered pair (i<j) whose cell holds Marked
func (m *Matrix) MarkedPairs() [][2]int {
	var pairs [][2]int
	for i := 0; i < m.size; i++ {
		for j := i + 1; j < m.size; j++ {
			if m.At(i, j) == Marked || m.At(j, i) == Marked {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// Edges returns every unordered pair (i<j) connected in either direction
func (m *Matrix) Edges() [][2]int {
	var edges [][2]int
	for i := 0; i < m.size; i++ {
		for j := i + 1; j < m.size; j++ {
			if m.At(i, j) != None || m.At(j, i) != None {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return edges
}

// String renders the matrix in the ASCII buffer encoding accepted by Parse
func (m *Matrix) String() string {
	var sb strings.Builder
	sb.Grow(len(m.cells))
	for _, v := range m.cells {
		sb.WriteByte(byte('0' + v))
	}
	return sb.String()
}
