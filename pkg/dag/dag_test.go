package dag

import (
	"errors"
	"testing"

	"github.com/chicogong/pattern-planner/pkg/matrix"
	"github.com/chicogong/pattern-planner/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchedule(t *testing.T, size int, buf string) *schedule.Schedule {
	t.Helper()
	s, err := schedule.Parse(size, buf)
	require.NoError(t, err)
	return s
}

func mustDAG(t *testing.T, rows [][]int) *DAG {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	d, err := FromMatrix(m)
	require.NoError(t, err)
	return d
}

func TestBuild_Triangle(t *testing.T) {
	d, err := Build(mustSchedule(t, 3, "021201110"))
	require.NoError(t, err)

	assert.Equal(t, 3, d.Size())
	assert.Equal(t, [][]int{
		{0, 2, 1},
		{0, 0, 1},
		{0, 0, 0},
	}, d.Rows())
	assert.Len(t, d.Schedules(), 1)
}

func TestBuild_LastWriteWins(t *testing.T) {
	first := mustSchedule(t, 3, "021201110")
	second := mustSchedule(t, 3, "011102120")

	d, err := Build(first, second)
	require.NoError(t, err)

	assert.Equal(t, [][]int{
		{0, 1, 1},
		{0, 0, 2},
		{0, 0, 0},
	}, d.Rows())
	assert.Len(t, d.Schedules(), 2)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build()
	assert.True(t, errors.Is(err, ErrNoSchedules))

	_, err = Build(mustSchedule(t, 3, "021201110"), mustSchedule(t, 2, "0220"))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestOverlap(t *testing.T) {
	a := mustDAG(t, [][]int{{0, 1}, {0, 0}})
	b := mustDAG(t, [][]int{{0, 1}, {0, 0}})

	assert.Equal(t, []VertexPair{{A: 0, B: 0}, {A: 1, B: 1}}, Overlap(a, b))
	assert.True(t, HasOverlap(a, b))
}

func TestOverlap_HeuristicMatchesWithoutBijection(t *testing.T) {
	tri, err := Build(mustSchedule(t, 3, "021201110"))
	require.NoError(t, err)

	// vertex 2 (a sink) looks like vertex 1, whose only other relation is
	// also "no edge", even though no relabeling maps one onto the other
	pairs := Overlap(tri, tri)
	assert.Contains(t, pairs, VertexPair{A: 2, B: 1})

	combined, err := Combine(tri, tri)
	require.NoError(t, err)
	assert.Equal(t, 2, combined.Size())
}

func TestCombine_DropsEdgesInsideMergedVertex(t *testing.T) {
	tri, err := Build(mustSchedule(t, 3, "021201110"))
	require.NoError(t, err)
	require.Equal(t, matrix.Edge, tri.At(1, 2))

	// vertices 1 and 2 of each input collapse into id 1, so the edge 1->2
	// would become a self loop
	combined, err := Combine(tri, tri)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1}, {0, 0}}, combined.Rows())
	for v := 0; v < combined.Size(); v++ {
		assert.Equal(t, matrix.None, combined.At(v, v))
	}
}

func TestCombine_Empty(t *testing.T) {
	d, err := Combine()
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestCombine_SingleReturnsCopy(t *testing.T) {
	orig, err := Build(mustSchedule(t, 4, "0211200110001100"))
	require.NoError(t, err)

	c, err := Combine(orig)
	require.NoError(t, err)

	assert.Equal(t, orig.Rows(), c.Rows())
	assert.True(t, schedule.IsIsomorphic(orig.Matrix(), c.Matrix()))
	assert.NotSame(t, orig, c)
}

func TestCombine_MergesOverlappingVertices(t *testing.T) {
	a := mustDAG(t, [][]int{{0, 1}, {0, 0}})
	b := mustDAG(t, [][]int{{0, 1}, {0, 0}})

	c, err := Combine(a, b)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1}, {0, 0}}, c.Rows())
	assert.Len(t, c.Schedules(), 1)
}

func TestCombine_DisjointKeepsAllVertices(t *testing.T) {
	chain := mustDAG(t, [][]int{
		{0, 1, 0},
		{0, 0, 1},
		{0, 0, 0},
	})
	pair := mustDAG(t, [][]int{
		{0, 1},
		{1, 0},
	})
	require.Empty(t, Overlap(chain, pair))

	c, err := Combine(chain, pair)
	require.NoError(t, err)

	require.Equal(t, chain.Size()+pair.Size(), c.Size())
	for i := 0; i < 3; i++ {
		for j := 3; j < 5; j++ {
			assert.Equal(t, matrix.None, c.At(i, j), "cross edge %d->%d", i, j)
			assert.Equal(t, matrix.None, c.At(j, i), "cross edge %d->%d", j, i)
		}
	}
	assert.Equal(t, matrix.Edge, c.At(0, 1))
	assert.Equal(t, matrix.Edge, c.At(1, 2))
	assert.Equal(t, matrix.Edge, c.At(3, 4))
	assert.Equal(t, matrix.Edge, c.At(4, 3))
}
