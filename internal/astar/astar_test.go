package astar

import (
	"container/heap"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func mustRows(t *testing.T, ratio geom.Vec2, rows ...string) *grid.Map {
	t.Helper()
	m, err := grid.FromRows(rows, ratio)
	require.NoError(t, err)
	return m
}

func openMap(t *testing.T, w, h int, ratio geom.Vec2) *grid.Map {
	t.Helper()
	m, err := grid.New(w, h, ratio)
	require.NoError(t, err)
	return m
}

// walledMap is a maze-like grid whose route forces many expansions.
func walledMap(t *testing.T) *grid.Map {
	t.Helper()
	rows := make([]string, 30)
	for y := range rows {
		row := []byte(strings.Repeat(".", 30))
		if y != 28 {
			row[10] = '#'
		}
		if y != 1 {
			row[20] = '#'
		}
		rows[y] = string(row)
	}
	return mustRows(t, geom.V(1, 1), rows...)
}

func sentinelPath(t *testing.T) *path.Path {
	t.Helper()
	p := path.New()
	require.NoError(t, p.Create(1))
	require.NoError(t, p.AddPoint(-42, -42))
	require.NoError(t, p.SetDirection(path.DirectionForward))
	require.NoError(t, p.SetToReady())
	return p
}

func routeCost(points []geom.Vec2, ratio geom.Vec2) int {
	total := 0
	for i := 1; i < len(points); i++ {
		dx := math.Abs(points[i].X-points[i-1].X) / ratio.X
		dy := math.Abs(points[i].Y-points[i-1].Y) / ratio.Y
		if dx > 0 && dy > 0 {
			total += BaseStepCost + DiagonalSurcharge
		} else {
			total += BaseStepCost
		}
	}
	return total
}

func TestSearchStraightLineOnOpenGrid(t *testing.T) {
	m := openMap(t, 10, 10, geom.V(1, 1))
	p := path.New()

	require.NoError(t, Search(geom.V(0, 0), geom.V(3, 0), m, p))

	assert.True(t, p.IsReady())
	assert.Equal(t, path.DirectionForward, p.Direction())
	assert.Equal(t, []geom.Vec2{geom.V(0, 0), geom.V(1, 0), geom.V(2, 0), geom.V(3, 0)}, p.Points())
	assert.Equal(t, 3*BaseStepCost, routeCost(p.Points(), m.Ratio()))
}

func TestSearchScalesByRatio(t *testing.T) {
	m := openMap(t, 8, 8, geom.V(32, 16))
	p := path.New()

	require.NoError(t, Search(geom.V(40, 20), geom.V(100, 20), m, p))

	assert.Equal(t, []geom.Vec2{geom.V(32, 16), geom.V(64, 16), geom.V(96, 16)}, p.Points())
}

func TestSearchFindsCheapestMix(t *testing.T) {
	m := openMap(t, 10, 10, geom.V(1, 1))
	p := path.New()

	require.NoError(t, Search(geom.V(0, 0), geom.V(5, 3), m, p))
	assert.Equal(t, 6, p.Len())
	assert.Equal(t, 3*(BaseStepCost+DiagonalSurcharge)+2*BaseStepCost, routeCost(p.Points(), m.Ratio()))
}

func TestSearchRejectsBlockedEndpoints(t *testing.T) {
	m := mustRows(t, geom.V(1, 1),
		"#...",
		"....",
		"...#",
	)
	cases := []struct {
		name        string
		origin, dst geom.Vec2
		want        path.Code
	}{
		{"occupied origin", geom.V(0, 0), geom.V(2, 2), path.ErrInvalidOrigin},
		{"origin out of range", geom.V(-1, 1), geom.V(2, 2), path.ErrInvalidOrigin},
		{"occupied destination", geom.V(1, 1), geom.V(3, 2), path.ErrInvalidDestination},
		{"destination out of range", geom.V(1, 1), geom.V(9, 9), path.ErrInvalidDestination},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sentinelPath(t)
			before := p.Points()

			err := Search(tc.origin, tc.dst, m, p)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, p.Points())
			assert.True(t, p.IsReady())
		})
	}
}

func TestSearchNotFoundReleasesNodes(t *testing.T) {
	m := mustRows(t, geom.V(1, 1),
		"..#..",
		"..#..",
		"..#..",
	)
	s := NewSearcher()
	p := sentinelPath(t)

	err := s.Step(geom.V(0, 0), geom.V(4, 2), m, p, 0)
	assert.ErrorIs(t, err, path.ErrPathNotFound)
	assert.Equal(t, 0, s.LiveNodes())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, []geom.Vec2{geom.V(-42, -42)}, p.Points())
	assert.Equal(t, 6, s.Stats().Expanded)
}

func TestSearchIsIdempotent(t *testing.T) {
	m := walledMap(t)
	a, b := path.New(), path.New()

	require.NoError(t, Search(geom.V(0, 0), geom.V(29, 29), m, a))
	require.NoError(t, Search(geom.V(0, 0), geom.V(29, 29), m, b))
	assert.Equal(t, a.Points(), b.Points())
}

func TestSearchStepsAreAdjacentAndFree(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		m, err := grid.GenerateNoise(40, 25, geom.V(2, 3), seed, 0.62)
		require.NoError(t, err)
		free := m.FreeCells()
		require.NotEmpty(t, free)

		origin := grid.CenterOf(m, free[0])
		dst := grid.CenterOf(m, free[len(free)-1])
		p := path.New()
		err = Search(origin, dst, m, p)
		if errors.Is(err, path.ErrPathNotFound) {
			continue
		}
		require.NoError(t, err, "seed %d", seed)

		points := p.Points()
		assert.Equal(t, grid.WorldOf(m, free[0]), points[0])
		assert.Equal(t, grid.WorldOf(m, free[len(free)-1]), points[len(points)-1])
		for i, pt := range points {
			c := grid.CellOf(m, pt)
			assert.False(t, m.IsOccupied(c.X, c.Y), "seed %d point %d on obstacle", seed, i)
			if i == 0 {
				continue
			}
			prev := grid.CellOf(m, points[i-1])
			assert.LessOrEqual(t, math.Abs(float64(c.X-prev.X)), 1.0)
			assert.LessOrEqual(t, math.Abs(float64(c.Y-prev.Y)), 1.0)
			assert.NotEqual(t, prev, c)
		}
	}
}

func TestTimeBoxedStepMatchesSearch(t *testing.T) {
	m := walledMap(t)
	want := path.New()
	require.NoError(t, Search(geom.V(0, 0), geom.V(29, 0), m, want))

	clock := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	s := NewSearcher(WithClock(clock))
	got := path.New()

	var results []error
	for i := 0; i < 10000; i++ {
		err := s.Step(geom.V(0, 0), geom.V(29, 0), m, got, time.Millisecond)
		results = append(results, err)
		if !errors.Is(err, path.ErrTimeout) {
			break
		}
		assert.Equal(t, StateSearching, s.State())
		assert.False(t, got.IsReady(), "path written before completion")
	}

	require.Greater(t, len(results), 2)
	for _, err := range results[:len(results)-1] {
		assert.ErrorIs(t, err, path.ErrTimeout)
	}
	require.NoError(t, results[len(results)-1])
	assert.Equal(t, want.Points(), got.Points())
	assert.Equal(t, len(results), s.Stats().Slices)
	assert.Equal(t, 0, s.LiveNodes())
	assert.Equal(t, StateIdle, s.State())
}

func TestStepRestartsWhenEndpointsChange(t *testing.T) {
	m := walledMap(t)
	clock := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	s := NewSearcher(WithClock(clock))
	p := path.New()

	err := s.Step(geom.V(0, 0), geom.V(29, 29), m, p, time.Millisecond)
	require.ErrorIs(t, err, path.ErrTimeout)

	require.NoError(t, s.Step(geom.V(0, 0), geom.V(2, 0), m, p, 0))
	assert.Equal(t, []geom.Vec2{geom.V(0, 0), geom.V(1, 0), geom.V(2, 0)}, p.Points())
}

func TestAbortReleasesInFlightSearch(t *testing.T) {
	m := walledMap(t)
	clock := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	s := NewSearcher(WithClock(clock))

	err := s.Step(geom.V(0, 0), geom.V(29, 29), m, path.New(), time.Millisecond)
	require.ErrorIs(t, err, path.ErrTimeout)
	require.Positive(t, s.LiveNodes())

	s.Abort()
	assert.Equal(t, 0, s.LiveNodes())
	assert.Equal(t, StateIdle, s.State())
}

func TestNodeLimitFailsWithMemory(t *testing.T) {
	m := openMap(t, 20, 20, geom.V(1, 1))
	s := NewSearcher(WithNodeLimit(5))
	p := sentinelPath(t)

	err := s.Step(geom.V(0, 0), geom.V(19, 19), m, p, 0)
	assert.ErrorIs(t, err, path.ErrMemory)
	assert.Equal(t, 0, s.LiveNodes())
	assert.Equal(t, []geom.Vec2{geom.V(-42, -42)}, p.Points())
}

func TestCornerCutting(t *testing.T) {
	m := mustRows(t, geom.V(1, 1),
		".#",
		"#.",
	)

	p := path.New()
	require.NoError(t, Search(geom.V(0, 0), geom.V(1, 1), m, p))
	assert.Equal(t, 2, p.Len())

	err := Search(geom.V(0, 0), geom.V(1, 1), m, path.New(), WithoutCornerCutting())
	assert.ErrorIs(t, err, path.ErrPathNotFound)
}

func TestRouteLongerThanPathCapacity(t *testing.T) {
	m := openMap(t, path.MaxPoints+1, 1, geom.V(1, 1))
	p := sentinelPath(t)

	err := Search(geom.V(0, 0), geom.V(path.MaxPoints, 0), m, p)
	assert.ErrorIs(t, err, path.ErrIncorrectPointsNumber)
	assert.Equal(t, 1, p.Len())

	require.NoError(t, Search(geom.V(0, 0), geom.V(path.MaxPoints-1, 0), m, p))
	assert.Equal(t, path.MaxPoints, p.Len())
}

func TestNilArgumentsAreInvalidPointers(t *testing.T) {
	m := openMap(t, 2, 2, geom.V(1, 1))
	assert.ErrorIs(t, Search(geom.V(0, 0), geom.V(1, 1), nil, path.New()), path.ErrInvalidPointer)
	assert.ErrorIs(t, Search(geom.V(0, 0), geom.V(1, 1), m, nil), path.ErrInvalidPointer)
}

func TestOriginEqualsDestination(t *testing.T) {
	m := openMap(t, 3, 3, geom.V(1, 1))
	p := path.New()
	require.NoError(t, Search(geom.V(1.5, 1.5), geom.V(1.2, 1.9), m, p))
	assert.Equal(t, []geom.Vec2{geom.V(1, 1)}, p.Points())
}

func TestHeuristicUsesAbsoluteDisplacement(t *testing.T) {
	goal := grid.Cell{X: 0, Y: 0}
	assert.Equal(t, 50, heuristic(grid.Cell{X: -5, Y: -2}, goal))
	assert.Equal(t, 50, heuristic(grid.Cell{X: 5, Y: 2}, goal))
	assert.Equal(t, 70, heuristic(grid.Cell{X: 3, Y: -7}, goal))
}

// sliceGrid is an Occupancy whose dynamic type cannot be compared with ==.
type sliceGrid [][]bool

func (g sliceGrid) IsOccupied(x, y int) bool {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return true
	}
	return g[y][x]
}

func (g sliceGrid) Ratio() geom.Vec2 { return geom.V(1, 1) }

func toSliceGrid(m *grid.Map) sliceGrid {
	g := make(sliceGrid, m.Height())
	for y := range g {
		g[y] = make([]bool, m.Width())
		for x := range g[y] {
			g[y][x] = m.IsOccupied(x, y)
		}
	}
	return g
}

func TestStepResumesOnSliceBackedGrid(t *testing.T) {
	m := walledMap(t)
	want := path.New()
	require.NoError(t, Search(geom.V(0, 0), geom.V(29, 0), m, want))

	g := toSliceGrid(m)
	clock := &stepClock{now: time.Unix(0, 0), step: time.Millisecond}
	s := NewSearcher(WithClock(clock))
	got := path.New()

	err := s.Step(geom.V(0, 0), geom.V(29, 0), g, got, time.Millisecond)
	require.ErrorIs(t, err, path.ErrTimeout)

	for i := 0; i < 10000 && errors.Is(err, path.ErrTimeout); i++ {
		require.NotPanics(t, func() {
			err = s.Step(geom.V(0, 0), geom.V(29, 0), g, got, time.Millisecond)
		})
	}
	require.NoError(t, err)
	assert.Equal(t, want.Points(), got.Points())
	assert.Greater(t, s.Stats().Slices, 2)
}

func TestExpandAppliesDominanceRule(t *testing.T) {
	m := openMap(t, 5, 5, geom.V(1, 1))
	s := NewSearcher()
	s.begin(m, grid.Cell{X: 0, Y: 0}, grid.Cell{X: 4, Y: 4})
	root := heap.Pop(&s.open).(handle)
	s.arena[root].closed = true

	worseOpen := s.alloc(grid.Cell{X: 1, Y: 1}, 100, noParent)
	heap.Push(&s.open, worseOpen)
	worseClosed := s.alloc(grid.Cell{X: 0, Y: 1}, 100, noParent)
	s.arena[worseClosed].closed = true
	cheaper := s.alloc(grid.Cell{X: 1, Y: 0}, 5, noParent)
	heap.Push(&s.open, cheaper)

	require.NoError(t, s.expand(root))

	assert.Equal(t, 2, s.Stats().Evicted)
	assert.True(t, s.arena[worseOpen].evicted)
	assert.True(t, s.arena[worseClosed].evicted)
	assert.False(t, s.arena[cheaper].evicted)
	assert.Equal(t, cheaper, s.index[grid.Cell{X: 1, Y: 0}], "equal-or-worse candidates are discarded")
	assert.Equal(t, BaseStepCost+DiagonalSurcharge, s.arena[s.index[grid.Cell{X: 1, Y: 1}]].g)
	assert.Equal(t, BaseStepCost, s.arena[s.index[grid.Cell{X: 0, Y: 1}]].g)

	assert.Len(t, s.open.items, 3)
	for i, h := range s.open.items {
		assert.False(t, s.arena[h].evicted, "evicted node %d left in the open set", h)
		assert.Equal(t, i, s.arena[h].heapIndex)
	}
}

// dijkstraCost is an exhaustive reference over the same lattice and costs.
func dijkstraCost(g grid.Occupancy, w, h int, start, goal grid.Cell) (int, bool) {
	const unvisited = math.MaxInt
	dist := make([]int, w*h)
	done := make([]bool, w*h)
	for i := range dist {
		dist[i] = unvisited
	}
	dist[start.Y*w+start.X] = 0
	for {
		best := -1
		for i, d := range dist {
			if !done[i] && d != unvisited && (best < 0 || d < dist[best]) {
				best = i
			}
		}
		if best < 0 {
			return 0, false
		}
		if best == goal.Y*w+goal.X {
			return dist[best], true
		}
		done[best] = true
		x, y := best%w, best/w
		for _, n := range neighborOffsets {
			nx, ny := x+n.dx, y+n.dy
			if g.IsOccupied(nx, ny) {
				continue
			}
			idx := ny*w + nx
			if cost := dist[best] + n.cost; cost < dist[idx] {
				dist[idx] = cost
			}
		}
	}
}

func TestSearchCostMatchesExhaustiveSearch(t *testing.T) {
	const size = 24
	var evicted int
	for seed := int64(1); seed <= 6; seed++ {
		m, err := grid.GenerateNoise(size, size, geom.V(1, 1), seed, 0.6)
		require.NoError(t, err)
		free := m.FreeCells()
		require.Greater(t, len(free), 2)

		pairs := [][2]grid.Cell{
			{free[0], free[len(free)-1]},
			{free[len(free)/2], free[0]},
			{free[len(free)-1], free[len(free)/3]},
		}
		for _, pair := range pairs {
			from, to := pair[0], pair[1]
			want, reachable := dijkstraCost(m, size, size, from, to)

			s := NewSearcher()
			p := path.New()
			err := s.Step(grid.WorldOf(m, from), grid.WorldOf(m, to), m, p, 0)
			evicted += s.Stats().Evicted
			if !reachable {
				assert.ErrorIs(t, err, path.ErrPathNotFound, "seed %d %v->%v", seed, from, to)
				continue
			}
			require.NoError(t, err, "seed %d %v->%v", seed, from, to)
			assert.Equal(t, want, routeCost(p.Points(), m.Ratio()), "seed %d %v->%v", seed, from, to)
		}
	}
	t.Logf("evicted %d nodes across all searches", evicted)
}
