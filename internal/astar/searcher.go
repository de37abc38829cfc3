package astar

import (
	"container/heap"
	"time"

	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/grid"
	"github.com/martinezcajm/ArtificialIntelligenceProject/internal/path"
)

// State is the lifecycle state of a Searcher.
type State uint8

const (
	StateIdle State = iota
	StateSearching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	default:
		return "unknown"
	}
}

type handle int32

const noParent handle = -1

type node struct {
	cell      grid.Cell
	g, h, f   int
	parent    handle
	seq       uint64
	heapIndex int
	closed    bool
	evicted   bool
}

// Stats describes the work done by the current or last search.
type Stats struct {
	Expanded  int `json:"expanded"`
	Generated int `json:"generated"`
	Evicted   int `json:"evicted"`
	PeakNodes int `json:"peakNodes"`
	Slices    int `json:"slices"`
}

// Searcher runs one search at a time and may spread it over several Step
// calls. Nodes live in an arena addressed by handle and are released together
// whenever a search ends. A Searcher is not safe for concurrent use.
type Searcher struct {
	cfg config

	state State
	grid  grid.Occupancy
	start grid.Cell
	goal  grid.Cell

	arena []node
	index map[grid.Cell]handle
	open  openQueue
	seq   uint64

	stats Stats
}

// NewSearcher constructs an idle Searcher.
func NewSearcher(opts ...Option) *Searcher {
	cfg := config{
		clock:      ClockFunc(time.Now),
		cornerCuts: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	s := &Searcher{
		cfg:   cfg,
		index: make(map[grid.Cell]handle),
	}
	s.open.arena = &s.arena
	return s
}

// State reports whether a search is in flight.
func (s *Searcher) State() State {
	if s == nil {
		return StateIdle
	}
	return s.state
}

// LiveNodes reports the number of nodes currently held by the arena.
func (s *Searcher) LiveNodes() int {
	if s == nil {
		return 0
	}
	return len(s.arena)
}

// Stats reports counters for the current or most recent search.
func (s *Searcher) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return s.stats
}

// Abort abandons any in-flight search and releases its nodes.
func (s *Searcher) Abort() {
	if s == nil {
		return
	}
	s.release()
}

func (s *Searcher) release() {
	s.arena = s.arena[:0]
	s.open.reset()
	clear(s.index)
	s.seq = 0
	s.grid = nil
	s.state = StateIdle
}

// Step advances the search from origin to destination. While the elapsed
// time of this call stays within budget nodes keep being expanded; once it is
// exceeded Step returns path.ErrTimeout and the next call with the same
// endpoints resumes where this one stopped. A non-positive budget runs the
// search to completion. Calling Step with different endpoints while a search
// is in flight abandons that search. The grid is only compared by the cells
// the endpoints map to; a resumed search expands on whichever grid is passed.
//
// On success the route is written into p, which is rebuilt with exactly as
// many points as the route has, set to forward traversal and marked ready.
// On any failure p is left untouched.
func (s *Searcher) Step(origin, destination geom.Vec2, g grid.Occupancy, p *path.Path, budget time.Duration) error {
	if s == nil || g == nil || p == nil {
		if s != nil {
			s.release()
		}
		return path.ErrInvalidPointer
	}

	start := grid.CellOf(g, origin)
	goal := grid.CellOf(g, destination)

	if s.state == StateSearching {
		if s.start != start || s.goal != goal {
			s.release()
		} else {
			s.grid = g
		}
	}

	if s.state == StateIdle {
		if g.IsOccupied(start.X, start.Y) {
			return path.ErrInvalidOrigin
		}
		if g.IsOccupied(goal.X, goal.Y) {
			return path.ErrInvalidDestination
		}
		s.begin(g, start, goal)
	}

	s.stats.Slices++
	began := s.cfg.clock.Now()
	for {
		if s.open.Len() == 0 {
			s.release()
			return path.ErrPathNotFound
		}
		current := heap.Pop(&s.open).(handle)
		s.arena[current].closed = true
		if s.arena[current].cell == s.goal {
			err := s.emit(current, p)
			s.release()
			return err
		}
		if err := s.expand(current); err != nil {
			s.release()
			return err
		}
		if budget > 0 && s.cfg.clock.Now().Sub(began) > budget {
			return path.ErrTimeout
		}
	}
}

func (s *Searcher) begin(g grid.Occupancy, start, goal grid.Cell) {
	s.release()
	s.grid = g
	s.start = start
	s.goal = goal
	s.stats = Stats{}
	s.state = StateSearching
	root := s.alloc(start, 0, noParent)
	heap.Push(&s.open, root)
}

func (s *Searcher) alloc(cell grid.Cell, cost int, parent handle) handle {
	h := heuristic(cell, s.goal)
	s.arena = append(s.arena, node{
		cell:      cell,
		g:         cost,
		h:         h,
		f:         cost + h,
		parent:    parent,
		seq:       s.seq,
		heapIndex: -1,
	})
	s.seq++
	id := handle(len(s.arena) - 1)
	s.index[cell] = id
	s.stats.Generated++
	if live := len(s.index); live > s.stats.PeakNodes {
		s.stats.PeakNodes = live
	}
	return id
}

func (s *Searcher) expand(current handle) error {
	s.stats.Expanded++
	origin := s.arena[current].cell
	baseCost := s.arena[current].g
	for _, delta := range neighborOffsets {
		next := grid.Cell{X: origin.X + delta.dx, Y: origin.Y + delta.dy}
		if s.grid.IsOccupied(next.X, next.Y) {
			continue
		}
		if delta.diagonal && !s.cfg.cornerCuts {
			if s.grid.IsOccupied(origin.X+delta.dx, origin.Y) || s.grid.IsOccupied(origin.X, origin.Y+delta.dy) {
				continue
			}
		}
		cost := baseCost + delta.cost
		if existing, ok := s.index[next]; ok {
			if cost >= s.arena[existing].g {
				continue
			}
			s.evict(existing)
		}
		if s.cfg.nodeLimit > 0 && len(s.arena) >= s.cfg.nodeLimit {
			return path.ErrMemory
		}
		heap.Push(&s.open, s.alloc(next, cost, current))
	}
	return nil
}

func (s *Searcher) evict(h handle) {
	n := &s.arena[h]
	if !n.closed && n.heapIndex >= 0 {
		heap.Remove(&s.open, n.heapIndex)
	}
	n.evicted = true
	delete(s.index, n.cell)
	s.stats.Evicted++
}

func (s *Searcher) emit(goal handle, p *path.Path) error {
	length := 0
	for h := goal; h != noParent; h = s.arena[h].parent {
		length++
	}
	if length > path.MaxPoints {
		return path.ErrIncorrectPointsNumber
	}

	chain := make([]grid.Cell, length)
	i := length - 1
	for h := goal; h != noParent; h = s.arena[h].parent {
		chain[i] = s.arena[h].cell
		i--
	}

	p.Clear()
	if err := p.Create(length); err != nil {
		return err
	}
	for _, cell := range chain {
		if err := p.AddVec(grid.WorldOf(s.grid, cell)); err != nil {
			return err
		}
	}
	if err := p.SetDirection(path.DirectionForward); err != nil {
		return err
	}
	return p.SetToReady()
}
