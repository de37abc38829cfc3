// Package path stores ordered sets of waypoints together with the rules used
// to traverse them.
package path

import "github.com/martinezcajm/ArtificialIntelligenceProject/internal/geom"

// MaxPoints bounds the capacity accepted by Create.
const MaxPoints = 500

// LoopInfinite is the loop count that repeats a path forever.
const LoopInfinite = -1

// Direction selects how the cursor walks the stored points.
type Direction int8

const (
	DirectionNone    Direction = -1
	DirectionForward Direction = 0
)

// Action selects the loop policy of a path.
type Action int8

const (
	ActionNone Action = iota - 1
	ActionStraight
	ActionLoopNTimes
	ActionLoopInfinite
)

// Path is a fixed capacity sequence of world points with a traversal cursor.
// A Path is owned by a single mover and is not safe for concurrent use.
type Path struct {
	points []geom.Vec2
	last   int
	cursor int

	direction   Direction
	action      Action
	loops       int
	currentLoop int
	ready       bool
}

// New returns an empty path. Create must be called before points are added.
func New() *Path {
	p := &Path{}
	p.Clear()
	return p
}

// Create allocates storage for capacity points, discarding any previous
// contents. The direction and loop policy are preserved.
func (p *Path) Create(capacity int) error {
	if p == nil {
		return ErrInvalidPointer
	}
	if capacity <= 0 || capacity > MaxPoints {
		return ErrIncorrectPointsNumber
	}
	p.points = make([]geom.Vec2, capacity)
	p.last = -1
	p.cursor = -1
	p.currentLoop = 0
	p.ready = false
	return nil
}

// Clear releases the storage and resets every setting. It is safe to call on
// an empty or already cleared path.
func (p *Path) Clear() {
	if p == nil {
		return
	}
	p.points = nil
	p.last = -1
	p.cursor = -1
	p.direction = DirectionNone
	p.action = ActionNone
	p.loops = 0
	p.currentLoop = 0
	p.ready = false
}

// AddPoint appends a point after the last stored one.
func (p *Path) AddPoint(x, y float64) error {
	return p.AddVec(geom.Vec2{X: x, Y: y})
}

// AddVec appends v after the last stored point.
func (p *Path) AddVec(v geom.Vec2) error {
	if p == nil {
		return ErrInvalidPointer
	}
	if p.points == nil {
		return ErrPathNotCreated
	}
	if p.last+1 >= len(p.points) {
		return ErrStorageFull
	}
	p.last++
	p.points[p.last] = v
	return nil
}

// SetDirection configures the traversal direction. Only forward traversal is
// supported.
func (p *Path) SetDirection(d Direction) error {
	if p == nil {
		return ErrInvalidPointer
	}
	switch d {
	case DirectionNone, DirectionForward:
		p.direction = d
		return nil
	default:
		return ErrBadDirectionSetting
	}
}

// SetAction configures a loop policy that needs no count. LoopNTimes must be
// configured through SetLoops.
func (p *Path) SetAction(a Action) error {
	if p == nil {
		return ErrInvalidPointer
	}
	switch a {
	case ActionLoopInfinite:
		p.loops = LoopInfinite
	case ActionLoopNTimes:
		return ErrBadLoopsSetting
	case ActionNone, ActionStraight:
		p.loops = 0
	default:
		return ErrBadLoopsSetting
	}
	p.action = a
	return nil
}

// SetLoops sets how many extra passes the path performs: LoopInfinite repeats
// forever, zero disables looping. The value is validated by SetToReady.
func (p *Path) SetLoops(n int) error {
	if p == nil {
		return ErrInvalidPointer
	}
	p.loops = n
	switch {
	case n == LoopInfinite:
		p.action = ActionLoopInfinite
	case n == 0:
		p.action = ActionStraight
	default:
		p.action = ActionLoopNTimes
	}
	return nil
}

// SetToReady validates the path and enables traversal. Checks run in order:
// storage, contents, loop policy, direction.
func (p *Path) SetToReady() error {
	if p == nil {
		return ErrInvalidPointer
	}
	if p.points == nil {
		return ErrPathNotCreated
	}
	if p.last < 0 {
		return ErrEmptyPath
	}
	if p.loops < LoopInfinite {
		return ErrBadLoopsSetting
	}
	if p.direction == DirectionNone {
		return ErrBadDirectionSetting
	}
	p.ready = true
	return nil
}

// IsReady reports whether the path can be traversed.
func (p *Path) IsReady() bool {
	return p != nil && p.ready
}

// IsLast reports whether the cursor sits on the last appended point.
func (p *Path) IsLast() bool {
	return p != nil && p.last >= 0 && p.cursor == p.last
}

// NextPoint advances the cursor and returns the point under it. When the
// cursor is on the last point the path either starts a new loop or is
// exhausted, in which case ok is false.
func (p *Path) NextPoint() (geom.Vec2, bool) {
	if !p.IsReady() {
		return geom.Vec2{}, false
	}
	if p.IsLast() {
		if p.loops == LoopInfinite || p.currentLoop < p.loops {
			p.currentLoop++
			p.cursor = 0
			return p.points[0], true
		}
		return geom.Vec2{}, false
	}
	p.cursor++
	return p.points[p.cursor], true
}

// PrevPoint moves the cursor back one point. From the first point it wraps to
// the last one only when at least one loop has elapsed.
func (p *Path) PrevPoint() (geom.Vec2, bool) {
	if !p.IsReady() {
		return geom.Vec2{}, false
	}
	if p.cursor <= 0 {
		if p.cursor == 0 && p.currentLoop > 0 {
			p.currentLoop--
			p.cursor = p.last
			return p.points[p.cursor], true
		}
		return geom.Vec2{}, false
	}
	p.cursor--
	return p.points[p.cursor], true
}

// CurrentPoint returns the point under the cursor without moving it.
func (p *Path) CurrentPoint() (geom.Vec2, bool) {
	if !p.IsReady() || p.cursor < 0 {
		return geom.Vec2{}, false
	}
	return p.points[p.cursor], true
}

// LastPoint returns the final appended point.
func (p *Path) LastPoint() (geom.Vec2, bool) {
	if !p.IsReady() {
		return geom.Vec2{}, false
	}
	return p.points[p.last], true
}

// Rewind moves the cursor before the first point and resets the loop counter.
func (p *Path) Rewind() {
	if p == nil {
		return
	}
	p.cursor = -1
	p.currentLoop = 0
}

// Points returns a copy of the appended points.
func (p *Path) Points() []geom.Vec2 {
	if p == nil || p.last < 0 {
		return nil
	}
	out := make([]geom.Vec2, p.last+1)
	copy(out, p.points[:p.last+1])
	return out
}

// Remaining returns a copy of the points after the cursor in the current pass.
func (p *Path) Remaining() []geom.Vec2 {
	if p == nil || p.last < 0 || p.cursor >= p.last {
		return nil
	}
	start := p.cursor + 1
	out := make([]geom.Vec2, p.last+1-start)
	copy(out, p.points[start:p.last+1])
	return out
}

// Len reports the number of appended points.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.last + 1
}

// Cap reports the capacity fixed by Create.
func (p *Path) Cap() int {
	if p == nil {
		return 0
	}
	return len(p.points)
}

// Cursor reports the index of the current point, -1 before the first advance.
func (p *Path) Cursor() int {
	if p == nil {
		return -1
	}
	return p.cursor
}

// Loop reports how many loops have been started.
func (p *Path) Loop() int {
	if p == nil {
		return 0
	}
	return p.currentLoop
}

// Loops reports the configured loop count.
func (p *Path) Loops() int {
	if p == nil {
		return 0
	}
	return p.loops
}

func (p *Path) Direction() Direction {
	if p == nil {
		return DirectionNone
	}
	return p.direction
}

func (p *Path) Action() Action {
	if p == nil {
		return ActionNone
	}
	return p.action
}
