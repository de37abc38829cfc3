package astar

// openQueue is a binary heap of node handles ordered by total cost, then by
// insertion sequence so that equal costs resolve to the earliest node.
type openQueue struct {
	arena *[]node
	items []handle
}

func (q *openQueue) Len() int { return len(q.items) }

func (q *openQueue) Less(i, j int) bool {
	nodes := *q.arena
	a, b := &nodes[q.items[i]], &nodes[q.items[j]]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (q *openQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	nodes := *q.arena
	nodes[q.items[i]].heapIndex = i
	nodes[q.items[j]].heapIndex = j
}

func (q *openQueue) Push(x any) {
	h := x.(handle)
	(*q.arena)[h].heapIndex = len(q.items)
	q.items = append(q.items, h)
}

func (q *openQueue) Pop() any {
	n := len(q.items)
	h := q.items[n-1]
	q.items = q.items[:n-1]
	(*q.arena)[h].heapIndex = -1
	return h
}

func (q *openQueue) reset() {
	q.items = q.items[:0]
}
