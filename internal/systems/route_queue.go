package systems

import (
	"container/heap"

	"traffic-server/internal/domain"
)

// searchItem is one frontier entry of the route search.
type searchItem struct {
	At    domain.Coord
	Cost  int // g: cost from origin
	Guess int // h: heuristic to destination
	Index int // position in the heap, needed by Update
}

func (it *searchItem) priority() int { return it.Cost + it.Guess }

// routeQueue implements heap.Interface as a min-heap on (f, h, row, col).
// The full key makes pops deterministic for identical grids.
type routeQueue []*searchItem

func (pq routeQueue) Len() int { return len(pq) }

func (pq routeQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if fa, fb := a.priority(), b.priority(); fa != fb {
		return fa < fb
	}
	if a.Guess != b.Guess {
		return a.Guess < b.Guess
	}
	return a.At.Less(b.At)
}

func (pq routeQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *routeQueue) Push(x interface{}) {
	item := x.(*searchItem)
	item.Index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *routeQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[:n-1]
	return item
}

// Update lowers the cost of an item already in the queue.
func (pq *routeQueue) Update(item *searchItem, cost int) {
	item.Cost = cost
	heap.Fix(pq, item.Index)
}
