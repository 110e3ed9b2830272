package pathfind

import (
	"container/heap"

	"github.com/kaolin/runebot/internal/geometry"
)

type tileNode struct {
	coord geometry.WorldCoord
	cost  float64
}

// tileHeap is a min-heap on accumulated edge cost.
type tileHeap []tileNode

func (h tileHeap) Len() int            { return len(h) }
func (h tileHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h tileHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tileHeap) Push(x any)         { *h = append(*h, x.(tileNode)) }
func (h *tileHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *tileHeap) push(n tileNode) {
	heap.Push(h, n)
}

func (h *tileHeap) pop() tileNode {
	return heap.Pop(h).(tileNode)
}
