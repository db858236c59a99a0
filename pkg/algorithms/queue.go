package algorithms

import (
	"container/heap"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

type queueItem struct {
	nodeID   string
	g        storage.Cost // cost from the origin
	priority storage.Cost // g plus heuristic
	seq      uint64
}

// frontier is a min-heap on priority. Equal priorities pop the most
// recently pushed item first.
type frontier struct {
	items []queueItem
	seq   uint64
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Less(i, j int) bool {
	if f.items[i].priority != f.items[j].priority {
		return f.items[i].priority < f.items[j].priority
	}
	return f.items[i].seq > f.items[j].seq
}

func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }

func (f *frontier) Push(x any) { f.items = append(f.items, x.(queueItem)) }

func (f *frontier) Pop() any {
	old := f.items
	n := len(old)
	item := old[n-1]
	f.items = old[:n-1]
	return item
}

func (f *frontier) push(nodeID string, g, priority storage.Cost) {
	f.seq++
	heap.Push(f, queueItem{nodeID: nodeID, g: g, priority: priority, seq: f.seq})
}

func (f *frontier) pop() queueItem {
	return heap.Pop(f).(queueItem)
}
