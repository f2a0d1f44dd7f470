package bounded

import "sort"

// List is a fixed-capacity collection that evicts its oldest items,
// by timestamp, once the capacity is exceeded.
type List[T any] struct {
	items     []T
	capacity  int
	timestamp func(T) int64
}

func New[T any](capacity int, timestamp func(T) int64, items ...T) *List[T] {
	l := &List[T]{
		capacity:  capacity,
		timestamp: timestamp,
	}
	l.Replace(items)
	return l
}

// Add appends item and returns whatever had to be evicted to stay within capacity.
func (l *List[T]) Add(item T) []T {
	l.items = append(l.items, item)
	return l.trim()
}

// Replace swaps the whole content, trimming it to capacity.
func (l *List[T]) Replace(items []T) []T {
	l.items = append(make([]T, 0, len(items)), items...)
	return l.trim()
}

func (l *List[T]) Len() int {
	return len(l.items)
}

func (l *List[T]) Cap() int {
	return l.capacity
}

// Items returns a copy of the content in insertion order.
func (l *List[T]) Items() []T {
	return append(make([]T, 0, len(l.items)), l.items...)
}

// Update applies fn to the first item matching pred and reports whether one was found.
func (l *List[T]) Update(pred func(T) bool, fn func(*T)) bool {
	for i := range l.items {
		if pred(l.items[i]) {
			fn(&l.items[i])
			return true
		}
	}
	return false
}

func (l *List[T]) Find(pred func(T) bool) (T, bool) {
	for _, it := range l.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (l *List[T]) trim() []T {
	excess := len(l.items) - l.capacity
	if l.capacity <= 0 || excess <= 0 {
		return nil
	}

	// oldest first; ties go to the earlier insertion
	order := make([]int, len(l.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return l.timestamp(l.items[order[i]]) < l.timestamp(l.items[order[j]])
	})

	drop := make(map[int]bool, excess)
	evicted := make([]T, 0, excess)
	for _, idx := range order[:excess] {
		drop[idx] = true
		evicted = append(evicted, l.items[idx])
	}

	out := make([]T, 0, l.capacity)
	for i, it := range l.items {
		if !drop[i] {
			out = append(out, it)
		}
	}
	l.items = out

	return evicted
}
