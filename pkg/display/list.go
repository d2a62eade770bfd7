// Package display provides the in-memory list model that a scrolling image view renders.
package display

import (
	"sync"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// Range is a contiguous block of rows reported as changed.
type Range struct {
	Start int
	Count int
}

// List holds the fetched records plus the total collection size.
// Rows at or past FetchedCount are placeholders until their page arrives.
type List struct {
	mu       sync.RWMutex
	records  []paging.Record
	total    int
	onChange func(Range)
	changes  []Range
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// OnRangeChanged registers a callback invoked for every NotifyRangeChanged call.
// The callback runs synchronously and must not call back into the list's writers.
func (l *List) OnRangeChanged(fn func(Range)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Append adds records at the end, preserving order.
func (l *List) Append(records ...paging.Record) {
	if len(records) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
}

// CurrentCount returns the number of fetched records.
func (l *List) CurrentCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// SetTotalCount records the size of the full collection.
func (l *List) SetTotalCount(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
}

// TotalCount returns the last reported collection size.
func (l *List) TotalCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Len returns the number of rows to render, placeholders included.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.total > len(l.records) {
		return l.total
	}
	return len(l.records)
}

// NotifyRangeChanged records that rows [start, start+count) changed.
func (l *List) NotifyRangeChanged(start, count int) {
	r := Range{Start: start, Count: count}

	l.mu.Lock()
	l.changes = append(l.changes, r)
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(r)
	}
}

// Changes returns every range reported so far, oldest first.
func (l *List) Changes() []Range {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Range, len(l.changes))
	copy(out, l.changes)
	return out
}

// At returns the record at index and whether it has been fetched.
func (l *List) At(index int) (paging.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.records) {
		return paging.Record{}, false
	}
	return l.records[index], true
}

// Records returns a copy of the fetched records.
func (l *List) Records() []paging.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]paging.Record, len(l.records))
	copy(out, l.records)
	return out
}

var (
	_ paging.DisplayList = (*List)(nil)
	_ paging.TotalSetter = (*List)(nil)
)
