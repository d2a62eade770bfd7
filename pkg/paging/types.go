package paging

import (
	"context"
	"fmt"
)

// Record is a single image entry returned by a DataSource.
// The fetcher does not interpret its fields.
type Record struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	Size        int64  `json:"size"`
}

// PageRequest is a bounded query against a DataSource.
type PageRequest struct {
	// Offset is the number of records already applied; the first record to return.
	Offset int
	// Limit is the maximum number of records to return. Fixed per fetcher.
	Limit int
	// PageID identifies the scroll page that triggered the request (0 for the initial load).
	// It is used to deduplicate restarts, never as an offset.
	PageID int
	// Generation keys the request; completions for older generations are discarded.
	Generation uint64
}

// FetchResult is one page of records plus the total size of the collection at query time.
type FetchResult struct {
	Records    []Record `json:"records"`
	TotalCount int      `json:"total_count"`
}

// DataSource returns a page of records for an offset and limit.
// A nil result with a nil error means the query produced nothing usable.
type DataSource interface {
	FetchPage(ctx context.Context, req PageRequest) (*FetchResult, error)
}

// DataSourceFunc adapts a function to a DataSource.
type DataSourceFunc func(ctx context.Context, req PageRequest) (*FetchResult, error)

// FetchPage calls f.
func (f DataSourceFunc) FetchPage(ctx context.Context, req PageRequest) (*FetchResult, error) {
	return f(ctx, req)
}

// DisplayList is the ordered, UI-owned collection the fetcher appends to.
type DisplayList interface {
	Append(records ...Record)
	CurrentCount() int
	NotifyRangeChanged(start, count int)
}

// TotalSetter is implemented by display lists that render placeholders for rows not fetched yet.
type TotalSetter interface {
	SetTotalCount(total int)
}

// StatusMessage reports the inclusive 1-based range fetched by the latest page.
type StatusMessage struct {
	First int
	Last  int
	Total int
}

// String renders the message shown to the user.
func (m StatusMessage) String() string {
	return fmt.Sprintf("Fetched images %d–%d of %d", m.First, m.Last, m.Total)
}

// StatusSink receives status messages after each accepted, non-empty page.
type StatusSink interface {
	Status(msg StatusMessage)
}

// StatusFunc adapts a function to a StatusSink.
type StatusFunc func(msg StatusMessage)

// Status calls f.
func (f StatusFunc) Status(msg StatusMessage) {
	f(msg)
}

// State is a read-only snapshot of the fetcher.
type State struct {
	Offset       int
	FetchedCount int
	TotalCount   int
	Loading      bool
	PageID       int
	Generation   uint64
}
