// Package paging provides incremental page fetching for scrolling image lists
package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLimit is the number of records fetched in a single query.
	DefaultLimit = 10

	// MaxLimit is the largest page size a fetcher or provider accepts.
	MaxLimit = 100

	// DefaultTimeout bounds a single data source call.
	DefaultTimeout = 15 * time.Second
)

var (
	// ErrNegativeIndex is returned for scroll positions below zero.
	ErrNegativeIndex = errors.New("last visible index must be >= 0")

	// ErrClosed is returned when triggering a closed fetcher.
	ErrClosed = errors.New("fetcher closed")
)

var validate = validator.New()

// Config holds fetcher configuration
type Config struct {
	// Limit is the page size. It stays fixed for the fetcher's lifetime.
	Limit int `validate:"min=1,max=100"`
	// Timeout per page fetch
	Timeout time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		Limit:   DefaultLimit,
		Timeout: DefaultTimeout,
	}
}

// Fetcher tracks the read offset into a DataSource and applies fetched pages to a DisplayList.
// All methods are safe for concurrent use; mutations are applied one at a time.
type Fetcher struct {
	source DataSource
	list   DisplayList
	status StatusSink
	config Config
	logger zerolog.Logger

	mu         sync.Mutex
	offset     int
	total      int
	generation uint64
	pending    *PageRequest
	cancel     context.CancelFunc
	closed     bool

	// inflight counts started loads that have not returned; idle is signalled when it drops to zero.
	inflight int
	idle     *sync.Cond
}

// NewFetcher creates a fetcher with its offset at zero.
// status may be nil, in which case messages are only logged.
func NewFetcher(source DataSource, list DisplayList, status StatusSink, config Config) (*Fetcher, error) {
	if source == nil {
		return nil, errors.New("data source cannot be nil")
	}
	if list == nil {
		return nil, errors.New("display list cannot be nil")
	}
	if config.Limit == 0 {
		config.Limit = DefaultLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid fetcher config: %w", err)
	}

	f := &Fetcher{
		source: source,
		list:   list,
		status: status,
		config: config,
		logger: log.With().Str("component", "paging-fetcher").Logger(),
	}
	f.idle = sync.NewCond(&f.mu)
	return f, nil
}

// Limit returns the fixed page size.
func (f *Fetcher) Limit() int {
	return f.config.Limit
}

// TriggerInitialLoad requests the first page. Calling it again before the
// outstanding request completes supersedes that request.
func (f *Fetcher) TriggerInitialLoad(ctx context.Context) (PageRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.issueLocked(ctx, 0, "initial")
}

// OnScrollPositionChanged requests the next page once the last visible row
// reaches the end of the fetched rows. It reports whether a request was issued.
//
// A request already outstanding for the same page id is left running.
func (f *Fetcher) OnScrollPositionChanged(ctx context.Context, lastVisibleIndex int) (PageRequest, bool, error) {
	if lastVisibleIndex < 0 {
		return PageRequest{}, false, fmt.Errorf("%w: got %d", ErrNegativeIndex, lastVisibleIndex)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fetched := f.list.CurrentCount()
	if lastVisibleIndex < fetched {
		return PageRequest{}, false, nil
	}

	pageID := lastVisibleIndex / f.config.Limit
	if f.pending != nil && f.pending.PageID == pageID {
		f.logger.Debug().
			Int("page_id", pageID).
			Uint64("generation", f.pending.Generation).
			Msg("Page already loading")
		return *f.pending, false, nil
	}

	f.logger.Debug().
		Int("last_visible", lastVisibleIndex).
		Int("fetched", fetched).
		Int("page_id", pageID).
		Msg("Fetch new images")

	req, err := f.issueLocked(ctx, pageID, "scroll")
	if err != nil {
		return PageRequest{}, false, err
	}
	return req, true, nil
}

// issueLocked supersedes any outstanding request and starts a load at the running offset.
func (f *Fetcher) issueLocked(ctx context.Context, pageID int, trigger string) (PageRequest, error) {
	if f.closed {
		return PageRequest{}, ErrClosed
	}

	if f.cancel != nil {
		f.cancel()
		f.logger.Debug().
			Uint64("generation", f.generation).
			Msg("Superseding outstanding request")
	}

	f.generation++
	req := PageRequest{
		Offset:     f.offset,
		Limit:      f.config.Limit,
		PageID:     pageID,
		Generation: f.generation,
	}
	pending := req
	f.pending = &pending

	loadCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	f.cancel = cancel

	pagingRequestsTotal.WithLabelValues(trigger).Inc()

	f.inflight++
	go f.load(loadCtx, cancel, req)

	return req, nil
}

// load runs the data source call off the caller's goroutine.
func (f *Fetcher) load(ctx context.Context, cancel context.CancelFunc, req PageRequest) {
	defer f.done()
	defer cancel()

	start := time.Now()
	result, err := f.source.FetchPage(ctx, req)
	pagingFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		f.fail(req, err)
		return
	}

	f.OnFetchResult(req, result)
}

// fail clears the outstanding request if req is still current. No other state changes.
func (f *Fetcher) fail(req PageRequest, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isCurrentLocked(req) {
		pagingResultsTotal.WithLabelValues("stale").Inc()
		f.logger.Debug().
			Err(err).
			Uint64("generation", req.Generation).
			Msg("Superseded request ended with error")
		return
	}

	f.clearPendingLocked()
	pagingResultsTotal.WithLabelValues("error").Inc()
	f.logger.Warn().
		Err(err).
		Int("offset", req.Offset).
		Int("limit", req.Limit).
		Int("page_id", req.PageID).
		Msg("Page fetch failed")
}

// OnFetchResult applies the result of req. It returns false and leaves all
// state untouched when req has been superseded.
//
// A nil result or an empty page clears the outstanding request without
// advancing the offset or emitting a status message.
func (f *Fetcher) OnFetchResult(req PageRequest, result *FetchResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isCurrentLocked(req) {
		pagingResultsTotal.WithLabelValues("stale").Inc()
		f.logger.Debug().
			Uint64("generation", req.Generation).
			Uint64("current_generation", f.generation).
			Msg("Discarding superseded page result")
		return false
	}
	f.clearPendingLocked()

	if result == nil {
		pagingResultsTotal.WithLabelValues("empty").Inc()
		f.logger.Debug().Int("offset", req.Offset).Msg("Data source returned no result")
		return true
	}

	f.total = result.TotalCount
	if ts, ok := f.list.(TotalSetter); ok {
		ts.SetTotalCount(result.TotalCount)
	}

	count := len(result.Records)
	if count == 0 {
		pagingResultsTotal.WithLabelValues("empty").Inc()
		f.logger.Debug().
			Int("offset", f.offset).
			Int("total_count", f.total).
			Msg("Empty page")
		return true
	}

	before := f.list.CurrentCount()
	f.list.Append(result.Records...)

	first := f.offset + 1
	f.offset += count
	pagingOffset.Set(float64(f.offset))

	if f.offset > f.total {
		f.logger.Warn().
			Int("offset", f.offset).
			Int("total_count", f.total).
			Msg("Data source returned more records than its total count")
	}

	f.list.NotifyRangeChanged(before, count)

	msg := StatusMessage{First: first, Last: f.offset, Total: f.total}
	f.logger.Info().
		Int("records", count).
		Int("offset", f.offset).
		Int("total_count", f.total).
		Int("page_id", req.PageID).
		Msg(msg.String())

	if f.status != nil {
		f.status.Status(msg)
	}

	pagingResultsTotal.WithLabelValues("accepted").Inc()
	return true
}

func (f *Fetcher) isCurrentLocked(req PageRequest) bool {
	return f.pending != nil && req.Generation == f.generation
}

func (f *Fetcher) clearPendingLocked() {
	f.pending = nil
	f.cancel = nil
}

// State returns a snapshot of the fetcher.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := State{
		Offset:       f.offset,
		FetchedCount: f.list.CurrentCount(),
		TotalCount:   f.total,
		Generation:   f.generation,
	}
	if f.pending != nil {
		s.Loading = true
		s.PageID = f.pending.PageID
	}
	return s
}

// done marks one load as returned.
func (f *Fetcher) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	if f.inflight == 0 {
		f.idle.Broadcast()
	}
}

// Wait blocks until every started load has returned. It may be called
// concurrently with triggers; loads started while waiting are waited for too.
func (f *Fetcher) Wait() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.inflight > 0 {
		f.idle.Wait()
	}
}

// Close cancels the outstanding request and waits for in-flight loads.
// Later triggers return ErrClosed.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
	f.clearPendingLocked()
	f.mu.Unlock()

	f.Wait()
	return nil
}
