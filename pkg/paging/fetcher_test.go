package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeList is a minimal DisplayList that records every call.
type fakeList struct {
	mu      sync.Mutex
	records []Record
	total   int
	changes [][2]int
}

func (l *fakeList) Append(records ...Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
}

func (l *fakeList) CurrentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *fakeList) NotifyRangeChanged(start, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, [2]int{start, count})
}

func (l *fakeList) SetTotalCount(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = total
}

// statusLog collects status messages.
type statusLog struct {
	mu   sync.Mutex
	msgs []StatusMessage
}

func (s *statusLog) Status(msg StatusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *statusLog) all() []StatusMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// sliceSource serves pages from a fixed slice.
type sliceSource struct {
	records []Record
}

func newSliceSource(n int) *sliceSource {
	s := &sliceSource{}
	for i := 0; i < n; i++ {
		s.records = append(s.records, Record{
			ID:          fmt.Sprintf("img-%02d", i),
			DisplayName: fmt.Sprintf("image%02d.jpg", i),
		})
	}
	return s
}

func (s *sliceSource) FetchPage(ctx context.Context, req PageRequest) (*FetchResult, error) {
	start := req.Offset
	if start > len(s.records) {
		start = len(s.records)
	}
	end := start + req.Limit
	if end > len(s.records) {
		end = len(s.records)
	}
	return &FetchResult{Records: s.records[start:end], TotalCount: len(s.records)}, nil
}

// gatedSource blocks every call until the test replies to it.
type gatedSource struct {
	calls chan *gatedCall
}

type gatedCall struct {
	ctx   context.Context
	req   PageRequest
	reply chan gatedReply
}

type gatedReply struct {
	result *FetchResult
	err    error
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(chan *gatedCall, 16)}
}

func (s *gatedSource) FetchPage(ctx context.Context, req PageRequest) (*FetchResult, error) {
	c := &gatedCall{ctx: ctx, req: req, reply: make(chan gatedReply, 1)}
	s.calls <- c
	r := <-c.reply
	return r.result, r.err
}

func (s *gatedSource) next(t *testing.T) *gatedCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for data source call")
		return nil
	}
}

func (c *gatedCall) respond(result *FetchResult, err error) {
	c.reply <- gatedReply{result: result, err: err}
}

func records(prefix string, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{ID: fmt.Sprintf("%s%d", prefix, i)}
	}
	return out
}

func newTestFetcher(t *testing.T, source DataSource, limit int) (*Fetcher, *fakeList, *statusLog) {
	t.Helper()
	list := &fakeList{}
	status := &statusLog{}
	f, err := NewFetcher(source, list, status, Config{Limit: limit, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, list, status
}

func TestNewFetcher_Validation(t *testing.T) {
	source := newSliceSource(1)

	tests := []struct {
		name    string
		source  DataSource
		list    DisplayList
		config  Config
		wantErr bool
	}{
		{name: "defaults", source: source, list: &fakeList{}, config: Config{}},
		{name: "explicit", source: source, list: &fakeList{}, config: Config{Limit: 25, Timeout: time.Second}},
		{name: "nil source", source: nil, list: &fakeList{}, config: DefaultConfig(), wantErr: true},
		{name: "nil list", source: source, list: nil, config: DefaultConfig(), wantErr: true},
		{name: "negative limit", source: source, list: &fakeList{}, config: Config{Limit: -1}, wantErr: true},
		{name: "max limit", source: source, list: &fakeList{}, config: Config{Limit: MaxLimit}},
		{name: "limit above max", source: source, list: &fakeList{}, config: Config{Limit: MaxLimit + 1}, wantErr: true},
		{name: "negative timeout", source: source, list: &fakeList{}, config: Config{Limit: 10, Timeout: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFetcher(tt.source, tt.list, nil, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Limit() <= 0 {
				t.Errorf("Limit() = %d, want > 0", f.Limit())
			}
		})
	}
}

func TestNewFetcher_DefaultLimit(t *testing.T) {
	f, err := NewFetcher(newSliceSource(0), &fakeList{}, nil, Config{})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if f.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", f.Limit(), DefaultLimit)
	}
}

func TestFetcher_Scenarios(t *testing.T) {
	ctx := context.Background()
	f, list, status := newTestFetcher(t, newSliceSource(25), 10)

	// Scenario 1: initial load.
	req, err := f.TriggerInitialLoad(ctx)
	if err != nil {
		t.Fatalf("TriggerInitialLoad: %v", err)
	}
	if req.Offset != 0 || req.Limit != 10 || req.PageID != 0 {
		t.Errorf("initial request = %+v", req)
	}
	f.Wait()

	state := f.State()
	if state.Offset != 10 || state.FetchedCount != 10 || state.TotalCount != 25 || state.Loading {
		t.Fatalf("after scenario 1 state = %+v", state)
	}
	if list.total != 25 {
		t.Errorf("list total = %d, want 25", list.total)
	}
	msgs := status.all()
	if len(msgs) != 1 || msgs[0].String() != "Fetched images 1–10 of 25" {
		t.Fatalf("scenario 1 messages = %v", msgs)
	}

	// Scenario 2: row 9 is still fetched data, row 10 is the first placeholder.
	if _, triggered, err := f.OnScrollPositionChanged(ctx, 9); err != nil || triggered {
		t.Fatalf("scroll(9) triggered=%v err=%v, want no request", triggered, err)
	}
	req, triggered, err := f.OnScrollPositionChanged(ctx, 10)
	if err != nil || !triggered {
		t.Fatalf("scroll(10) triggered=%v err=%v, want request", triggered, err)
	}
	if req.Offset != 10 || req.PageID != 1 {
		t.Errorf("scroll(10) request = %+v", req)
	}
	f.Wait()

	if got := f.State().Offset; got != 20 {
		t.Fatalf("after scenario 2 offset = %d, want 20", got)
	}
	if msgs := status.all(); msgs[len(msgs)-1].String() != "Fetched images 11–20 of 25" {
		t.Errorf("scenario 2 message = %v", msgs[len(msgs)-1])
	}

	// Scenario 3: partial last page, then empty pages.
	if _, triggered, _ := f.OnScrollPositionChanged(ctx, 20); !triggered {
		t.Fatal("scroll(20) should trigger")
	}
	f.Wait()

	state = f.State()
	if state.Offset != 25 || state.FetchedCount != 25 {
		t.Fatalf("after scenario 3 state = %+v", state)
	}
	if msgs := status.all(); len(msgs) != 3 || msgs[2] != (StatusMessage{First: 21, Last: 25, Total: 25}) {
		t.Fatalf("scenario 3 messages = %v", msgs)
	}

	if _, triggered, _ := f.OnScrollPositionChanged(ctx, 25); !triggered {
		t.Fatal("scroll(25) should trigger")
	}
	f.Wait()

	if got := f.State(); got.Offset != 25 || got.FetchedCount != 25 || got.Loading {
		t.Errorf("after empty page state = %+v", got)
	}
	if got := len(status.all()); got != 3 {
		t.Errorf("empty page emitted a message, total messages = %d", got)
	}
	if got := len(list.changes); got != 3 {
		t.Errorf("range notifications = %d, want 3", got)
	}
}

func TestFetcher_EmptyResultIsNoOp(t *testing.T) {
	source := newGatedSource()
	f, list, status := newTestFetcher(t, source, 10)

	req, err := f.TriggerInitialLoad(context.Background())
	if err != nil {
		t.Fatalf("TriggerInitialLoad: %v", err)
	}
	call := source.next(t)

	if !f.OnFetchResult(req, &FetchResult{TotalCount: 0}) {
		t.Fatal("current request result should be accepted")
	}

	// The load goroutine's late completion belongs to a finished request.
	call.respond(&FetchResult{Records: records("late", 3), TotalCount: 3}, nil)
	f.Wait()

	state := f.State()
	if state.Offset != 0 || state.FetchedCount != 0 || state.Loading {
		t.Errorf("state = %+v, want untouched and idle", state)
	}
	if len(list.changes) != 0 {
		t.Errorf("notifications = %v, want none", list.changes)
	}
	if len(status.all()) != 0 {
		t.Errorf("messages = %v, want none", status.all())
	}
}

func TestFetcher_NilResultIsNoOp(t *testing.T) {
	source := newGatedSource()
	f, list, status := newTestFetcher(t, source, 10)

	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatalf("TriggerInitialLoad: %v", err)
	}
	source.next(t).respond(nil, nil)
	f.Wait()

	state := f.State()
	if state.Offset != 0 || state.TotalCount != 0 || state.Loading {
		t.Errorf("state = %+v", state)
	}
	if len(list.records) != 0 || len(status.all()) != 0 {
		t.Error("nil result must not touch the list or emit messages")
	}
}

func TestFetcher_SourceErrorIsNoOp(t *testing.T) {
	source := newGatedSource()
	f, list, status := newTestFetcher(t, source, 10)

	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatalf("TriggerInitialLoad: %v", err)
	}
	source.next(t).respond(nil, errors.New("query failed"))
	f.Wait()

	state := f.State()
	if state.Offset != 0 || state.Loading {
		t.Errorf("state = %+v, want offset 0 and idle", state)
	}
	if len(list.records) != 0 || len(status.all()) != 0 {
		t.Error("failed fetch must not touch the list or emit messages")
	}

	// A later trigger recovers.
	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatalf("TriggerInitialLoad: %v", err)
	}
	source.next(t).respond(&FetchResult{Records: records("r", 4), TotalCount: 4}, nil)
	f.Wait()

	if got := f.State().Offset; got != 4 {
		t.Errorf("offset after retry trigger = %d, want 4", got)
	}
}

func TestFetcher_StaleResultDiscarded(t *testing.T) {
	source := newGatedSource()
	f, list, status := newTestFetcher(t, source, 10)
	ctx := context.Background()

	reqA, err := f.TriggerInitialLoad(ctx)
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	callA := source.next(t)

	reqB, err := f.TriggerInitialLoad(ctx)
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	callB := source.next(t)

	if reqB.Generation <= reqA.Generation {
		t.Fatalf("generations not increasing: A=%d B=%d", reqA.Generation, reqB.Generation)
	}

	select {
	case <-callA.ctx.Done():
	case <-time.After(time.Second):
		t.Error("superseded request context was not cancelled")
	}

	// Complete out of order: B first, then A.
	callB.respond(&FetchResult{Records: records("b", 3), TotalCount: 10}, nil)
	callA.respond(&FetchResult{Records: records("a", 10), TotalCount: 10}, nil)
	f.Wait()

	if f.OnFetchResult(reqA, &FetchResult{Records: records("a", 10), TotalCount: 10}) {
		t.Error("stale result reported as accepted")
	}

	state := f.State()
	if state.Offset != 3 || state.FetchedCount != 3 {
		t.Fatalf("state = %+v, want only B applied", state)
	}
	for i, rec := range list.records {
		if want := fmt.Sprintf("b%d", i); rec.ID != want {
			t.Errorf("record %d = %q, want %q", i, rec.ID, want)
		}
	}
	if msgs := status.all(); len(msgs) != 1 || msgs[0] != (StatusMessage{First: 1, Last: 3, Total: 10}) {
		t.Errorf("messages = %v", msgs)
	}
}

func TestFetcher_StaleResultBeforeCurrentCompletes(t *testing.T) {
	source := newGatedSource()
	f, _, _ := newTestFetcher(t, source, 10)
	ctx := context.Background()

	if _, err := f.TriggerInitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	callA := source.next(t)
	if _, err := f.TriggerInitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	callB := source.next(t)

	// A arrives while B is still outstanding.
	callA.respond(&FetchResult{Records: records("a", 10), TotalCount: 20}, nil)

	time.Sleep(100 * time.Millisecond)
	if state := f.State(); state.Offset != 0 || !state.Loading {
		t.Fatalf("stale completion mutated state: %+v", state)
	}

	callB.respond(&FetchResult{Records: records("b", 10), TotalCount: 20}, nil)
	f.Wait()

	if got := f.State().Offset; got != 10 {
		t.Errorf("offset = %d, want 10", got)
	}
}

func TestFetcher_ScrollDeduplicatesSamePage(t *testing.T) {
	source := newGatedSource()
	f, _, _ := newTestFetcher(t, source, 10)
	ctx := context.Background()

	first, triggered, err := f.OnScrollPositionChanged(ctx, 0)
	if err != nil || !triggered {
		t.Fatalf("scroll(0) triggered=%v err=%v", triggered, err)
	}
	callFirst := source.next(t)

	same, triggered, err := f.OnScrollPositionChanged(ctx, 7)
	if err != nil || triggered {
		t.Fatalf("scroll(7) triggered=%v err=%v, want dedup", triggered, err)
	}
	if same.Generation != first.Generation {
		t.Errorf("dedup returned generation %d, want %d", same.Generation, first.Generation)
	}

	next, triggered, err := f.OnScrollPositionChanged(ctx, 12)
	if err != nil || !triggered {
		t.Fatalf("scroll(12) triggered=%v err=%v", triggered, err)
	}
	if next.PageID != 1 || next.Offset != 0 {
		t.Errorf("scroll(12) request = %+v, want page 1 at running offset 0", next)
	}
	callNext := source.next(t)

	callFirst.respond(&FetchResult{Records: records("x", 10), TotalCount: 30}, nil)
	callNext.respond(&FetchResult{Records: records("y", 10), TotalCount: 30}, nil)
	f.Wait()

	if state := f.State(); state.Offset != 10 || state.Generation != next.Generation {
		t.Errorf("state = %+v", state)
	}
}

func TestFetcher_RequestUsesRunningOffset(t *testing.T) {
	source := newGatedSource()
	f, _, _ := newTestFetcher(t, source, 10)
	ctx := context.Background()

	if _, err := f.TriggerInitialLoad(ctx); err != nil {
		t.Fatal(err)
	}
	source.next(t).respond(&FetchResult{Records: records("p", 5), TotalCount: 30}, nil)
	f.Wait()

	req, triggered, err := f.OnScrollPositionChanged(ctx, 5)
	if err != nil || !triggered {
		t.Fatalf("scroll(5) triggered=%v err=%v", triggered, err)
	}
	if req.Offset != 5 || req.PageID != 0 {
		t.Errorf("request = %+v, want offset 5 page 0", req)
	}
	source.next(t).respond(&FetchResult{Records: records("q", 10), TotalCount: 30}, nil)
	f.Wait()
}

func TestFetcher_MonotonicOffset(t *testing.T) {
	sizes := []int{3, 0, 7, 1, 10, 0, 4}
	source := newGatedSource()
	f, list, _ := newTestFetcher(t, source, 10)
	ctx := context.Background()

	var want []Record
	prev := 0
	for i, n := range sizes {
		if _, err := f.TriggerInitialLoad(ctx); err != nil {
			t.Fatal(err)
		}
		batch := records(fmt.Sprintf("r%d-", i), n)
		source.next(t).respond(&FetchResult{Records: batch, TotalCount: 100}, nil)
		f.Wait()
		want = append(want, batch...)

		offset := f.State().Offset
		if offset != prev+n {
			t.Fatalf("step %d: offset = %d, want %d", i, offset, prev+n)
		}
		prev = offset
	}

	if len(list.records) != len(want) {
		t.Fatalf("list has %d records, want %d", len(list.records), len(want))
	}
	for i := range want {
		if list.records[i].ID != want[i].ID {
			t.Errorf("record %d = %q, want %q", i, list.records[i].ID, want[i].ID)
		}
	}
}

func TestFetcher_WaitConcurrentWithTriggers(t *testing.T) {
	f, _, _ := newTestFetcher(t, newSliceSource(1000), 10)
	ctx := context.Background()

	var waiters sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			for {
				select {
				case <-stop:
					return
				default:
					f.Wait()
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if _, err := f.TriggerInitialLoad(ctx); err != nil {
			t.Fatalf("TriggerInitialLoad #%d: %v", i, err)
		}
	}
	close(stop)
	waiters.Wait()
	f.Wait()

	if state := f.State(); state.Loading {
		t.Errorf("state = %+v, want idle after Wait", state)
	}
}

func TestFetcher_WaitBlocksUntilLoadReturns(t *testing.T) {
	source := newGatedSource()
	f, _, _ := newTestFetcher(t, source, 10)

	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatal(err)
	}
	call := source.next(t)

	waited := make(chan struct{})
	go func() {
		f.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a load was outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	call.respond(&FetchResult{Records: records("w", 2), TotalCount: 2}, nil)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the load finished")
	}
}

func TestFetcher_NegativeIndex(t *testing.T) {
	f, _, _ := newTestFetcher(t, newSliceSource(5), 10)

	_, triggered, err := f.OnScrollPositionChanged(context.Background(), -1)
	if !errors.Is(err, ErrNegativeIndex) {
		t.Errorf("err = %v, want ErrNegativeIndex", err)
	}
	if triggered {
		t.Error("negative index must not trigger")
	}
}

func TestFetcher_Close(t *testing.T) {
	source := newGatedSource()
	f, _, _ := newTestFetcher(t, source, 10)

	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatal(err)
	}
	call := source.next(t)

	done := make(chan struct{})
	go func() {
		f.Close()
		close(done)
	}()

	select {
	case <-call.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the outstanding request")
	}
	call.respond(nil, call.ctx.Err())
	<-done

	if _, err := f.TriggerInitialLoad(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("trigger after close err = %v, want ErrClosed", err)
	}
	if state := f.State(); state.Loading {
		t.Error("closed fetcher still loading")
	}
}

func TestFetcher_NilStatusSink(t *testing.T) {
	f, err := NewFetcher(newSliceSource(3), &fakeList{}, nil, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.TriggerInitialLoad(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.Wait()

	if got := f.State().Offset; got != 3 {
		t.Errorf("offset = %d, want 3", got)
	}
}

func TestStatusMessage_String(t *testing.T) {
	msg := StatusMessage{First: 11, Last: 20, Total: 25}
	if got, want := msg.String(), "Fetched images 11–20 of 25"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDataSourceFunc(t *testing.T) {
	var got PageRequest
	src := DataSourceFunc(func(ctx context.Context, req PageRequest) (*FetchResult, error) {
		got = req
		return &FetchResult{TotalCount: 1}, nil
	})

	res, err := src.FetchPage(context.Background(), PageRequest{Offset: 4, Limit: 2})
	if err != nil || res.TotalCount != 1 {
		t.Fatalf("FetchPage = %+v, %v", res, err)
	}
	if got.Offset != 4 || got.Limit != 2 {
		t.Errorf("request = %+v", got)
	}
}
