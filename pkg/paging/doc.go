// Package paging provides the incremental page fetcher that backs a scrolling image list.
//
// The fetcher keeps a running offset into a paginated DataSource and requests one bounded page at a
// time. Pages are requested when the list first becomes visible (TriggerInitialLoad) and whenever the
// last visible row reaches the end of the rows fetched so far (OnScrollPositionChanged). Results are
// appended to a DisplayList in request order.
//
// Example usage:
//
//	list := display.NewList()
//	fetcher, err := paging.NewFetcher(source, list, paging.StatusFunc(func(m paging.StatusMessage) {
//		fmt.Println(m)
//	}), paging.DefaultConfig())
//	fetcher.TriggerInitialLoad(ctx)
//	fetcher.Wait()
//
// The fetcher:
//   - Calls the DataSource on a background goroutine with a per-request timeout
//   - Keeps at most one request outstanding; a newer request supersedes and cancels the older one
//   - Discards results of superseded requests by comparing generations
//   - Treats source errors and empty pages as silent no-ops (no retry)
//   - Serializes every state and list mutation behind one mutex
package paging
