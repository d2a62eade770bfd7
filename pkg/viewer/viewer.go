// Package viewer is a headless scrolling viewport over a display.List.
// It stands in for the image list screen: a one-shot load button and a
// scroll position that is reported to the fetcher after every move.
package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/display"
	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// ErrLoadHidden is returned when the load button is pressed a second time.
var ErrLoadHidden = errors.New("load button is hidden")

// Trigger is the part of paging.Fetcher the viewer drives.
type Trigger interface {
	TriggerInitialLoad(ctx context.Context) (paging.PageRequest, error)
	OnScrollPositionChanged(ctx context.Context, lastVisibleIndex int) (paging.PageRequest, bool, error)
}

// Row is one visible row. Loaded is false for placeholder rows whose page has not arrived.
type Row struct {
	Index  int
	Record paging.Record
	Loaded bool
}

// Viewer tracks the top row of a viewport of fixed height.
type Viewer struct {
	trigger Trigger
	list    *display.List
	rows    int
	logger  zerolog.Logger

	mu          sync.Mutex
	top         int
	loadVisible bool
}

// New creates a viewer showing rows rows at a time.
func New(trigger Trigger, list *display.List, rows int) (*Viewer, error) {
	if trigger == nil {
		return nil, errors.New("trigger cannot be nil")
	}
	if list == nil {
		return nil, errors.New("list cannot be nil")
	}
	if rows < 1 {
		return nil, errors.New("viewport must show at least one row")
	}
	return &Viewer{
		trigger:     trigger,
		list:        list,
		rows:        rows,
		loadVisible: true,
		logger:      log.With().Str("component", "viewer").Logger(),
	}, nil
}

// Rows returns the viewport height.
func (v *Viewer) Rows() int {
	return v.rows
}

// LoadVisible reports whether the load button is still shown.
func (v *Viewer) LoadVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadVisible
}

// PressLoad hides the load button and requests the first page.
func (v *Viewer) PressLoad(ctx context.Context) (paging.PageRequest, error) {
	v.mu.Lock()
	if !v.loadVisible {
		v.mu.Unlock()
		return paging.PageRequest{}, ErrLoadHidden
	}
	v.loadVisible = false
	v.mu.Unlock()

	v.logger.Debug().Msg("Load pressed")
	return v.trigger.TriggerInitialLoad(ctx)
}

// Top returns the index of the first visible row.
func (v *Viewer) Top() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top
}

// LastVisible returns the index of the last visible row, or -1 when the list is empty.
func (v *Viewer) LastVisible() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastVisibleLocked(v.list.Len())
}

func (v *Viewer) lastVisibleLocked(length int) int {
	if length == 0 {
		return -1
	}
	return min(v.top+v.rows, length) - 1
}

// ScrollTo moves the first visible row to top, clamped to the list, and
// reports the new last visible row to the fetcher. It returns whether a
// page request was issued.
func (v *Viewer) ScrollTo(ctx context.Context, top int) (bool, error) {
	v.mu.Lock()
	length := v.list.Len()
	maxTop := max(0, length-v.rows)
	v.top = min(max(top, 0), maxTop)
	last := v.lastVisibleLocked(length)
	v.mu.Unlock()

	if last < 0 {
		return false, nil
	}

	req, issued, err := v.trigger.OnScrollPositionChanged(ctx, last)
	if err != nil {
		return false, err
	}
	if issued {
		v.logger.Debug().
			Int("last_visible", last).
			Int("page_id", req.PageID).
			Int("offset", req.Offset).
			Msg("Scroll requested page")
	}
	return issued, nil
}

// ScrollBy moves the viewport by delta rows.
func (v *Viewer) ScrollBy(ctx context.Context, delta int) (bool, error) {
	return v.ScrollTo(ctx, v.Top()+delta)
}

// Visible returns the rows currently in the viewport.
func (v *Viewer) Visible() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	last := v.lastVisibleLocked(v.list.Len())
	if last < 0 {
		return nil
	}
	out := make([]Row, 0, last-v.top+1)
	for i := v.top; i <= last; i++ {
		rec, ok := v.list.At(i)
		out = append(out, Row{Index: i, Record: rec, Loaded: ok})
	}
	return out
}
