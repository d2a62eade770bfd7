// Package docdir serves the image files below a directory tree as a paged data source.
package docdir

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// imageExtensions lists the file suffixes treated as images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// IsImage reports whether name has an image file extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}

// Source is a snapshot of the image files under a directory, ordered by relative path.
type Source struct {
	fsys   fs.FS
	root   string
	logger zerolog.Logger

	mu      sync.RWMutex
	records []paging.Record
}

// New scans the directory at root.
func New(root string) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return NewFS(os.DirFS(abs), abs)
}

// NewFS scans fsys. root is joined with each relative path to build Record.Path.
func NewFS(fsys fs.FS, root string) (*Source, error) {
	s := &Source{
		fsys:   fsys,
		root:   root,
		logger: log.With().Str("component", "docdir").Str("root", root).Logger(),
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh rescans the tree. Pages fetched afterwards reflect the new snapshot.
func (s *Source) Refresh() error {
	var records []paging.Record

	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsImage(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		records = append(records, paging.Record{
			ID:          p,
			Path:        filepath.Join(s.root, filepath.FromSlash(p)),
			DisplayName: d.Name(),
			Size:        info.Size(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.root, err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Debug().Int("images", len(records)).Msg("Directory scanned")
	return nil
}

// Len returns the number of images in the current snapshot.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every record in the snapshot.
func (s *Source) All() []paging.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]paging.Record, len(s.records))
	copy(out, s.records)
	return out
}

// FetchPage implements paging.DataSource.
func (s *Source) FetchPage(ctx context.Context, req paging.PageRequest) (*paging.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Offset < 0 || req.Limit <= 0 {
		return nil, fmt.Errorf("invalid page request: offset=%d limit=%d", req.Offset, req.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.records)
	start := min(req.Offset, total)
	end := start + min(req.Limit, total-start)

	page := make([]paging.Record, end-start)
	copy(page, s.records[start:end])

	return &paging.FetchResult{Records: page, TotalCount: total}, nil
}

var _ paging.DataSource = (*Source)(nil)
