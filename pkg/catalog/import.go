package catalog

import (
	"context"

	"github.com/Sternrassler/provider-paging/pkg/docdir"
)

// ImportDir catalogues every image in src under a fresh id.
// Images already catalogued by path are skipped. It returns the number imported.
func (c *Catalog) ImportDir(ctx context.Context, src *docdir.Source) (int, error) {
	all := src.All()
	for i := range all {
		all[i].ID = ""
	}

	n, err := c.Insert(ctx, all...)
	if err != nil {
		return 0, err
	}

	c.logger.Info().
		Int("scanned", len(all)).
		Int("imported", n).
		Msg("Directory imported")
	return n, nil
}
