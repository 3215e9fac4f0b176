package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/store"
)

// ExportOptions controls [ExportTiles].
type ExportOptions struct {
	Variant  string
	Limit    int
	Parallel int
	Formats  []datasource.Format
}

// ExportStats counts what ExportTiles wrote.
type ExportStats struct {
	Tiles   int
	Entries int
}

// ExportTiles writes an ego tile for every person and company in st to w,
// then the resolver index. Tiles are built concurrently; the first failure
// cancels the rest.
func ExportTiles(ctx context.Context, st *store.Store, w datasource.TileWriter, opts ExportOptions) (ExportStats, error) {
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []datasource.Format{datasource.Binary, datasource.JSON}
	}

	people, err := st.People(ctx)
	if err != nil {
		return ExportStats{}, fmt.Errorf("list people: %w", err)
	}
	companies, err := st.Companies(ctx)
	if err != nil {
		return ExportStats{}, fmt.Errorf("list companies: %w", err)
	}

	index := datasource.NewIndex()
	keys := make([]datasource.Key, 0, len(people)+len(companies))
	for _, p := range people {
		handle := ""
		if len(p.Handles) > 0 {
			handle = p.Handles[0]
		}
		index.AddPerson(p.ID, handle, p.Name)
		keys = append(keys, datasource.Key{Kind: datasource.Person, ID: p.ID})
	}
	for _, c := range companies {
		index.AddCompany(c.ID, c.Name)
		keys = append(keys, datasource.Key{Kind: datasource.Company, ID: c.ID})
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallel)
	for _, key := range keys {
		g.Go(func() error {
			ego, err := st.Ego(gctx, string(key.Kind), key.ID, opts.Variant, opts.Limit)
			if err != nil {
				return err
			}
			for _, f := range opts.Formats {
				data, err := EncodeEgo(ego, egoFormat(f))
				if err != nil {
					return fmt.Errorf("encode %s: %w", key, err)
				}
				if err := w.PutTile(gctx, key, f, data); err != nil {
					return fmt.Errorf("write %s: %w", key.TilePath(f), err)
				}
				written.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportStats{Tiles: int(written.Load())}, err
	}

	data, err := index.Marshal()
	if err != nil {
		return ExportStats{}, err
	}
	if err := w.PutIndex(ctx, data); err != nil {
		return ExportStats{}, fmt.Errorf("write index: %w", err)
	}
	return ExportStats{Tiles: int(written.Load()), Entries: index.Len()}, nil
}

func egoFormat(f datasource.Format) string {
	if f == datasource.JSON {
		return FormatJSON
	}
	return FormatBinary
}
