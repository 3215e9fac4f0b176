package pipeline

import (
	"context"

	"github.com/matzehuels/grandgraph/pkg/datasource"
	"github.com/matzehuels/grandgraph/pkg/store"
)

// OriginStore is the Result origin of graphs built from the analytical
// store.
const OriginStore = "store"

// StoreLoader is a Loader that builds ego graphs straight from the
// analytical store instead of going through the remote fallback chain.
// Queries are canonical keys or profile handles.
type StoreLoader struct {
	Store   *store.Store
	Variant string
	Limit   int
}

// Load implements Loader.
func (l *StoreLoader) Load(ctx context.Context, query string) (*datasource.Result, error) {
	key, ok := datasource.ParseKey(query)
	if !ok {
		id, err := l.Store.ResolveHandle(ctx, query)
		if err != nil {
			return nil, err
		}
		key = datasource.Key{Kind: datasource.Person, ID: id}
	}
	ego, err := l.Store.Ego(ctx, string(key.Kind), key.ID, l.Variant, l.Limit)
	if err != nil {
		return nil, err
	}
	return &datasource.Result{Query: query, Key: key, Origin: OriginStore, Graph: BuildEgo(ego)}, nil
}
