// Package store is the analytical store behind the ego endpoint: persons,
// companies and the stints linking them, kept in SQLite through the
// pure-Go modernc.org/sqlite driver.
//
// [Store.Ego] returns a focal entity and its neighbors ranked by shared
// stint count. Layout and encoding happen elsewhere; this package only
// answers "who is connected to whom, and how strongly".
//
//	st, err := store.Open(ctx, "graph.db")
//	ego, err := st.Ego(ctx, store.KindPerson, "42", store.VariantAll, 1500)
package store
