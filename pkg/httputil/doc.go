// Package httputil holds the HTTP plumbing of the data source: the bearer
// transport, retries for transient failures and an on-disk JSON [Memo].
//
// Only fetches outside the ego fallback chain retry. A failed chain stage
// is terminal for that attempt and the chain advances.
//
//	hc := httputil.NewClient(cfg.API.Bearer)
//	memo, _ := httputil.NewMemo("", 24*time.Hour)
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return fetchIndex(ctx, hc)
//	})
package httputil
