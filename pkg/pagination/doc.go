// Package pagination provides an accumulator for incremental list loading.
//
// The Accumulator serves both click-driven pagination and scroll-driven
// infinite loading: each RequestPage call fetches the next page window,
// appends the returned items to the accumulated result set, and advances the
// offset. Once the end of the data is reached the accumulator reports
// exhausted and issues no further fetches until Reset.
//
// A page failure leaves the offset and the accumulated items untouched, so
// the caller can retry the same window idempotently while still displaying
// the last good pages.
//
// # Basic Usage
//
//	acc, err := pagination.New(client, pagination.Config{
//		Path:     "/api/products",
//		PageSize: 10,
//	})
//	if err != nil {
//		return err
//	}
//	defer acc.Reset()
//
//	for acc.Snapshot().HasMore {
//		acc.RequestPage(ctx)
//		// ... wait for the update, render acc.Snapshot().Items
//	}
package pagination
