// Package fetch provides a cancellable HTTP client for paginated JSON list
// endpoints.
//
// The client targets endpoints of the shape:
//
//	{"data": [...], "total": 123}
//	{"data": [...], "total_pages": 13}
//
// addressed either with offset/limit or page/per_page query parameters.
// Request URLs are built deterministically (sorted parameters) so that two
// requests for the same logical page are byte-identical.
//
// Cancellation is carried by the context: a request aborted through its
// context settles as ErrCancelled, which is a distinct outcome from a
// transport failure. Non-2xx statuses, network errors, and undecodable
// bodies settle as *TransportError with a classification.
//
// # Basic Usage
//
//	client, err := fetch.New(fetch.Config{
//		BaseURL:   "https://api.example.com",
//		UserAgent: "my-app/1.0.0",
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := client.FetchPage(ctx, fetch.PageRequest{
//		Path:   "/api/users",
//		Offset: 0,
//		Limit:  10,
//	})
//	if errors.Is(err, fetch.ErrCancelled) {
//		// superseded, not a failure
//	}
package fetch
