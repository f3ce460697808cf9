// Package paginate walks Link-header paginated resources.
//
// Pagination is strictly sequential: one request in flight at a time,
// each page's rel="next" link (or a caller-supplied link-up function)
// deciding the cursor for the following page. Responses are returned
// in page order.
//
// Example usage:
//
//	p, err := paginate.New(c, paginate.Config{MaxPages: 10})
//	pages, err := p.FetchAll(ctx, "https://api.example.com/items", nil)
//
// The walker:
//   - fetches each page through the request orchestrator (so every page
//     gets the full retry and redirect treatment)
//   - waits the configured delay between pages, never before the first
//   - stops on a missing next link, a non-2xx response, or the page cap
//   - treats a malformed Link header per StrictLinkHeader: propagate
//     the parse error or stop silently
package paginate
