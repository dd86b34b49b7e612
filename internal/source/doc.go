// Package source talks to the origin serving numbered segments.
//
// Client performs single HTTP attempts and classifies every failure:
//   - 404 and 410 mean the segment does not exist (domain.ErrSegmentNotFound)
//   - 401 and 403 are permanent errors
//   - 5xx, 429, timeouts and transport failures are *domain.TransientError
//
// Policy retries only transient failures, with exponential backoff and
// jitter. Segments ties a URL template to a Client and a Policy, giving the
// index-based Probe and Fetch used by the locator and the scheduler.
//
// # Usage
//
//	client := source.NewClient(source.DefaultOptions())
//	segs := source.NewSegments(tpl, client, source.DefaultPolicy())
//
//	ok, err := segs.Probe(ctx, 42)
//	body, err := segs.Fetch(ctx, 42)
//	defer body.Close()
package source
