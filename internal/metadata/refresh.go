package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/nikbrunner/marks/internal/model"
)

// Status represents the health of a bookmark URL.
type Status int

const (
	Healthy     Status = iota // page fetched
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, other status codes
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Result holds the refresh outcome for a single bookmark.
type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int // HTTP status code (0 if connection failed)
	Page       Page
	Error      string
}

// ProgressFunc is called after each URL is checked.
// completed is the number of URLs checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// RefreshOptions tunes Refresh.
type RefreshOptions struct {
	Concurrency int
	// ExcludeDomains lists domains where 404s likely mean "private" rather
	// than dead, such as code hosts.
	ExcludeDomains []string
	OnProgress     ProgressFunc
}

// Refresh fetches metadata for all bookmarks concurrently. Results are in
// input order.
func Refresh(ctx context.Context, fetcher Fetcher, bookmarks []model.Bookmark, opts RefreshOptions) []Result {
	if len(bookmarks) == 0 {
		return nil
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Build exclude map for fast lookup
	excludeMap := make(map[string]bool)
	for _, domain := range opts.ExcludeDomains {
		excludeMap[strings.ToLower(domain)] = true
	}

	results := make([]Result, len(bookmarks))
	jobs := make(chan int, len(bookmarks))
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = check(ctx, fetcher, bookmarks[idx], excludeMap)

				if opts.OnProgress != nil {
					progressMu.Lock()
					completed++
					opts.OnProgress(completed, len(bookmarks))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range bookmarks {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

func check(ctx context.Context, fetcher Fetcher, b model.Bookmark, excludeMap map[string]bool) Result {
	result := Result{Bookmark: b}

	if err := ctx.Err(); err != nil {
		result.Status = Unreachable
		result.Error = normalizeError(err.Error())
		return result
	}

	page, err := fetcher.Fetch(ctx, b.URL)
	if err == nil {
		result.Status = Healthy
		result.StatusCode = http.StatusOK
		result.Page = page
		return result
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		result.Status = Unreachable
		result.Error = normalizeError(err.Error())
		return result
	}

	result.StatusCode = statusErr.Code
	switch statusErr.Code {
	case http.StatusNotFound, http.StatusGone:
		if isExcludedDomain(b.URL, excludeMap) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// 403, 5xx and friends may be temporary or auth walls.
		result.Status = Unreachable
		result.Error = http.StatusText(statusErr.Code)
	}
	return result
}

// isExcludedDomain checks if the URL's host is an excluded domain or one of
// its subdomains.
func isExcludedDomain(rawURL string, excludeMap map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if excludeMap[host] {
		return true
	}
	for domain := range excludeMap {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Canceled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
