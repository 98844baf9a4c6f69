// Package culler finds bookmarks whose links have gone dead.
package culler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nikbrunner/marks/internal/model"
)

// Status represents the health status of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
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

// Result holds the check result for a single bookmark.
type Result struct {
	Bookmark   model.Bookmark
	Status     Status
	StatusCode int    // 0 if connection failed
	Error      string // for unreachable URLs
}

// Options tunes a check run.
type Options struct {
	Concurrency int
	Timeout     time.Duration // per URL
	// ExcludeDomains lists domains (and their subdomains) where a 404 is
	// reported as possibly private instead of dead.
	ExcludeDomains []string
	// Client overrides the HTTP client. Its Timeout is left alone.
	Client *http.Client
	// OnProgress is called after each URL with the running count.
	OnProgress func(completed, total int)
}

const maxRedirects = 10

// Check probes every bookmark URL and returns one result per bookmark, in
// input order. It stops early only when ctx is cancelled.
func Check(ctx context.Context, bookmarks []model.Bookmark, opts Options) ([]Result, error) {
	if len(bookmarks) == 0 {
		return nil, nil
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	exclude := make(map[string]bool, len(opts.ExcludeDomains))
	for _, domain := range opts.ExcludeDomains {
		exclude[strings.ToLower(domain)] = true
	}

	results := make([]Result, len(bookmarks))
	var (
		mu        sync.Mutex
		completed int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i := range bookmarks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkURL(ctx, client, bookmarks[i], exclude)

			if opts.OnProgress != nil {
				mu.Lock()
				completed++
				opts.OnProgress(completed, len(bookmarks))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkURL checks a single URL. HEAD is tried first; servers that refuse
// it get a GET.
func checkURL(ctx context.Context, client *http.Client, b model.Bookmark, exclude map[string]bool) Result {
	result := Result{Bookmark: b}

	resp, err := do(ctx, client, http.MethodHead, b.URL)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = do(ctx, client, http.MethodGet, b.URL)
	}
	if err != nil {
		result.Status = Unreachable
		result.Error = normalizeError(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if isExcludedDomain(b.URL, exclude) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
		}
	default:
		// 5xx, 403 and friends may be temporary or need auth
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}
	return result
}

func do(ctx context.Context, client *http.Client, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "marks-culler/1.0")
	return client.Do(req)
}

// isExcludedDomain reports whether the URL's host is an excluded domain or
// one of its subdomains.
func isExcludedDomain(rawURL string, exclude map[string]bool) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for domain := range exclude {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return err.Error()
	}
}

// Filter returns the results with status s.
func Filter(results []Result, s Status) []Result {
	var out []Result
	for _, r := range results {
		if r.Status == s {
			out = append(out, r)
		}
	}
	return out
}
