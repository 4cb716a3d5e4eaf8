package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultUserAgent identifies the client to the arXiv API.
	DefaultUserAgent = "arxivlens/0.1 (+https://github.com/csheth/arxivlens)"
	// DefaultTimeout bounds a single catalog request. The caller applies it
	// through the request context.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxFeedBytes caps a catalog response body.
	DefaultMaxFeedBytes = 32 << 20
)

var (
	// ErrUnexpectedStatus reports a non-2xx response from the catalog or PDF host.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrResponseTooLarge reports a catalog response over the size cap.
	ErrResponseTooLarge = errors.New("response too large")
)

// Client issues catalog and PDF requests. The zero value is usable.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// CacheDir overrides where downloaded PDFs are kept. Empty uses
	// $ARXIVLENS_CACHE_DIR or the user cache directory.
	CacheDir string
	// MaxFeedBytes caps a catalog response. Zero means DefaultMaxFeedBytes.
	MaxFeedBytes int64
	Logger       *slog.Logger
}

// httpClient has no Timeout of its own; the request context is the only
// deadline, so PDF downloads may run longer than catalog queries.
func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{}
}

func (c *Client) maxFeedBytes() int64 {
	if c.MaxFeedBytes > 0 {
		return c.MaxFeedBytes
	}
	return DefaultMaxFeedBytes
}

func (c *Client) userAgent() string {
	if ua := strings.TrimSpace(c.UserAgent); ua != "" {
		return ua
	}
	return DefaultUserAgent
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Fetch issues a single GET for q and returns the raw response body. It does
// not retry; callers decide whether to issue the request again.
func (c *Client) Fetch(ctx context.Context, q QueryDescriptor) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.URL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "application/atom+xml")

	started := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("query arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	limit := c.maxFeedBytes()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read arxiv response: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	c.logger().Info("fetched feed",
		slog.String("query", q.SearchQuery()),
		slog.Uint64("start", uint64(q.Start)),
		slog.Int("bytes", len(raw)),
		slog.Duration("duration", time.Since(started)),
	)
	return raw, nil
}

// Search fetches q and parses the response.
func (c *Client) Search(ctx context.Context, q QueryDescriptor) (Feed, error) {
	raw, err := c.Fetch(ctx, q)
	if err != nil {
		return Feed{}, err
	}
	return NewParser(c.logger()).Parse(raw)
}

// FetchFullText downloads the paper's PDF through the on-disk cache and
// returns its extracted plain text.
func (c *Client) FetchFullText(ctx context.Context, paper Paper) (string, error) {
	pdfURL := pdfURLFor(paper)
	if pdfURL == "" {
		return "", fmt.Errorf("no pdf link for %q", paper.ID)
	}
	cache, err := newPDFCache(c.CacheDir, c.httpClient(), c.userAgent())
	if err != nil {
		return "", fmt.Errorf("open pdf cache: %w", err)
	}
	path, err := cache.Fetch(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	text, err := extractPDFText(path)
	if err != nil {
		return "", fmt.Errorf("failed to process paper PDF: %w", err)
	}
	return text, nil
}

func pdfURLFor(paper Paper) string {
	if paper.PDFURL != "" {
		return paper.PDFURL
	}
	if id := extractIdentifier(paper.ID); id != "" {
		return "https://arxiv.org/pdf/" + id
	}
	return ""
}
