package arxiv

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// CacheDirEnv overrides the PDF cache directory.
	CacheDirEnv = "ARXIVLENS_CACHE_DIR"

	cacheSubdir   = "arxivlens/pdfs"
	cacheTTL      = 24 * time.Hour
	partialSuffix = ".part"
	metaSuffix    = ".meta"
)

// pdfCache keeps downloaded PDFs on disk keyed by arXiv identifier. Stale
// files are revalidated with ETag/Last-Modified and interrupted downloads
// resume with a Range request.
type pdfCache struct {
	dir       string
	client    *http.Client
	userAgent string
}

type pdfCacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

type cachePaths struct {
	pdf, meta, partial string
}

func resolveCacheDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(CacheDirEnv); env != "" {
		return env
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), "arxivlens-cache")
	}
	return filepath.Join(base, cacheSubdir)
}

func newPDFCache(dir string, client *http.Client, userAgent string) (*pdfCache, error) {
	dir = resolveCacheDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	return &pdfCache{dir: dir, client: client, userAgent: userAgent}, nil
}

// Fetch returns a local path for pdfURL, downloading it when the cached copy
// is missing or stale. A stale copy is still served if the refresh fails.
func (c *pdfCache) Fetch(ctx context.Context, pdfURL string) (string, error) {
	paths := c.pathsFor(cacheKey(pdfURL))

	info, statErr := os.Stat(paths.pdf)
	if statErr == nil && info.Size() > 0 && time.Since(info.ModTime()) < cacheTTL {
		return paths.pdf, nil
	}
	if statErr != nil {
		info = nil
	}

	meta, _ := readMeta(paths.meta)
	path, err := c.download(ctx, pdfURL, paths, meta, info)
	if err == nil {
		return path, nil
	}
	if info != nil && info.Size() > 0 {
		return paths.pdf, nil
	}
	return "", err
}

func (c *pdfCache) download(ctx context.Context, pdfURL string, paths cachePaths, meta pdfCacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	var partialSize int64
	if info, err := os.Stat(paths.partial); err == nil && info.Size() > 0 {
		partialSize = info.Size()
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", partialSize))
		switch {
		case meta.ETag != "":
			req.Header.Set("If-Range", meta.ETag)
		case meta.LastModified != "":
			req.Header.Set("If-Range", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current != nil && current.Size() > 0 {
			meta.CachedAt = time.Now().UTC()
			now := time.Now()
			_ = os.Chtimes(paths.pdf, now, now)
			return paths.pdf, writeMeta(paths.meta, meta)
		}
		return c.download(ctx, pdfURL, paths, pdfCacheMeta{}, nil)
	case http.StatusOK:
		return c.saveBody(resp, paths, false)
	case http.StatusPartialContent:
		return c.saveBody(resp, paths, partialSize > 0)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pdf download: %w: %s (%s)", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(body)))
	}
}

func (c *pdfCache) saveBody(resp *http.Response, paths cachePaths, appendExisting bool) (string, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendExisting {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(paths.partial, flags, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(paths.partial, paths.pdf); err != nil {
		return "", err
	}

	meta := pdfCacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(paths.pdf); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(paths.meta, meta); err != nil {
		return "", err
	}
	return paths.pdf, nil
}

func (c *pdfCache) pathsFor(key string) cachePaths {
	return cachePaths{
		pdf:     filepath.Join(c.dir, key+".pdf"),
		meta:    filepath.Join(c.dir, key+metaSuffix),
		partial: filepath.Join(c.dir, key+partialSuffix),
	}
}

// cacheKey prefers the arXiv identifier so abs and pdf URLs of one paper
// share an entry.
func cacheKey(pdfURL string) string {
	if id := extractIdentifier(pdfURL); id != "" {
		return sanitizeKey(id)
	}
	sum := sha1.Sum([]byte(pdfURL))
	return hex.EncodeToString(sum[:])
}

func sanitizeKey(value string) string {
	return strings.NewReplacer("/", "-", ":", "-", "..", "-").Replace(strings.TrimSpace(value))
}

func readMeta(path string) (pdfCacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pdfCacheMeta{}, err
	}
	var meta pdfCacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return pdfCacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta pdfCacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
