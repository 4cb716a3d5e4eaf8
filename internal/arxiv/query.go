package arxiv

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the public arXiv query endpoint.
	DefaultBaseURL = "https://export.arxiv.org/api/query"
	// DefaultCategory is used when no category is configured.
	DefaultCategory = "quant-ph"
	// DefaultPageSize applies when the caller leaves MaxResults at zero.
	DefaultPageSize = 200
	// MaxPageSize is the largest page arXiv serves in a single call.
	MaxPageSize = 2000
)

var (
	// ErrInvalidCategory reports an empty or syntactically invalid category code.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidSort reports an unknown sortBy or sortOrder value.
	ErrInvalidSort = errors.New("invalid sort option")
)

var categoryRegexp = regexp.MustCompile(`^[A-Za-z0-9.\-]+$`)

// SortBy selects the ordering key arXiv applies to results.
type SortBy string

const (
	SortRelevance       SortBy = "relevance"
	SortLastUpdatedDate SortBy = "lastUpdatedDate"
	SortSubmittedDate   SortBy = "submittedDate"
)

// SortOrder selects ascending or descending results.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// Filters are the user-facing inputs of a catalog query. Empty Author and
// FreeText mean "not set".
type Filters struct {
	Category   string
	Author     string
	FreeText   string
	Start      uint
	MaxResults uint
	SortBy     SortBy
	SortOrder  SortOrder
}

// QueryDescriptor is a fully resolved, side-effect-free description of a
// catalog request.
type QueryDescriptor struct {
	BaseURL    string
	Category   string
	Author     string
	FreeText   string
	Start      uint
	MaxResults uint
	SortBy     SortBy
	SortOrder  SortOrder
}

// BuildQuery validates filters and resolves them against DefaultBaseURL.
func BuildQuery(f Filters) (QueryDescriptor, error) {
	return BuildQueryAt(DefaultBaseURL, f)
}

// BuildQueryAt is BuildQuery against a custom endpoint.
func BuildQueryAt(baseURL string, f Filters) (QueryDescriptor, error) {
	category := strings.TrimSpace(f.Category)
	if category == "" || !categoryRegexp.MatchString(category) {
		return QueryDescriptor{}, fmt.Errorf("%w: %q", ErrInvalidCategory, f.Category)
	}

	sortBy := f.SortBy
	switch sortBy {
	case "":
		sortBy = SortSubmittedDate
	case SortRelevance, SortLastUpdatedDate, SortSubmittedDate:
	default:
		return QueryDescriptor{}, fmt.Errorf("%w: sortBy %q", ErrInvalidSort, f.SortBy)
	}
	sortOrder := f.SortOrder
	switch sortOrder {
	case "":
		sortOrder = SortDescending
	case SortAscending, SortDescending:
	default:
		return QueryDescriptor{}, fmt.Errorf("%w: sortOrder %q", ErrInvalidSort, f.SortOrder)
	}

	size := f.MaxResults
	if size == 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return QueryDescriptor{
		BaseURL:    baseURL,
		Category:   category,
		Author:     cleanPhrase(f.Author),
		FreeText:   cleanPhrase(f.FreeText),
		Start:      f.Start,
		MaxResults: size,
		SortBy:     sortBy,
		SortOrder:  sortOrder,
	}, nil
}

// SearchQuery renders the search_query parameter before URL encoding.
func (q QueryDescriptor) SearchQuery() string {
	parts := []string{"cat:" + q.Category}
	if q.Author != "" {
		parts = append(parts, "au:"+quotePhrase(q.Author))
	}
	if q.FreeText != "" {
		parts = append(parts, "all:"+quotePhrase(q.FreeText))
	}
	return strings.Join(parts, " AND ")
}

// Values returns the encoded query parameters.
func (q QueryDescriptor) Values() url.Values {
	values := url.Values{}
	values.Set("search_query", q.SearchQuery())
	values.Set("start", strconv.FormatUint(uint64(q.Start), 10))
	values.Set("max_results", strconv.FormatUint(uint64(q.MaxResults), 10))
	values.Set("sortBy", string(q.SortBy))
	values.Set("sortOrder", string(q.SortOrder))
	return values
}

// URL returns the request URL. Identical descriptors always produce the
// identical string since url.Values.Encode sorts by key.
func (q QueryDescriptor) URL() string {
	return q.BaseURL + "?" + q.Values().Encode()
}

func (q QueryDescriptor) String() string {
	return q.URL()
}

// NextPage returns the descriptor for the page after q.
func (q QueryDescriptor) NextPage() QueryDescriptor {
	next := q
	next.Start += q.MaxResults
	return next
}

func cleanPhrase(value string) string {
	value = strings.ReplaceAll(value, `"`, " ")
	return normalizeWhitespace(value)
}

func quotePhrase(value string) string {
	if strings.ContainsAny(value, " \t") {
		return `"` + value + `"`
	}
	return value
}
