package arxiv

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/net/html/charset"
)

var (
	// ErrMalformed reports a document that is not well-formed XML or not an Atom feed.
	ErrMalformed = errors.New("malformed feed")
	// ErrNoData reports an empty response body, as opposed to a feed with no entries.
	ErrNoData = errors.New("no feed data")
)

// Parser turns raw arXiv Atom documents into Feeds.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser that reports dropped entries to logger. A nil
// logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseFeed parses raw with a default Parser.
func ParseFeed(raw []byte) (Feed, error) {
	return NewParser(nil).Parse(raw)
}

// Parse decodes raw into a Feed. Entries missing an id or title are skipped
// and counted in Feed.Dropped; a document that is not well-formed fails as a
// whole with ErrMalformed.
func (p *Parser) Parse(raw []byte) (Feed, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Feed{}, ErrNoData
	}
	if err := checkWellFormed(raw); err != nil {
		return Feed{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	decoded, err := (&atom.Parser{}).Parse(bytes.NewReader(raw))
	if err != nil {
		return Feed{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	feed := Feed{
		Title:        normalizeWhitespace(decoded.Title),
		Query:        feedQueryEcho(decoded),
		Updated:      parseTimestamp(decoded.Updated, decoded.UpdatedParsed),
		TotalResults: extensionInt(decoded.Extensions, "totalResults"),
		StartIndex:   extensionInt(decoded.Extensions, "startIndex"),
		ItemsPerPage: extensionInt(decoded.Extensions, "itemsPerPage"),
		Papers:       make([]Paper, 0, len(decoded.Entries)),
	}

	for idx, entry := range decoded.Entries {
		if entry == nil {
			continue
		}
		paper, missing := convertEntry(entry)
		if missing != "" {
			feed.Dropped++
			p.logger.Warn("dropping feed entry",
				slog.Int("index", idx),
				slog.String("id", strings.TrimSpace(entry.ID)),
				slog.String("missing", missing),
			)
			continue
		}
		feed.Papers = append(feed.Papers, paper)
	}

	if feed.Dropped > 0 {
		p.logger.Info("feed parsed with partial failures",
			slog.Int("papers", len(feed.Papers)),
			slog.Int("dropped", feed.Dropped),
		)
	}
	return feed, nil
}

// checkWellFormed walks every token so that truncated or mis-encoded
// documents fail before the lenient atom decoder sees them.
func checkWellFormed(raw []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charset.NewReaderLabel
	root := ""
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok && root == "" {
			root = start.Name.Local
		}
	}
	switch root {
	case "":
		return errors.New("document has no root element")
	case "feed":
		return nil
	default:
		return fmt.Errorf("unexpected root element <%s>", root)
	}
}

func convertEntry(entry *atom.Entry) (Paper, string) {
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		return Paper{}, "id"
	}
	title := normalizeWhitespace(entry.Title)
	if title == "" {
		return Paper{}, "title"
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if author == nil {
			continue
		}
		if name := normalizeWhitespace(author.Name); name != "" {
			authors = append(authors, name)
		}
	}

	paper := Paper{
		ID:         id,
		Title:      title,
		Authors:    authors,
		Summary:    normalizeWhitespace(entry.Summary),
		Published:  parseTimestamp(entry.Published, entry.PublishedParsed),
		Updated:    parseTimestamp(entry.Updated, entry.UpdatedParsed),
		Categories: entryCategories(entry.Categories),
	}

	for _, link := range entry.Links {
		if link == nil || link.Href == "" {
			continue
		}
		switch {
		case strings.EqualFold(link.Title, "pdf") || link.Type == "application/pdf":
			if paper.PDFURL == "" {
				paper.PDFURL = link.Href
			}
		case link.Rel == "" || link.Rel == "alternate":
			if paper.Link == "" {
				paper.Link = link.Href
			}
		}
	}
	if paper.Link == "" && strings.HasPrefix(id, "http") {
		paper.Link = id
	}

	if primary, ok := extensionFirst(entry.Extensions, "primary_category"); ok {
		paper.PrimaryCategory = strings.TrimSpace(primary.Attrs["term"])
	}
	paper.Comment = extensionText(entry.Extensions, "comment")
	paper.JournalRef = extensionText(entry.Extensions, "journal_ref")
	paper.DOI = extensionText(entry.Extensions, "doi")
	return paper, ""
}

func entryCategories(categories []*atom.Category) []string {
	seen := make(map[string]bool, len(categories))
	result := make([]string, 0, len(categories))
	for _, category := range categories {
		if category == nil {
			continue
		}
		term := strings.TrimSpace(category.Term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		result = append(result, term)
	}
	return result
}

// parseTimestamp prefers the RFC 3339 wire format and falls back to gofeed's
// lenient parse. Unparseable values yield the zero time.
func parseTimestamp(raw string, lenient *time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if lenient != nil {
		return lenient.UTC()
	}
	return time.Time{}
}

func feedQueryEcho(feed *atom.Feed) string {
	for _, link := range feed.Links {
		if link != nil && link.Rel == "self" && link.Href != "" {
			return link.Href
		}
	}
	return normalizeWhitespace(feed.Title)
}

// extensionFirst finds an extension element by local name under any prefix.
// Prefixes are visited in sorted order so the lookup is deterministic.
func extensionFirst(exts ext.Extensions, name string) (ext.Extension, bool) {
	if len(exts) == 0 {
		return ext.Extension{}, false
	}
	prefixes := make([]string, 0, len(exts))
	for prefix := range exts {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		if values := exts[prefix][name]; len(values) > 0 {
			return values[0], true
		}
	}
	return ext.Extension{}, false
}

func extensionText(exts ext.Extensions, name string) string {
	if e, ok := extensionFirst(exts, name); ok {
		return normalizeWhitespace(e.Value)
	}
	return ""
}

func extensionInt(exts ext.Extensions, name string) int {
	text := extensionText(exts, name)
	if text == "" {
		return -1
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return -1
	}
	return n
}
