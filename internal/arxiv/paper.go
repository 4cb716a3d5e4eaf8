package arxiv

import (
	"regexp"
	"strings"
	"time"
)

// Paper is one catalog entry parsed from an arXiv Atom feed.
type Paper struct {
	ID              string
	Title           string
	Authors         []string
	Summary         string
	Published       time.Time
	Updated         time.Time
	Categories      []string
	PrimaryCategory string
	Link            string
	PDFURL          string
	Comment         string
	JournalRef      string
	DOI             string
}

// Feed is the parsed response to one catalog query. It is never mutated
// after ParseFeed returns it.
type Feed struct {
	Title        string
	Query        string
	Updated      time.Time
	TotalResults int
	StartIndex   int
	ItemsPerPage int
	Papers       []Paper
	// Dropped counts entries skipped because a required field was missing.
	Dropped int
}

// Len returns the number of papers in the feed.
func (f Feed) Len() int { return len(f.Papers) }

var (
	idRegexp             = regexp.MustCompile(`(?i)arxiv\.org/(?:abs|pdf)/([0-9a-z.\-/]+?)(?:\.pdf)?$`)
	bareIDRegexp         = regexp.MustCompile(`(?i)^[0-9a-z.\-/]+$`)
	extraneousWhitespace = regexp.MustCompile(`\s+`)
)

// ShortID returns the bare arXiv identifier, eg. 2401.00001v2.
func (p Paper) ShortID() string {
	if id := extractIdentifier(p.ID); id != "" {
		return id
	}
	return p.ID
}

// AuthorLine joins the author list for display and matching.
func (p Paper) AuthorLine() string {
	return strings.Join(p.Authors, ", ")
}

// IsRevision reports whether the entry was updated after its first version.
func (p Paper) IsRevision() bool {
	if p.Published.IsZero() || p.Updated.IsZero() {
		return false
	}
	return p.Updated.After(p.Published)
}

func extractIdentifier(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if matches := idRegexp.FindStringSubmatch(input); len(matches) > 1 {
		return matches[1]
	}
	if len(input) > 4 && strings.EqualFold(input[len(input)-4:], ".pdf") {
		input = input[:len(input)-4]
	}
	if len(input) >= len("arxiv:") && strings.EqualFold(input[:len("arxiv:")], "arxiv:") {
		input = strings.TrimSpace(input[len("arxiv:"):])
	}
	if strings.Contains(input, "://") {
		return ""
	}
	if bareIDRegexp.MatchString(input) {
		return input
	}
	return ""
}

func normalizeWhitespace(s string) string {
	return extraneousWhitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}
