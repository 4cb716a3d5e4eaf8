// Package highlight finds author and keyword occurrences in text and splits
// the text into render-ready segments.
package highlight

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTerm reports an empty term or one with no category.
var ErrInvalidTerm = errors.New("invalid highlight term")

// Category tags what kind of term produced a highlight.
type Category int

const (
	None Category = iota
	Author
	Keyword
)

func (c Category) String() string {
	switch c {
	case Author:
		return "author"
	case Keyword:
		return "keyword"
	default:
		return "none"
	}
}

// Term is one string to highlight.
type Term struct {
	Text     string
	Category Category
}

// Terms tags every value with category.
func Terms(category Category, values ...string) []Term {
	terms := make([]Term, 0, len(values))
	for _, value := range values {
		terms = append(terms, Term{Text: value, Category: category})
	}
	return terms
}

// TermSet is an ordered, case-insensitively deduplicated set of terms. It is
// immutable once built.
type TermSet struct {
	terms []Term
}

// NewTermSet trims every term and drops case-insensitive duplicates, keeping
// the first occurrence. A term that is empty after trimming fails the whole
// set with ErrInvalidTerm.
func NewTermSet(terms ...Term) (*TermSet, error) {
	set := &TermSet{terms: make([]Term, 0, len(terms))}
	seen := make(map[string]bool, len(terms))
	for idx, term := range terms {
		text := strings.TrimSpace(term.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: term %d is empty", ErrInvalidTerm, idx)
		}
		if term.Category != Author && term.Category != Keyword {
			return nil, fmt.Errorf("%w: term %q has no category", ErrInvalidTerm, text)
		}
		key := foldString(text)
		if seen[key] {
			continue
		}
		seen[key] = true
		set.terms = append(set.terms, Term{Text: text, Category: term.Category})
	}
	return set, nil
}

// MustTermSet is NewTermSet for fixed inputs; it panics on error.
func MustTermSet(terms ...Term) *TermSet {
	set, err := NewTermSet(terms...)
	if err != nil {
		panic(err)
	}
	return set
}

// Len returns the number of distinct terms.
func (s *TermSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}

// At returns the term with the given id.
func (s *TermSet) At(id int) Term {
	return s.terms[id]
}

// Terms returns a copy of the terms in insertion order.
func (s *TermSet) Terms() []Term {
	if s == nil {
		return nil
	}
	return append([]Term(nil), s.terms...)
}

// Texts returns the term strings of one category.
func (s *TermSet) Texts(category Category) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, term := range s.terms {
		if term.Category == category {
			out = append(out, term.Text)
		}
	}
	return out
}
