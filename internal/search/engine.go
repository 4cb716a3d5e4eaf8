// Package search ranks free-text queries against pre-rendered haystacks.
//
// A candidate must first pass a fuzzy subsequence prefilter on every query
// word. It is then scored with strict substring rules so that loose fuzzy
// hits never outrank, or even reach, the result list on their own.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// Config tunes scoring. The zero value is not useful; start from
// DefaultConfig.
type Config struct {
	// Threshold is the minimum score a haystack needs to be returned.
	Threshold int
	// ExactSubstring is awarded when the whole query occurs in the haystack.
	ExactSubstring int
	// Prefix is added when the haystack starts with the query.
	Prefix int
	// WordBoundary is added when any haystack word starts with the query.
	WordBoundary int
	// ExactWord is added when any haystack word equals the query.
	ExactWord int
	// AllWords is awarded when every significant query word occurs.
	AllWords int
	// FuzzyWindow is awarded when every significant query word occurs, or
	// shares a run of WindowSize characters with the haystack.
	FuzzyWindow int
	// MinWordLength drops shorter query words from the word rules.
	MinWordLength int
	// WindowSize is the run length of the fuzzy window rule. Queries shorter
	// than this never use it.
	WindowSize int
}

// DefaultConfig returns the stock weights. FuzzyWindow equals Threshold so a
// window match is the weakest result that still passes.
func DefaultConfig() Config {
	return Config{
		Threshold:      200,
		ExactSubstring: 1000,
		Prefix:         500,
		WordBoundary:   300,
		ExactWord:      200,
		AllWords:       250,
		FuzzyWindow:    200,
		MinWordLength:  3,
		WindowSize:     4,
	}
}

// shortBonusCap bounds the tie-break bonus given to short haystacks.
const shortBonusCap = 100

// Engine ranks haystacks against a query. It holds no per-query state and is
// safe for concurrent use.
type Engine struct {
	config Config
}

// New returns an engine using config.
func New(config Config) *Engine {
	return &Engine{config: config}
}

// Default returns an engine with DefaultConfig.
func Default() *Engine {
	return New(DefaultConfig())
}

// Rank returns the indices of haystacks matching query, best first. Equal
// scores keep haystack order. A blank query returns every index in order.
func (e *Engine) Rank(query string, haystacks []string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		all := make([]int, len(haystacks))
		for i := range all {
			all[i] = i
		}
		return all
	}

	type scored struct {
		index int
		score int
	}
	var results []scored
	for _, idx := range prefilter(query, haystacks) {
		if score, ok := e.Score(query, haystacks[idx]); ok {
			results = append(results, scored{index: idx, score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].index < results[j].index
	})

	ranked := make([]int, len(results))
	for i, r := range results {
		ranked[i] = r.index
	}
	return ranked
}

// prefilter keeps the haystacks in which every query word is a
// case-insensitive subsequence, in ascending index order.
func prefilter(query string, haystacks []string) []int {
	words := strings.Fields(query)
	hits := make([]int, len(haystacks))
	for _, word := range words {
		for _, match := range fuzzy.Find(word, haystacks) {
			hits[match.Index]++
		}
	}
	var kept []int
	for idx, n := range hits {
		if n == len(words) {
			kept = append(kept, idx)
		}
	}
	return kept
}

// Score rates text against query without the prefilter. ok is false when
// the score stays under the threshold.
func (e *Engine) Score(query, text string) (score int, ok bool) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0, true
	}
	content := strings.ToLower(text)
	words := e.significantWords(query)

	switch {
	case strings.Contains(content, query):
		score = e.config.ExactSubstring
		fields := strings.Fields(content)
		if strings.HasPrefix(content, query) {
			score += e.config.Prefix
		}
		if anyField(fields, func(f string) bool { return strings.HasPrefix(f, query) }) {
			score += e.config.WordBoundary
		}
		if anyField(fields, func(f string) bool { return f == query }) {
			score += e.config.ExactWord
		}
	case len(words) == 0:
	case allContained(content, words):
		score = e.config.AllWords
	case utf8.RuneCountInString(query) >= e.config.WindowSize && e.windowsMatch(content, words):
		score = e.config.FuzzyWindow
	}

	if score < e.config.Threshold {
		return score, false
	}
	length := utf8.RuneCountInString(content)
	if length > shortBonusCap {
		length = shortBonusCap
	}
	return score + shortBonusCap - length, true
}

// significantWords splits query on whitespace and hyphens and drops words
// shorter than MinWordLength.
func (e *Engine) significantWords(query string) []string {
	var words []string
	for _, word := range strings.Fields(strings.ReplaceAll(query, "-", " ")) {
		if utf8.RuneCountInString(word) >= e.config.MinWordLength {
			words = append(words, word)
		}
	}
	return words
}

func (e *Engine) windowsMatch(content string, words []string) bool {
	for _, word := range words {
		if strings.Contains(content, word) {
			continue
		}
		if !anyWindow(content, word, e.config.WindowSize) {
			return false
		}
	}
	return true
}

// anyWindow reports whether some run of size runes of word occurs in
// content.
func anyWindow(content, word string, size int) bool {
	if size <= 0 {
		return false
	}
	runes := []rune(word)
	for i := 0; i+size <= len(runes); i++ {
		if strings.Contains(content, string(runes[i:i+size])) {
			return true
		}
	}
	return false
}

func allContained(content string, words []string) bool {
	for _, word := range words {
		if !strings.Contains(content, word) {
			return false
		}
	}
	return true
}

func anyField(fields []string, pred func(string) bool) bool {
	for _, f := range fields {
		if pred(f) {
			return true
		}
	}
	return false
}
