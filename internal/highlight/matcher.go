package highlight

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a highlighted byte range of a text. Term indexes the TermSet the
// Matcher was compiled from.
type Span struct {
	Start int
	End   int
	Term  int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

type node struct {
	next  map[rune]int32
	fail  int32
	dict  int32
	term  int32
	depth int32
}

// Matcher is an Aho-Corasick automaton compiled from a TermSet. Build it once
// per term set and reuse it for every text of a render pass; it is safe for
// concurrent use.
type Matcher struct {
	set   *TermSet
	nodes []node
}

// Compile builds the automaton for set. A nil or empty set yields a Matcher
// that never matches.
func Compile(set *TermSet) *Matcher {
	m := &Matcher{set: set, nodes: []node{newNode(0)}}
	for id := 0; id < set.Len(); id++ {
		m.insert(set.At(id).Text, int32(id))
	}
	m.link()
	return m
}

func newNode(depth int32) node {
	return node{term: -1, depth: depth}
}

// TermSet returns the set the matcher was compiled from.
func (m *Matcher) TermSet() *TermSet {
	return m.set
}

func (m *Matcher) insert(text string, id int32) {
	cur := int32(0)
	for _, r := range text {
		r = fold(r)
		next, ok := m.nodes[cur].next[r]
		if !ok {
			next = int32(len(m.nodes))
			m.nodes = append(m.nodes, newNode(m.nodes[cur].depth+1))
			if m.nodes[cur].next == nil {
				m.nodes[cur].next = make(map[rune]int32)
			}
			m.nodes[cur].next[r] = next
		}
		cur = next
	}
	if m.nodes[cur].term < 0 {
		m.nodes[cur].term = id
	}
}

// link fills failure and dictionary links breadth first.
func (m *Matcher) link() {
	queue := make([]int32, 0, len(m.nodes))
	for _, child := range m.nodes[0].next {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for r, child := range m.nodes[cur].next {
			fail := m.nodes[cur].fail
			for fail != 0 {
				if _, ok := m.nodes[fail].next[r]; ok {
					break
				}
				fail = m.nodes[fail].fail
			}
			if target, ok := m.nodes[fail].next[r]; ok && target != child {
				m.nodes[child].fail = target
			}
			failNode := m.nodes[m.nodes[child].fail]
			if failNode.term >= 0 {
				m.nodes[child].dict = m.nodes[child].fail
			} else {
				m.nodes[child].dict = failNode.dict
			}
			queue = append(queue, child)
		}
	}
}

func (m *Matcher) step(state int32, r rune) int32 {
	for {
		if next, ok := m.nodes[state].next[r]; ok {
			return next
		}
		if state == 0 {
			return 0
		}
		state = m.nodes[state].fail
	}
}

// scan walks text once and calls emit for every occurrence of every term,
// overlapping ones included. emit returning false stops the scan.
func (m *Matcher) scan(text string, emit func(Span, int) bool) {
	if m == nil || len(m.nodes) == 1 || text == "" {
		return
	}
	starts := make([]int, 0, utf8.RuneCountInString(text))
	state := int32(0)
	for offset := 0; offset < len(text); {
		r, size := utf8.DecodeRuneInString(text[offset:])
		starts = append(starts, offset)
		offset += size
		if r == utf8.RuneError && size == 1 {
			// an undecodable byte matches nothing, not even a literal U+FFFD
			state = 0
			continue
		}
		state = m.step(state, fold(r))

		hit := state
		if m.nodes[hit].term < 0 {
			hit = m.nodes[hit].dict
		}
		for hit != 0 {
			n := m.nodes[hit]
			span := Span{
				Start: starts[len(starts)-int(n.depth)],
				End:   offset,
				Term:  int(n.term),
			}
			if !emit(span, int(n.depth)) {
				return
			}
			hit = n.dict
		}
	}
}

type candidate struct {
	span  Span
	runes int
}

// Spans returns the non-overlapping matches in text sorted by start. Where
// matches overlap the longer one (in characters) is kept and ties go to the
// earlier start; the other is dropped entirely.
func (m *Matcher) Spans(text string) []Span {
	var candidates []candidate
	m.scan(text, func(span Span, runes int) bool {
		candidates = append(candidates, candidate{span: span, runes: runes})
		return true
	})
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].runes != candidates[j].runes {
			return candidates[i].runes > candidates[j].runes
		}
		return candidates[i].span.Start < candidates[j].span.Start
	})

	// Candidates arrive longest first, so a later one can never strictly
	// contain an accepted span: any overlap covers its first or last byte.
	covered := make([]bool, len(text))
	accepted := make([]Span, 0, len(candidates))
	for _, c := range candidates {
		if covered[c.span.Start] || covered[c.span.End-1] {
			continue
		}
		for i := c.span.Start; i < c.span.End; i++ {
			covered[i] = true
		}
		accepted = append(accepted, c.span)
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// Contains reports whether any term occurs in text.
func (m *Matcher) Contains(text string) bool {
	found := false
	m.scan(text, func(Span, int) bool {
		found = true
		return false
	})
	return found
}

// MatchesAny reports whether any term occurs in any of texts.
func (m *Matcher) MatchesAny(texts ...string) bool {
	for _, text := range texts {
		if m.Contains(text) {
			return true
		}
	}
	return false
}

// fold maps r to the smallest rune of its simple case-folding orbit, so that
// every case variant of a character compares equal and keeps its position.
func fold(r rune) rune {
	if r < utf8.RuneSelf {
		if 'a' <= r && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}
	min := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < min {
			min = f
		}
	}
	return min
}

func foldString(s string) string {
	return strings.Map(fold, s)
}
