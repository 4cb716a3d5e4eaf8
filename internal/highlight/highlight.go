package highlight

// Segment is a contiguous run of a text. Plain runs have Term -1 and
// Category None.
type Segment struct {
	Text     string
	Start    int
	End      int
	Term     int
	Category Category
}

// Highlighted reports whether the segment matched a term.
func (s Segment) Highlighted() bool {
	return s.Term >= 0
}

// Highlight splits text into plain and highlighted segments. Concatenating
// the Text of every segment reproduces text exactly; with no matches the
// result is a single plain segment, even for empty text.
func (m *Matcher) Highlight(text string) []Segment {
	spans := m.Spans(text)
	if len(spans) == 0 {
		return []Segment{plain(text, 0, len(text))}
	}

	segments := make([]Segment, 0, 2*len(spans)+1)
	cursor := 0
	for _, span := range spans {
		if span.Start > cursor {
			segments = append(segments, plain(text, cursor, span.Start))
		}
		segments = append(segments, Segment{
			Text:     text[span.Start:span.End],
			Start:    span.Start,
			End:      span.End,
			Term:     span.Term,
			Category: m.set.At(span.Term).Category,
		})
		cursor = span.End
	}
	if cursor < len(text) {
		segments = append(segments, plain(text, cursor, len(text)))
	}
	return segments
}

// Highlight compiles set and segments a single text. Prefer Compile when
// several texts share one term set.
func Highlight(text string, set *TermSet) []Segment {
	return Compile(set).Highlight(text)
}

func plain(text string, start, end int) Segment {
	return Segment{Text: text[start:end], Start: start, End: end, Term: -1, Category: None}
}
