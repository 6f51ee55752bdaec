package internal

import (
	"sort"
	"strings"
)

// Span is a half-open byte range [Begin, End) over the scanned text.
type Span struct {
	Begin int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Begin
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Begin < o.End && o.Begin < s.End
}

// Finder reports expression occurrences over the original text.
type Finder interface {
	FindOccurrences(text string) []Span
}

// Occurrence is a span tagged with the index of the finder recognizing it.
type Occurrence struct {
	Span
	Syntax int
}

// ScanOccurrences aggregates the occurrences of all finders ordered by
// (Begin, End) ascending. Competing spans are all reported; use
// ResolveOverlaps to select a non-overlapping subset.
func ScanOccurrences(text string, finders []Finder) []Occurrence {
	var out []Occurrence
	for i, f := range finders {
		for _, span := range f.FindOccurrences(text) {
			out = append(out, Occurrence{Span: span, Syntax: i})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Begin != out[b].Begin {
			return out[a].Begin < out[b].Begin
		}
		if out[a].End != out[b].End {
			return out[a].End < out[b].End
		}
		return out[a].Syntax < out[b].Syntax
	})
	return out
}

// ResolveOverlaps keeps a non-overlapping subset of occurrences: the
// leftmost begin wins, on equal begin the longest span wins, and on
// identical spans the lower syntax index wins. The result is ordered by
// Begin.
func ResolveOverlaps(occurrences []Occurrence) []Occurrence {
	ranked := make([]Occurrence, len(occurrences))
	copy(ranked, occurrences)
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Begin != ranked[b].Begin {
			return ranked[a].Begin < ranked[b].Begin
		}
		if ranked[a].End != ranked[b].End {
			return ranked[a].End > ranked[b].End
		}
		return ranked[a].Syntax < ranked[b].Syntax
	})

	kept := make([]Occurrence, 0, len(ranked))
	for _, o := range ranked {
		if len(kept) > 0 && kept[len(kept)-1].Overlaps(o.Span) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// FindDelimited finds spans starting with open and ending at the matching
// close rune. Occurrences of nest inside the span increase the depth, so
// "${a{b}}" is one span. Quoted runs ('...' or "...") inside the span are
// skipped. An opening without a matching close is not reported.
func FindDelimited(text, open string, nest, close rune) []Span {
	var spans []Span
	pos := 0
	for pos < len(text) {
		idx := strings.Index(text[pos:], open)
		if idx < 0 {
			break
		}
		begin := pos + idx
		end, ok := matchClose(text, begin+len(open), nest, close)
		if !ok {
			pos = begin + len(open)
			continue
		}
		spans = append(spans, Span{Begin: begin, End: end})
		pos = end
	}
	return spans
}

// matchClose returns the offset just past the close rune balancing an
// already consumed opening.
func matchClose(text string, from int, nest, close rune) (int, bool) {
	depth := 1
	var quote rune
	escaped := false
	for i, r := range text[from:] {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == CharBackslash {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '\'' || r == CharDoubleQuote:
			quote = r
		case r == nest:
			depth++
		case r == close:
			depth--
			if depth == 0 {
				return from + i + len(string(r)), true
			}
		}
	}
	return 0, false
}
