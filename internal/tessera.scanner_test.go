package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delimitedFinder struct {
	open  string
	nest  rune
	close rune
}

func (f delimitedFinder) FindOccurrences(text string) []Span {
	return FindDelimited(text, f.open, f.nest, f.close)
}

type fixedFinder []Span

func (f fixedFinder) FindOccurrences(string) []Span {
	return f
}

func TestFindDelimited(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Span
	}{
		{name: "none", input: "plain text", expected: nil},
		{name: "single", input: "a ${x} b", expected: []Span{{2, 6}}},
		{name: "multiple", input: "${a}${b}", expected: []Span{{0, 4}, {4, 8}}},
		{name: "nested braces", input: "${m{k}}!", expected: []Span{{0, 7}}},
		{name: "close inside string", input: `${"}"} x`, expected: []Span{{0, 6}}},
		{name: "unterminated", input: "${abc", expected: nil},
		{name: "unterminated then valid", input: "${a ${b}", expected: []Span{{4, 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FindDelimited(tt.input, "${", '{', '}'))
		})
	}
}

func TestScanOccurrences_SortsAcrossFinders(t *testing.T) {
	finders := []Finder{
		fixedFinder{{Begin: 10, End: 14}, {Begin: 0, End: 5}},
		fixedFinder{{Begin: 0, End: 3}, {Begin: 6, End: 8}},
	}

	occ := ScanOccurrences("irrelevant text", finders)
	require.Len(t, occ, 4)

	assert.Equal(t, Occurrence{Span: Span{0, 3}, Syntax: 1}, occ[0])
	assert.Equal(t, Occurrence{Span: Span{0, 5}, Syntax: 0}, occ[1])
	assert.Equal(t, Occurrence{Span: Span{6, 8}, Syntax: 1}, occ[2])
	assert.Equal(t, Occurrence{Span: Span{10, 14}, Syntax: 0}, occ[3])
}

func TestScanOccurrences_RealFinders(t *testing.T) {
	finders := []Finder{
		delimitedFinder{open: "${", nest: '{', close: '}'},
		delimitedFinder{open: "#{", nest: '{', close: '}'},
	}

	occ := ScanOccurrences("x #{1+1} y ${name}", finders)
	require.Len(t, occ, 2)
	assert.Equal(t, 1, occ[0].Syntax)
	assert.Equal(t, Span{2, 8}, occ[0].Span)
	assert.Equal(t, 0, occ[1].Syntax)
	assert.Equal(t, Span{11, 18}, occ[1].Span)
}

func TestResolveOverlaps(t *testing.T) {
	t.Run("disjoint spans are all kept", func(t *testing.T) {
		in := []Occurrence{{Span{0, 2}, 0}, {Span{2, 4}, 1}}
		assert.Equal(t, in, ResolveOverlaps(in))
	})

	t.Run("leftmost wins", func(t *testing.T) {
		in := []Occurrence{{Span{0, 5}, 1}, {Span{3, 10}, 0}}
		assert.Equal(t, []Occurrence{{Span{0, 5}, 1}}, ResolveOverlaps(in))
	})

	t.Run("longest wins on equal begin", func(t *testing.T) {
		in := []Occurrence{{Span{0, 3}, 0}, {Span{0, 6}, 1}}
		assert.Equal(t, []Occurrence{{Span{0, 6}, 1}}, ResolveOverlaps(in))
	})

	t.Run("first syntax wins on identical span", func(t *testing.T) {
		in := []Occurrence{{Span{0, 4}, 2}, {Span{0, 4}, 1}}
		assert.Equal(t, []Occurrence{{Span{0, 4}, 1}}, ResolveOverlaps(in))
	})

	t.Run("contained span dropped", func(t *testing.T) {
		in := []Occurrence{{Span{0, 10}, 0}, {Span{2, 4}, 1}, {Span{12, 14}, 1}}
		assert.Equal(t, []Occurrence{{Span{0, 10}, 0}, {Span{12, 14}, 1}}, ResolveOverlaps(in))
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := []Occurrence{{Span{0, 3}, 0}, {Span{0, 6}, 1}}
		_ = ResolveOverlaps(in)
		assert.Equal(t, Span{0, 3}, in[0].Span)
	})
}
