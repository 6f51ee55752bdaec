package internal

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplit_LongestMatchAtSamePosition(t *testing.T) {
	segments, err := Split("a  b", SplitConfig{Separators: []string{" ", "  "}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, Tokens(segments))
	require.Len(t, segments, 2)
	assert.Equal(t, "  ", segments[0].Separator)
	assert.Equal(t, 1, segments[0].Pattern)
	assert.True(t, segments[1].IsLast())
	assert.Equal(t, "", segments[1].Separator)
}

func TestSplit_EarliestMatchWins(t *testing.T) {
	// "::" starts later than ":" at offset 1, so ":" wins there.
	segments, err := Split("a:b::c", SplitConfig{Separators: []string{"::", ":"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, Tokens(segments))
	assert.Equal(t, 1, segments[0].Pattern)
	assert.Equal(t, 0, segments[1].Pattern)
	assert.Equal(t, "::", segments[1].Separator)
}

func TestSplit_Escape(t *testing.T) {
	t.Run("escaped separator is kept literally", func(t *testing.T) {
		segments, err := Split(`a, b\, c`, SplitConfig{Separators: []string{", ?"}, Escape: CharBackslash})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b, c"}, Tokens(segments))
	})

	t.Run("escaped escape character", func(t *testing.T) {
		segments, err := Split(`a\\,b`, SplitConfig{Separators: []string{","}, Escape: CharBackslash})
		require.NoError(t, err)
		assert.Equal(t, []string{`a\`, "b"}, Tokens(segments))
	})

	t.Run("dangling escape fails", func(t *testing.T) {
		_, err := Split(`abc\`, SplitConfig{Separators: []string{","}, Escape: CharBackslash})
		require.Error(t, err)

		var tokErr *TokenizerError
		require.True(t, errors.As(err, &tokErr))
		assert.Equal(t, ErrMsgDanglingEscape, tokErr.Message)
		assert.Equal(t, `\`, tokErr.Fragment)
		assert.Equal(t, 3, tokErr.Offset)
	})

	t.Run("no escape configured", func(t *testing.T) {
		segments, err := Split(`a\,b`, SplitConfig{Separators: []string{","}})
		require.NoError(t, err)
		assert.Equal(t, []string{`a\`, "b"}, Tokens(segments))
	})
}

func TestSplit_Quotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		cfg      SplitConfig
		expected []string
	}{
		{
			name:  "nested parentheses kept",
			input: "a, (b, (c, d))",
			cfg: SplitConfig{
				Separators: []string{`,\s`},
				Quotes:     []QuotePair{{Open: '(', Close: ')', Keep: true}},
			},
			expected: []string{"a", "(b, (c, d))"},
		},
		{
			name:  "double quotes stripped",
			input: `x "hello world" y`,
			cfg: SplitConfig{
				Separators: []string{`\s+`},
				Quotes:     []QuotePair{{Open: '"', Close: '"'}},
			},
			expected: []string{"x", "hello world", "y"},
		},
		{
			name:  "same-rune quotes do not nest",
			input: `"(a b" c`,
			cfg: SplitConfig{
				Separators: []string{`\s+`},
				Quotes: []QuotePair{
					{Open: '"', Close: '"'},
					{Open: '(', Close: ')', Keep: true},
				},
			},
			expected: []string{"(a b", "c"},
		},
		{
			name:  "string inside parentheses",
			input: `f(a=") x") g`,
			cfg: SplitConfig{
				Separators: []string{`\s+`},
				Quotes: []QuotePair{
					{Open: '"', Close: '"', Keep: true},
					{Open: '(', Close: ')', Keep: true},
				},
			},
			expected: []string{`f(a=") x")`, "g"},
		},
		{
			name:  "escape inside quotes",
			input: `"a\"b" c`,
			cfg: SplitConfig{
				Separators: []string{`\s+`},
				Escape:     CharBackslash,
				Quotes:     []QuotePair{{Open: '"', Close: '"'}},
			},
			expected: []string{`a"b`, "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Split(tt.input, tt.cfg)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, Tokens(segments)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit_MaskedRunesNeverSeparate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		cfg      SplitConfig
		expected []string
	}{
		{
			name:     "escaped rune against non-word class",
			input:    `a\,b,c`,
			cfg:      SplitConfig{Separators: []string{`\W`}, Escape: CharBackslash},
			expected: []string{"a,b", "c"},
		},
		{
			name:  "kept quotes against negated class",
			input: `x "p q" y`,
			cfg: SplitConfig{
				Separators: []string{`[^a-z"]`},
				Quotes:     []QuotePair{{Open: '"', Close: '"', Keep: true}},
			},
			expected: []string{"x", `"p q"`, "y"},
		},
		{
			name:  "stripped quotes against any rune",
			input: `"ab"`,
			cfg: SplitConfig{
				Separators: []string{`.`},
				Quotes:     []QuotePair{{Open: '"', Close: '"'}},
			},
			expected: []string{"ab"},
		},
		{
			name:     "shorter match before masked rune",
			input:    `a \ b`,
			cfg:      SplitConfig{Separators: []string{`\s+`}, Escape: CharBackslash},
			expected: []string{"a", " b"},
		},
		{
			name:     "escaped letter against non-letter class",
			input:    `a1\2b3c`,
			cfg:      SplitConfig{Separators: []string{`\PL`}, Escape: CharBackslash},
			expected: []string{"a", "2b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := Split(tt.input, tt.cfg)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, Tokens(segments)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit_KeptGroupIsVerbatim(t *testing.T) {
	cfg := SplitConfig{
		Separators: []string{`\s+`},
		Escape:     CharBackslash,
		Quotes: []QuotePair{
			{Open: '"', Close: '"'},
			{Open: '(', Close: ')', Keep: true},
		},
	}

	t.Run("nested quotes retained", func(t *testing.T) {
		segments, err := Split(`f(p="  ") "a b"`, cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{`f(p="  ")`, "a b"}, Tokens(segments))
	})

	t.Run("nested escapes retained", func(t *testing.T) {
		segments, err := Split(`f(a=\)) \ x`, cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{`f(a=\))`, " x"}, Tokens(segments))
	})
}

func TestSplit_UnterminatedQuote(t *testing.T) {
	_, err := Split("a, (b, c", SplitConfig{
		Separators: []string{`,\s`},
		Quotes:     []QuotePair{{Open: '(', Close: ')', Keep: true}},
	})
	require.Error(t, err)

	var tokErr *TokenizerError
	require.True(t, errors.As(err, &tokErr))
	assert.Equal(t, ErrMsgUnterminatedQuote, tokErr.Message)
	assert.Equal(t, "(b, c", tokErr.Fragment)
	assert.Equal(t, 3, tokErr.Offset)
}

func TestSplit_EdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		segments, err := Split("", SplitConfig{Separators: []string{","}})
		require.NoError(t, err)
		require.Len(t, segments, 1)
		assert.True(t, segments[0].IsLast())
		assert.Equal(t, "", segments[0].Token)
	})

	t.Run("trailing separator yields empty final token", func(t *testing.T) {
		segments, err := Split("a,", SplitConfig{Separators: []string{","}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", ""}, Tokens(segments))
	})

	t.Run("zero-length matches are ignored", func(t *testing.T) {
		segments, err := Split("ab", SplitConfig{Separators: []string{"x*"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"ab"}, Tokens(segments))
	})

	t.Run("multi-byte runes", func(t *testing.T) {
		segments, err := Split("ä·ö·ü", SplitConfig{Separators: []string{"·"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"ä", "ö", "ü"}, Tokens(segments))
	})
}

func TestNewTokenizer_Errors(t *testing.T) {
	t.Run("no separators", func(t *testing.T) {
		_, err := NewTokenizer(SplitConfig{}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgNoSeparators)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := NewTokenizer(SplitConfig{Separators: []string{"("}}, zap.NewNop())
		require.Error(t, err)

		var tokErr *TokenizerError
		require.True(t, errors.As(err, &tokErr))
		assert.Equal(t, ErrMsgInvalidSeparator, tokErr.Message)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("duplicate quote opening", func(t *testing.T) {
		_, err := NewTokenizer(SplitConfig{
			Separators: []string{","},
			Quotes:     []QuotePair{{Open: '(', Close: ')'}, {Open: '(', Close: ']'}},
		}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrMsgDuplicateQuoteOpen)
	})
}

func TestTokenizer_Reuse(t *testing.T) {
	tok := MustNewTokenizer(SplitConfig{Separators: []string{";"}})

	first, err := tok.Split("a;b")
	require.NoError(t, err)
	second, err := tok.Split("c;d;e")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, Tokens(first))
	assert.Equal(t, []string{"c", "d", "e"}, Tokens(second))
}
