package internal

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"
)

// QuotePair describes a quotation whose content is never split.
// Pairs with distinct Open and Close runes may nest; pairs using the same
// rune for both ends (like '"') cannot.
type QuotePair struct {
	Open  rune
	Close rune
	Keep  bool // Retain the delimiters in the emitted token
}

// SplitConfig holds the configuration for a split.
type SplitConfig struct {
	Separators []string    // Regular expressions, in priority order for ties
	Escape     rune        // Escape character, 0 disables escaping
	Quotes     []QuotePair // Quotation pairs
}

// Segment is one record of a split: the token preceding a separator, the
// separator text itself and the index of the pattern that matched it.
// The final segment has an empty Separator and Pattern == NoPattern.
type Segment struct {
	Token     string
	Separator string
	Pattern   int
}

// IsLast reports whether this segment terminates the split.
func (s Segment) IsLast() bool {
	return s.Pattern == NoPattern
}

// Tokenizer is a compiled SplitConfig that can be reused across calls.
// It holds no per-call state and is safe for concurrent use.
type Tokenizer struct {
	patterns []*regexp.Regexp
	escape   rune
	quotes   []QuotePair
	logger   *zap.Logger
}

// NewTokenizer compiles the separator patterns of cfg.
func NewTokenizer(cfg SplitConfig, logger *zap.Logger) (*Tokenizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Separators) == 0 {
		return nil, &TokenizerError{Message: ErrMsgNoSeparators}
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Separators))
	for _, src := range cfg.Separators {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, &TokenizerError{Message: ErrMsgInvalidSeparator, Fragment: src, Cause: err}
		}
		re.Longest()
		patterns = append(patterns, re)
	}

	seen := make(map[rune]bool, len(cfg.Quotes))
	for _, q := range cfg.Quotes {
		if seen[q.Open] {
			return nil, &TokenizerError{Message: ErrMsgDuplicateQuoteOpen, Fragment: string(q.Open)}
		}
		seen[q.Open] = true
	}

	logger.Debug(LogMsgTokenizerCreated,
		zap.Int(LogFieldSeparators, len(patterns)),
		zap.Int(LogFieldQuotes, len(cfg.Quotes)))

	return &Tokenizer{
		patterns: patterns,
		escape:   cfg.Escape,
		quotes:   cfg.Quotes,
		logger:   logger,
	}, nil
}

// MustNewTokenizer compiles cfg and panics on error.
// Use it for package-level tokenizers with constant patterns.
func MustNewTokenizer(cfg SplitConfig) *Tokenizer {
	t, err := NewTokenizer(cfg, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Split is a convenience wrapper compiling cfg for a single call.
func Split(text string, cfg SplitConfig) ([]Segment, error) {
	t, err := NewTokenizer(cfg, nil)
	if err != nil {
		return nil, err
	}
	return t.Split(text)
}

// Tokens returns only the token strings of a split.
func Tokens(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Token
	}
	return out
}

// Split divides text at separator matches outside escapes and quotations.
//
// At every position the earliest-starting separator match wins; among
// matches starting at the same position the longest wins, and remaining
// ties go to the pattern listed first. A match never covers an escaped or
// quoted rune.
func (t *Tokenizer) Split(text string) ([]Segment, error) {
	t.logger.Debug(LogMsgSplitStart, zap.Int(LogFieldLength, len(text)))

	literal, masked, err := t.prepare(text)
	if err != nil {
		return nil, err
	}

	subject := string(literal)
	starts := runeStarts(subject)
	runs := openRuns(starts, masked)

	var segments []Segment
	tokenStart := 0
	pos := 0
	for pos <= len(subject) {
		start, end, pattern := t.nextMatch(subject, runs, pos)
		if pattern == NoPattern {
			break
		}
		sRune := byteToRune(starts, start)
		eRune := byteToRune(starts, end)
		segments = append(segments, Segment{
			Token:     string(literal[tokenStart:sRune]),
			Separator: string(literal[sRune:eRune]),
			Pattern:   pattern,
		})
		tokenStart = eRune
		pos = end
	}
	segments = append(segments, Segment{
		Token:   string(literal[tokenStart:]),
		Pattern: NoPattern,
	})

	t.logger.Debug(LogMsgSplitEnd, zap.Int(LogFieldSegments, len(segments)))
	return segments, nil
}

// prepare builds the literal rune buffer and a parallel mask in one pass.
// Escaped and quoted runes are masked and never take part in a separator.
// Inside a kept quotation, nested quotations and escapes are emitted
// verbatim so the group can be split again later.
func (t *Tokenizer) prepare(text string) ([]rune, []bool, error) {
	runes := []rune(text)
	literal := make([]rune, 0, len(runes))
	masked := make([]bool, 0, len(runes))
	emit := func(r rune, mask bool) {
		literal = append(literal, r)
		masked = append(masked, mask)
	}

	var stack []QuotePair
	var openedAt []int
	escaped := false
	escapeAt := 0

	for i, r := range runes {
		verbatim := insideKept(stack)
		switch {
		case escaped:
			emit(r, true)
			escaped = false

		case t.escape != 0 && r == t.escape:
			escaped = true
			escapeAt = i
			if verbatim {
				emit(r, true)
			}

		case len(stack) > 0 && r == stack[len(stack)-1].Close:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			openedAt = openedAt[:len(openedAt)-1]
			if top.Keep || insideKept(stack) {
				emit(r, true)
			}

		default:
			if pair, ok := t.opening(r, stack); ok {
				stack = append(stack, pair)
				openedAt = append(openedAt, i)
				if pair.Keep || verbatim {
					emit(r, true)
				}
				continue
			}
			emit(r, len(stack) > 0)
		}
	}

	if escaped {
		return nil, nil, &TokenizerError{
			Message:  ErrMsgDanglingEscape,
			Fragment: string(runes[escapeAt:]),
			Offset:   escapeAt,
		}
	}
	if len(stack) > 0 {
		return nil, nil, &TokenizerError{
			Message:  ErrMsgUnterminatedQuote,
			Fragment: string(runes[openedAt[0]:]),
			Offset:   openedAt[0],
		}
	}
	return literal, masked, nil
}

// insideKept reports whether any open quotation retains its delimiters.
func insideKept(stack []QuotePair) bool {
	for _, q := range stack {
		if q.Keep {
			return true
		}
	}
	return false
}

// opening returns the quote pair opened by r, if any. Inside a pair whose
// delimiters are identical nothing else may open.
func (t *Tokenizer) opening(r rune, stack []QuotePair) (QuotePair, bool) {
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.Open == top.Close {
			return QuotePair{}, false
		}
	}
	for _, q := range t.quotes {
		if q.Open == r {
			return q, true
		}
	}
	return QuotePair{}, false
}

// byteRun is a half-open byte range of unmasked runes.
type byteRun struct {
	start, end int
}

// openRuns returns the maximal byte ranges of unmasked runes, in order.
func openRuns(starts []int, masked []bool) []byteRun {
	var runs []byteRun
	for i := 0; i < len(masked); {
		if masked[i] {
			i++
			continue
		}
		j := i
		for j < len(masked) && !masked[j] {
			j++
		}
		runs = append(runs, byteRun{start: starts[i], end: starts[j]})
		i = j
	}
	return runs
}

// nextMatch finds the earliest, then longest, non-empty separator match at
// or after byte offset pos. Each pattern is searched within unmasked runs
// only, so a match can never span a masked rune.
func (t *Tokenizer) nextMatch(subject string, runs []byteRun, pos int) (int, int, int) {
	bestStart, bestEnd, best := -1, -1, NoPattern
	for i, re := range t.patterns {
		start, end, ok := firstInRuns(re, subject, runs, pos)
		if !ok {
			continue
		}
		if best == NoPattern || start < bestStart || (start == bestStart && end > bestEnd) {
			bestStart, bestEnd, best = start, end, i
		}
	}
	return bestStart, bestEnd, best
}

// firstInRuns returns the first non-empty match of re at or after pos that
// lies entirely inside one run.
func firstInRuns(re *regexp.Regexp, subject string, runs []byteRun, pos int) (int, int, bool) {
	for _, run := range runs {
		if run.end <= pos {
			continue
		}
		from := max(run.start, pos)
		if start, end, ok := findNonEmpty(re, subject[:run.end], from); ok {
			return start, end, true
		}
	}
	return 0, 0, false
}

// findNonEmpty returns the first match of re in subject[pos:] that consumes
// at least one byte.
func findNonEmpty(re *regexp.Regexp, subject string, pos int) (int, int, bool) {
	for pos <= len(subject) {
		loc := re.FindStringIndex(subject[pos:])
		if loc == nil {
			return 0, 0, false
		}
		if loc[1] > loc[0] {
			return pos + loc[0], pos + loc[1], true
		}
		next := pos + loc[0]
		if next >= len(subject) {
			return 0, 0, false
		}
		_, size := utf8.DecodeRuneInString(subject[next:])
		pos = next + size
	}
	return 0, 0, false
}

// runeStarts returns the byte offset of every rune in s plus len(s).
func runeStarts(s string) []int {
	starts := make([]int, 0, len(s)+1)
	for i := range s {
		starts = append(starts, i)
	}
	return append(starts, len(s))
}

// byteToRune converts a byte offset on a rune boundary to a rune index.
func byteToRune(starts []int, offset int) int {
	return sort.SearchInts(starts, offset)
}

// TokenizerError reports malformed input or configuration.
type TokenizerError struct {
	Message  string
	Fragment string // Offending input, from the failing position onward
	Offset   int    // Rune offset of the fragment
	Cause    error
}

// Error implements the error interface.
func (e *TokenizerError) Error() string {
	result := fmt.Sprintf(ErrFmtWithFragment, e.Message, e.Offset, e.Fragment)
	if e.Cause != nil {
		result = fmt.Sprintf(ErrFmtWithCause, result, e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *TokenizerError) Unwrap() error {
	return e.Cause
}
