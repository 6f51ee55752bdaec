package internal

// NoPattern marks the terminating segment of a split.
const NoPattern = -1

// Character constants
const (
	CharBackslash   = '\\'
	CharDoubleQuote = '"'
	CharOpenParen   = '('
	CharCloseParen  = ')'
)

// Tokenizer error message constants
const (
	ErrMsgDanglingEscape     = "escape character at end of input"
	ErrMsgUnterminatedQuote  = "unterminated quotation"
	ErrMsgInvalidSeparator   = "invalid separator pattern"
	ErrMsgNoSeparators       = "at least one separator pattern is required"
	ErrMsgDuplicateQuoteOpen = "quote pair opening character registered twice"
)

// Error format strings
const (
	ErrFmtWithFragment = "%s at offset %d: %q"
	ErrFmtWithCause    = "%s: %v"
)

// Log message constants
const (
	LogMsgTokenizerCreated = "tokenizer created"
	LogMsgSplitStart       = "split started"
	LogMsgSplitEnd         = "split complete"
)

// Log field constants
const (
	LogFieldSeparators = "separators"
	LogFieldQuotes     = "quotes"
	LogFieldSegments   = "segments"
	LogFieldLength     = "length"
)
