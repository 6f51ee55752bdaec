package tessera

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/itsatony/go-cuserr"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Parse errors
	ErrMsgInvalidInstruction  = "malformed instruction line"
	ErrMsgInvalidParameter    = "malformed action parameter"
	ErrMsgInvalidContribution = "malformed contribution"
	ErrMsgUnbalancedBlock     = "unbalanced block: closing brace without open action"
	ErrMsgUnclosedBlock       = "action block is never closed"
	ErrMsgDanglingEscape      = "escape character at end of input"
	ErrMsgUnterminatedQuote   = "unterminated quotation"
	ErrMsgInvalidExpression   = "invalid expression"
	ErrMsgTemplateNotFound    = "template not found"
	ErrMsgEmptyTemplateName   = "template name cannot be empty"
	ErrMsgInvalidTemplateName = "invalid template name"

	// Resolution errors
	ErrMsgUnknownParser       = "no parser registered under name"
	ErrMsgUnknownAction       = "no action registered under name"
	ErrMsgUnknownContribution = "no contribution registered under name"
	ErrMsgAmbiguousAction     = "action name matched by more than one dynamic library"
	ErrMsgDuplicateAction     = "action already registered"
	ErrMsgDuplicateContrib    = "contribution already registered"
	ErrMsgDuplicateFunction   = "function already registered"
	ErrMsgDuplicateParser     = "parser already registered"
	ErrMsgDuplicateSyntax     = "expression syntax already registered"
	ErrMsgNilFactory          = "factory cannot be nil"

	// Execution errors
	ErrMsgExecutionFailed   = "template execution failed"
	ErrMsgActionFailed      = "action execution failed"
	ErrMsgCreationFailed    = "action creation failed"
	ErrMsgInterceptorFailed = "interceptor failed"
	ErrMsgExpressionFailed  = "expression evaluation failed"
	ErrMsgVariableNotFound  = "variable not found"
	ErrMsgMissingParameter  = "required parameter missing"
	ErrMsgUnknownParameter  = "parameter not declared by action"
	ErrMsgConversionFailed  = "type conversion failed"
	ErrMsgNoConverter       = "no converter configured for typed parameter"
	ErrMsgIncludeDepth      = "maximum include depth exceeded"
	ErrMsgNoPhases          = "interceptor must declare at least one phase"
	ErrMsgEngineStopped     = "engine has been stopped"
	ErrMsgFunctionFailed    = "function call failed"
	ErrMsgKeywordArguments  = "keyword arguments are not supported"
	ErrMsgRenderCancelled   = "render cancelled"
	ErrMsgNilContext        = "execution context cannot be nil"
	ErrMsgNilWriter         = "writer cannot be nil"

	// Context errors
	ErrMsgDuplicateScope    = "scope already registered"
	ErrMsgUnknownScope      = "scope does not belong to this context"
	ErrMsgMissingImplicit   = "required implicit object missing"
	ErrMsgDuplicateImplicit = "implicit object already installed"
	ErrMsgPopRootWriter     = "cannot pop the root writer"
	ErrMsgEnricherFailed    = "context enricher failed"

	// Cache errors
	ErrMsgCacheClosed      = "template cache is closed"
	ErrMsgCacheUnavailable = "template cache backing store unavailable"

	// Source errors
	ErrMsgSourceClosed      = "template source is closed"
	ErrMsgSourceUnavailable = "template source unavailable"
	ErrMsgEmptyDSN          = "postgres connection string cannot be empty"
	ErrMsgInvalidSourceRoot = "template source root must be a directory"
	ErrMsgPathTraversal     = "template name escapes the source root"
	ErrMsgWatcherRunning    = "template source is already watched"
	ErrMsgWatchFailed       = "failed to watch template source"
	ErrMsgInvalidTableName  = "invalid postgres table name"
	ErrMsgMigrationFailed   = "postgres schema migration failed"

	// Config errors
	ErrMsgConfigReadFailed  = "failed to read config file"
	ErrMsgConfigParseFailed = "failed to parse config file"
)

// Error code constants for categorization
const (
	ErrCodeParse      = "TESSERA_PARSE"
	ErrCodeResolution = "TESSERA_RESOLUTION"
	ErrCodeExecution  = "TESSERA_EXECUTION"
	ErrCodeContext    = "TESSERA_CONTEXT"
	ErrCodeCache      = "TESSERA_CACHE"
)

// ErrorKind discriminates the engine's error family.
type ErrorKind string

// Error kinds
const (
	KindParse      ErrorKind = "parse"
	KindResolution ErrorKind = "resolution"
	KindExecution  ErrorKind = "execution"
	KindContext    ErrorKind = "context"
	KindCache      ErrorKind = "cache"
)

// code returns the cuserr code for the kind.
func (k ErrorKind) code() string {
	switch k {
	case KindParse:
		return ErrCodeParse
	case KindResolution:
		return ErrCodeResolution
	case KindContext:
		return ErrCodeContext
	case KindCache:
		return ErrCodeCache
	default:
		return ErrCodeExecution
	}
}

// Location identifies a position inside a named template.
type Location struct {
	Template string
	Line     int // 1-indexed, 0 when unknown
}

// String returns a human-readable location
func (l Location) String() string {
	if l.Line == 0 {
		return l.Template
	}
	return fmt.Sprintf("%s:%d", l.Template, l.Line)
}

// newEngineError builds a family error of the given kind.
func newEngineError(kind ErrorKind, msg string, cause error) *cuserr.CustomError {
	var err *cuserr.CustomError
	switch {
	case cause != nil:
		err = cuserr.WrapStdError(cause, kind.code(), msg)
	case kind == KindResolution:
		err = cuserr.NewNotFoundError(MetaKeyName, msg)
	case kind == KindParse || kind == KindContext:
		err = cuserr.NewValidationError(kind.code(), msg)
	default:
		err = cuserr.WrapStdError(errors.New(msg), kind.code(), msg)
	}
	return err.WithMetadata(MetaKeyKind, string(kind))
}

// NewParseError creates a parse error carrying the offending fragment.
func NewParseError(msg string, loc Location, fragment string, cause error) error {
	err := newEngineError(KindParse, msg, cause).
		WithMetadata(MetaKeyTemplate, loc.Template).
		WithMetadata(MetaKeyFragment, fragment)
	if loc.Line > 0 {
		err = err.WithMetadata(MetaKeyLine, strconv.Itoa(loc.Line))
	}
	return err
}

// NewResolutionError creates an error for an unknown or ambiguous name.
func NewResolutionError(msg string, name string) error {
	return newEngineError(KindResolution, msg, nil).
		WithMetadata(MetaKeyName, name)
}

// NewExecutionError creates an execution error for the named action.
func NewExecutionError(msg string, action string, cause error) error {
	return newEngineError(KindExecution, msg, cause).
		WithMetadata(MetaKeyAction, action)
}

// NewContextError creates a context error for the named scope or object.
func NewContextError(msg string, name string) error {
	return newEngineError(KindContext, msg, nil).
		WithMetadata(MetaKeyName, name)
}

// NewCacheError creates a cache error for the given key.
func NewCacheError(msg string, key CacheKey, cause error) error {
	return newEngineError(KindCache, msg, cause).
		WithMetadata(MetaKeyTemplate, key.Template).
		WithMetadata(MetaKeyParser, key.Parser)
}

// NewConversionError creates an execution error for a failed conversion.
func NewConversionError(param string, target ValueType, value any, cause error) error {
	return newEngineError(KindExecution, ErrMsgConversionFailed, cause).
		WithMetadata(MetaKeyParameter, param).
		WithMetadata(MetaKeyTargetType, target.String()).
		WithMetadata(MetaKeyValue, fmt.Sprintf("%v", value))
}

// WrapEngineError returns err unchanged when it already belongs to the
// engine's family and wraps it into an execution error otherwise.
func WrapEngineError(err error, msg string, action string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return NewExecutionError(msg, action, err)
}

// WithOrigin tags a family error with a human-readable origin, such as the
// library or template that raised it. Foreign errors and errors that already
// carry an origin are returned as is.
func WithOrigin(err error, origin string) error {
	if origin == "" || KindOf(err) == "" || OriginOf(err) != "" {
		return err
	}
	return withMetadata(err, MetaKeyOrigin, origin)
}

// withMetadata adds metadata to err when it is a *cuserr.CustomError
// itself; wrapped errors are returned unchanged.
func withMetadata(err error, key, value string) error {
	ce, ok := err.(*cuserr.CustomError)
	if !ok {
		return err
	}
	return ce.WithMetadata(key, value)
}

// KindOf returns the kind of a family error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	kind, _ := Metadata(err, MetaKeyKind)
	return ErrorKind(kind)
}

// IsKind reports whether err belongs to the family with the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// OriginOf returns the origin tag of a family error, if any.
func OriginOf(err error) string {
	origin, _ := Metadata(err, MetaKeyOrigin)
	return origin
}

// Metadata returns the first value stored under key along the error chain.
func Metadata(err error, key string) (string, bool) {
	for err != nil {
		var ce *cuserr.CustomError
		if !errors.As(err, &ce) {
			return "", false
		}
		if v, ok := ce.GetMetadata(key); ok {
			return v, true
		}
		err = errors.Unwrap(ce)
	}
	return "", false
}
