package basic

// Library name
const LibraryName = "basic"

// Action names
const (
	ActionSet     = "set"
	ActionIf      = "if"
	ActionEach    = "each"
	ActionInclude = "include"
	ActionEcho    = "echo"
	ActionScope   = "scope"
	ActionNow     = "now"
)

// Contribution names
const (
	ContribSkip     = "skip"
	ContribWhen     = "when"
	ContribIndent   = "indent"
	ContribCapture  = "capture"
	ContribSanitize = "sanitize"
)

// Function names
const (
	FuncUpper = "upper"
	FuncLower = "lower"
	FuncJoin  = "join"
	FuncTrim  = "trim"
)

// Parameter names
const (
	ParamName     = "name"
	ParamValue    = "value"
	ParamScope    = "scope"
	ParamTest     = "test"
	ParamItems    = "items"
	ParamVar      = "var"
	ParamIndex    = "index"
	ParamTemplate = "template"
	ParamParser   = "parser"
	ParamPrefix   = "prefix"
	ParamPolicy   = "policy"
	ParamFormat   = "format"
)

// Sanitize policy names
const (
	PolicyStrict = "strict"
	PolicyUGC    = "ugc"
)

// DynamicIncludePrefix marks action names resolved as template includes:
// "% @header title=Hi" includes the template "header".
const DynamicIncludePrefix = "@"

// ImplicitClock is the implicit object installed by ClockEnricher.
const ImplicitClock = "clock"

// Default values
const (
	DefaultEachVar    = "item"
	DefaultTimeFormat = "2006-01-02T15:04:05Z07:00"
	ListSeparator     = ","
	eachScopePrefix   = "each:"
)

// Error message constants
const (
	ErrMsgNotAList        = "value is not a list"
	ErrMsgUnsupportedType = "cannot convert value to target type"
	ErrMsgUnknownPolicy   = "unknown sanitize policy"
	ErrMsgNotAString      = "argument is not a string"
	ErrMsgArgumentCount   = "wrong number of arguments"
	ErrMsgNotAClock       = "implicit clock object has unexpected type"
	ErrMsgCaptureNoName   = "capture requires a variable name"
)
