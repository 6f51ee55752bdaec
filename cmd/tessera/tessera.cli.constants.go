package main

// Command names
const (
	CmdNameRender  = "render"
	CmdNameCheck   = "check"
	CmdNameVersion = "version"
	CmdNameHelp    = "help"
)

// Flag names - long form
const (
	FlagDir      = "dir"
	FlagConfig   = "config"
	FlagParser   = "parser"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagOutput   = "output"
	FlagVerbose  = "verbose"
	FlagFormat   = "format"
)

// Flag names - short form
const (
	FlagDirShort      = "d"
	FlagConfigShort   = "c"
	FlagParserShort   = "p"
	FlagDataFileShort = "f"
	FlagOutputShort   = "o"
	FlagVerboseShort  = "v"
	FlagFormatShort   = "F"
)

// Flag default values
const (
	FlagDefaultDir    = "."
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// VarArgs is the list variable holding the positional render arguments.
const VarArgs = "args"

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingTemplate   = "template name required"
	ErrMsgInvalidFlags      = "invalid flags"
	ErrMsgInvalidJSON       = "invalid JSON data"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgEngineFailed      = "failed to set up engine"
	ErrMsgRenderFailed      = "render failed"
	ErrMsgCheckFailed       = "template check failed"
	ErrMsgInvalidFormat     = "invalid output format"
)

// Help text templates
const (
	HelpMainUsage = `tessera - template engine CLI

Usage:
    tessera <command> [options]

Commands:
    render      Render a template
    check       Parse templates without rendering them
    version     Show version information
    help        Show help for a command

Use "tessera help <command>" for more information about a command.`

	HelpRenderUsage = `Render a template

Usage:
    tessera render [options] <template> [args...]

Options:
    -d, --dir <path>        Template directory (default: .)
    -c, --config <file>     YAML config file, replaces --dir
    -p, --parser <name>     Parser name (default: text)
    --data <json>           JSON object of variables
    -f, --data-file <file>  JSON variables file (use "-" for stdin)
    -o, --output <file>     Output file (default: stdout)
    -v, --verbose           Log engine activity to stderr

Positional arguments after the template name are available as the list
variable "args".

Examples:
    tessera render -d templates greeting Alice Bob
    tessera render -c tessera.yaml --data '{"name": "Alice"}' mail/welcome`

	HelpCheckUsage = `Parse templates without rendering them

Usage:
    tessera check [options] <template>...

Options:
    -d, --dir <path>        Template directory (default: .)
    -c, --config <file>     YAML config file, replaces --dir
    -p, --parser <name>     Parser name (default: text)`

	HelpVersionUsage = `Show version information and the bundled library's
actions, contributions and functions

Usage:
    tessera version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    tessera help [command]

Commands:
    render      Show help for render command
    check       Show help for check command
    version     Show help for version command`
)

// Version report
const (
	VersionTextHeader         = "%s %s (revision %s, %s)\n"
	VersionTextLibrary        = "library: %s\n"
	VersionTextList           = "  %-14s %s\n"
	VersionLabelActions       = "actions"
	VersionLabelContributions = "contributions"
	VersionLabelFunctions     = "functions"
	VersionUnknown            = "unknown"
	VersionDevel              = "(devel)"
	BuildSettingRevision      = "vcs.revision"
	ListSeparator             = ", "
)

// Check output
const (
	CheckTextOK      = "ok"
	CheckTextSummary = "%d template(s), %d failed"
)

// CLI metadata
const (
	CLIName = "tessera"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtCheckLine       = "%s: %s\n"
	FmtNewline         = "\n"
)
