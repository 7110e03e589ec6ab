package main

import "time"

// Command names
const (
	CmdNameRender  = "render"
	CmdNameParse   = "parse"
	CmdNameServe   = "serve"
	CmdNameVersion = "version"
)

// Flag names - long form
const (
	FlagInput    = "input"
	FlagConfig   = "config"
	FlagFixture  = "fixture"
	FlagOutput   = "output"
	FlagFormat   = "format"
	FlagPostID   = "post-id"
	FlagPostType = "post-type"
	FlagUserID   = "user-id"
	FlagLocale   = "locale"
	FlagTimeout  = "timeout"
	FlagAddr     = "addr"
	FlagVerbose  = "verbose"
)

// Flag names - short form
const (
	FlagInputShort   = "i"
	FlagConfigShort  = "c"
	FlagOutputShort  = "o"
	FlagFormatShort  = "F"
	FlagVerboseShort = "v"
)

// Flag default values
const (
	FlagDefaultInput   = "-" // stdin
	FlagDefaultOutput  = "-" // stdout
	FlagDefaultFormat  = "text"
	FlagDefaultAddr    = ":8080"
	FlagDefaultTimeout = 30 * time.Second
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeUsageError = 2
	ExitCodeInputError = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgReadInputFailed   = "failed to read input"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgEngineFailed      = "failed to create engine"
	ErrMsgRenderFailed      = "render failed"
	ErrMsgInvalidFormat     = "invalid output format"
	ErrMsgServeFailed       = "server failed"
	ErrMsgInvalidRequest    = "invalid request body"
	ErrMsgInvalidPostID     = "invalid post_id"
)

// CLI metadata
const (
	CLIName             = "shortcode"
	CLIDescription      = "Shortcode directive rendering CLI"
	CLIShortRender      = "Render directives in a text"
	CLIShortParse       = "List the directives found in a text"
	CLIShortServe       = "Serve the render API over HTTP"
	CLIShortVersion     = "Show version information"
	CLIRenderExample    = "  shortcode render -i page.txt -c shortcode.yaml --post-id 42\n  cat page.txt | shortcode render --fixture content.yaml --post-id 1"
	CLIParseExample     = "  shortcode parse -i page.txt -F json"
	CLIServeExample     = "  shortcode serve -c shortcode.yaml --addr :8080"
	CLIFlagUsageInput   = `input file (use "-" for stdin)`
	CLIFlagUsageConfig  = "engine configuration file (YAML)"
	CLIFlagUsageFixture = "content fixture file (YAML or JSON) served from memory"
	CLIFlagUsageOutput  = `output file (use "-" for stdout)`
	CLIFlagUsageFormat  = "output format: text, json"
	CLIFlagUsagePostID  = "ambient content item id"
	CLIFlagUsagePostTyp = "ambient content item type"
	CLIFlagUsageUserID  = "viewer id"
	CLIFlagUsageLocale  = "locale for this render (e.g. de-DE)"
	CLIFlagUsageTimeout = "overall render timeout"
	CLIFlagUsageAddr    = "listen address"
	CLIFlagUsageVerbose = "log to stderr"
)

// Version output format templates
const (
	VersionTextTemplate = "go-shortcode version %s\nCommit: %s\nBranch: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Parse text output
const (
	ParseTextLineFormat   = "%d:%d\t%s\t%s\t%s\n"
	ParseTextRegistered   = "registered"
	ParseTextUnregistered = "literal"
	ParseTextSummary      = "%d directive(s)\n"
)

// HTTP API routes and fields
const (
	RouteHealth   = "/healthz"
	RouteGroupV1  = "/v1"
	RouteRender   = "/render"
	RouteParse    = "/parse"
	RouteHandlers = "/handlers"
	RouteCache    = "/cache"

	QueryPostID = "post_id"
	QueryType   = "type"

	ServerReadHeaderTimeout = 10 * time.Second
	ServerShutdownTimeout   = 10 * time.Second
)

// Log message constants
const (
	LogMsgServerStarting = "server starting"
	LogMsgServerStopped  = "server stopped"
	LogMsgRequest        = "request"
)

// Log field names
const (
	LogFieldAddr    = "addr"
	LogFieldMethod  = "method"
	LogFieldPath    = "path"
	LogFieldStatus  = "status"
	LogFieldLatency = "latency"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithCause = "%s: %v\n"
)
