package internal

// Character constants
const (
	CharOpenBracket  = '['
	CharCloseBracket = ']'
	CharEquals       = '='
	CharDoubleQuote  = '"'
	CharSingleQuote  = '\''
	CharBackslash    = '\\'
	CharSlash        = '/'
	CharNewline      = '\n'
	CharSpace        = ' '
	CharTab          = '\t'
	CharCarriageRet  = '\r'
)

// String constants for delimiter matching
const (
	StrOpenDelim    = "["
	StrCloseDelim   = "]"
	StrSelfClose    = "/]"
	StrBlockClose   = "[/"
	StrEscapedOpen  = "[["
	StrEscapedClose = "]]"
)

// Log message constants
const (
	LogMsgScannerCreated    = "scanner created"
	LogMsgScanStart         = "starting scan"
	LogMsgScanEnd           = "scan complete"
	LogMsgScanSkipped       = "bracket text is not a directive"
	LogMsgRegistryCreated   = "registry created"
	LogMsgHandlerRegistered = "handler registered"
	LogMsgHandlerRemoved    = "handler unregistered"
	LogMsgHandlerCollision  = "handler registration collision - first-come-wins"
)

// Log field names
const (
	LogFieldSource     = "source_length"
	LogFieldDirectives = "directive_count"
	LogFieldOffset     = "offset"
	LogFieldLine       = "line"
	LogFieldColumn     = "column"
	LogFieldName       = "name"
	LogFieldExisting   = "existing"
)

// Boolean attribute values
const (
	AttrValueTrue  = "true"
	AttrValueFalse = "false"
	AttrValueYes   = "yes"
	AttrValueNo    = "no"
	AttrValueOn    = "on"
	AttrValueOff   = "off"
	AttrValueOne   = "1"
	AttrValueZero  = "0"
)

// Format strings for String() methods
const (
	FmtOpenBrace   = "{"
	FmtCloseBrace  = "}"
	FmtCommaSep    = ", "
	FmtKeyValueSep = "="
	FmtEmptyBraces = "{}"
)

// Display limits
const (
	MaxStringDisplayLength = 50
	TruncatedStringLength  = 47
	TruncationSuffix       = "..."
)

// StringValueEmpty is the empty string sentinel used in comparisons.
const StringValueEmpty = ""
