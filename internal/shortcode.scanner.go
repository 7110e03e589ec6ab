package internal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Position represents a location in the source text
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Directive is one bracketed directive occurrence found in the source.
type Directive struct {
	Name         string     // Directive name (e.g., "field", "list")
	Attributes   Attributes // Attributes exactly as written
	InnerContent string     // Enclosed text for block directives
	FullMatch    string     // Verbatim substring consumed from the source
	SelfClosing  bool       // False only for [name]...[/name] blocks
	Position     Position   // Where FullMatch starts
}

// End returns the byte offset just past FullMatch.
func (d Directive) End() int {
	return d.Position.Offset + len(d.FullMatch)
}

// String returns a string representation
func (d Directive) String() string {
	match := d.FullMatch
	if len(match) > MaxStringDisplayLength {
		match = match[:TruncatedStringLength] + TruncationSuffix
	}
	if d.SelfClosing {
		return fmt.Sprintf("Directive{%s, self-close, attrs=%v, %q @ %s}", d.Name, d.Attributes, match, d.Position)
	}
	return fmt.Sprintf("Directive{%s, block, attrs=%v, %q @ %s}", d.Name, d.Attributes, match, d.Position)
}

// Scanner finds directives in free-form text. It never fails: anything
// that does not match the directive grammar is left for the caller to treat
// as literal text.
type Scanner struct {
	source string
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	logger *zap.Logger
	// blocks reports whether name may take the [name]...[/name] form.
	// Nil allows every name.
	blocks func(name string) bool
}

// scanState is a saved cursor used for backtracking.
type scanState struct {
	pos    int
	line   int
	column int
}

// NewScanner creates a new scanner over source.
func NewScanner(source string, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgScannerCreated, zap.Int(LogFieldSource, len(source)))
	return &Scanner{
		source: source,
		pos:    0,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// WithBlockFilter restricts the block form to names for which allow returns
// true. Other names are scanned as their opening tag only, so directives
// between that tag and its [/name] are found on their own.
func (s *Scanner) WithBlockFilter(allow func(name string) bool) *Scanner {
	s.blocks = allow
	return s
}

// Scan returns every directive in source order.
func (s *Scanner) Scan() []Directive {
	s.logger.Debug(LogMsgScanStart)
	var directives []Directive

	for !s.isAtEnd() {
		idx := strings.IndexByte(s.source[s.pos:], CharOpenBracket)
		if idx < 0 {
			break
		}
		s.advanceN(idx)

		// [[name]] is an escaped directive and stays literal
		if s.matchStr(StrEscapedOpen) {
			s.advanceN(len(StrEscapedOpen))
			continue
		}

		// A stray closing tag is plain text
		if s.matchStr(StrBlockClose) {
			s.advance()
			continue
		}

		saved := s.save()
		directive, ok := s.scanDirective()
		if !ok {
			s.restore(saved)
			s.logger.Debug(LogMsgScanSkipped,
				zap.Int(LogFieldLine, saved.line),
				zap.Int(LogFieldColumn, saved.column))
			s.advance()
			continue
		}
		directives = append(directives, directive)
	}

	s.logger.Debug(LogMsgScanEnd, zap.Int(LogFieldDirectives, len(directives)))
	return directives
}

// scanDirective scans one directive starting at '['. On failure the cursor
// is left wherever scanning stopped; the caller restores it.
func (s *Scanner) scanDirective() (Directive, bool) {
	start := s.currentPosition()
	s.advance() // consume '['

	name := s.scanIdentifier()
	if name == "" {
		return Directive{}, false
	}

	attrs := make(Attributes)
	explicitSelfClose := false
	for {
		s.skipWhitespace()
		if s.isAtEnd() {
			return Directive{}, false
		}
		if s.matchStr(StrSelfClose) {
			s.advanceN(len(StrSelfClose))
			explicitSelfClose = true
			break
		}
		if s.peek() == CharCloseBracket {
			s.advance()
			break
		}

		key := s.scanIdentifier()
		if key == "" {
			return Directive{}, false
		}
		s.skipWhitespace()
		if s.peek() != CharEquals {
			// Bare flag; the handler decides what presence means
			attrs[key] = StringValueEmpty
			continue
		}
		s.advance() // consume '='
		s.skipWhitespace()
		value, ok := s.scanAttrValue()
		if !ok {
			return Directive{}, false
		}
		attrs[key] = value
	}

	directive := Directive{
		Name:        name,
		Attributes:  attrs,
		SelfClosing: true,
		Position:    start,
	}

	if !explicitSelfClose && (s.blocks == nil || s.blocks(name)) {
		if inner, closeLen, ok := s.findBlockClose(name); ok {
			directive.InnerContent = inner
			directive.SelfClosing = false
			s.advanceN(len(inner) + closeLen)
		}
	}

	directive.FullMatch = s.source[start.Offset:s.pos]
	return directive, true
}

// findBlockClose looks for [/name] after the cursor. A second opening
// [name ...] before the close means the current directive is self-closing.
func (s *Scanner) findBlockClose(name string) (string, int, bool) {
	rest := s.source[s.pos:]
	closeTag := StrBlockClose + name + StrCloseDelim
	closeIdx := strings.Index(rest, closeTag)
	if closeIdx < 0 {
		return "", 0, false
	}
	if openIdx := indexOpening(rest[:closeIdx], name); openIdx >= 0 {
		return "", 0, false
	}
	return rest[:closeIdx], len(closeTag), true
}

// indexOpening finds "[name" followed by a tag boundary.
func indexOpening(text, name string) int {
	needle := StrOpenDelim + name
	offset := 0
	for {
		idx := strings.Index(text[offset:], needle)
		if idx < 0 {
			return -1
		}
		end := offset + idx + len(needle)
		if end >= len(text) || isTagBoundary(text[end]) {
			return offset + idx
		}
		offset = end
	}
}

func isTagBoundary(ch byte) bool {
	return ch == CharCloseBracket || ch == CharSlash || isWhitespace(ch)
}

// scanIdentifier scans a directive or attribute name
func (s *Scanner) scanIdentifier() string {
	var sb strings.Builder

	// First character must be letter or underscore
	if !s.isAtEnd() && (isLetter(s.peek()) || s.peek() == '_') {
		sb.WriteByte(s.advance())
	} else {
		return ""
	}

	// Subsequent characters can be letter, digit, underscore, or hyphen
	for !s.isAtEnd() {
		ch := s.peek()
		if isLetter(ch) || isDigit(ch) || ch == '_' || ch == '-' {
			sb.WriteByte(s.advance())
		} else {
			break
		}
	}

	return sb.String()
}

// scanAttrValue scans a quoted or bare attribute value
func (s *Scanner) scanAttrValue() (string, bool) {
	if s.isAtEnd() {
		return "", false
	}

	quote := s.peek()
	if quote != CharDoubleQuote && quote != CharSingleQuote {
		return s.scanBareValue()
	}
	s.advance() // consume opening quote

	var sb strings.Builder
	for !s.isAtEnd() {
		ch := s.peek()

		if ch == quote {
			s.advance()
			return sb.String(), true
		}

		// Handle escape sequences within strings
		if ch == CharBackslash && s.pos+1 < len(s.source) {
			nextCh := s.source[s.pos+1]
			if nextCh == quote || nextCh == CharBackslash {
				s.advance()
				sb.WriteByte(s.advance())
				continue
			}
		}

		sb.WriteByte(s.advance())
	}

	return "", false
}

// scanBareValue scans an unquoted token up to whitespace or the tag end
func (s *Scanner) scanBareValue() (string, bool) {
	var sb strings.Builder
	for !s.isAtEnd() {
		ch := s.peek()
		if isWhitespace(ch) || ch == CharCloseBracket || ch == CharOpenBracket ||
			ch == CharDoubleQuote || ch == CharSingleQuote || s.matchStr(StrSelfClose) {
			break
		}
		sb.WriteByte(s.advance())
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// Helper methods

func (s *Scanner) currentPosition() Position {
	return Position{
		Offset: s.pos,
		Line:   s.line,
		Column: s.column,
	}
}

func (s *Scanner) save() scanState {
	return scanState{pos: s.pos, line: s.line, column: s.column}
}

func (s *Scanner) restore(st scanState) {
	s.pos = st.pos
	s.line = st.line
	s.column = st.column
}

func (s *Scanner) isAtEnd() bool {
	return s.pos >= len(s.source)
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *Scanner) advance() byte {
	if s.isAtEnd() {
		return 0
	}
	ch := s.source[s.pos]
	s.pos++
	if ch == CharNewline {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return ch
}

func (s *Scanner) advanceN(n int) {
	for i := 0; i < n && !s.isAtEnd(); i++ {
		s.advance()
	}
}

func (s *Scanner) matchStr(str string) bool {
	return strings.HasPrefix(s.source[s.pos:], str)
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() && isWhitespace(s.peek()) {
		s.advance()
	}
}

// Character classification helpers

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWhitespace(ch byte) bool {
	return ch == CharSpace || ch == CharTab || ch == CharNewline || ch == CharCarriageRet
}

// Scan is a convenience wrapper returning the directives in source.
func Scan(source string, logger *zap.Logger) []Directive {
	return NewScanner(source, logger).Scan()
}

// ScanBlocks is Scan with the block form limited to names allow accepts.
func ScanBlocks(source string, logger *zap.Logger, allow func(name string) bool) []Directive {
	return NewScanner(source, logger).WithBlockFilter(allow).Scan()
}
