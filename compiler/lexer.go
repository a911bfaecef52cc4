package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Slate syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Slate source code.
type Lexer struct {
	input   string
	pos     int  // offset of ch
	readPos int  // offset after ch
	ch      rune // current character, 0 at end of input
	line    int  // line of ch (1-based)
	col     int  // column of ch (1-based, in runes)
	newline bool // a line break was skipped before the next token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// Tokenize lexes the whole input. The last token is EOF or the first
// ERROR encountered.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.newline = false
	if msg := l.skipWhitespaceAndComments(); msg != "" {
		return Token{Type: TokenError, Literal: msg, Pos: l.position()}
	}
	tok := l.scan()
	tok.NewlineBefore = l.newline
	return tok
}

func (l *Lexer) scan() Token {
	pos := l.position()
	single := func(t TokenType) Token {
		l.readChar()
		return Token{Type: t, Literal: t.String(), Pos: pos}
	}
	// choose consumes the current character, then the longest of the
	// given follow-ups that matches.
	choose := func(base TokenType, follow map[rune]TokenType) Token {
		l.readChar()
		if t, ok := follow[l.ch]; ok {
			l.readChar()
			return Token{Type: t, Literal: t.String(), Pos: pos}
		}
		return Token{Type: base, Literal: base.String(), Pos: pos}
	}

	switch ch := l.ch; {
	case ch == 0:
		return Token{Type: TokenEOF, Pos: pos}
	case ch == '(':
		return single(TokenLParen)
	case ch == ')':
		return single(TokenRParen)
	case ch == '[':
		return single(TokenLBracket)
	case ch == ']':
		return single(TokenRBracket)
	case ch == '{':
		return single(TokenLBrace)
	case ch == '}':
		return single(TokenRBrace)
	case ch == ',':
		return single(TokenComma)
	case ch == ';':
		return single(TokenSemicolon)
	case ch == ':':
		return single(TokenColon)
	case ch == '~':
		return single(TokenTilde)
	case ch == '^':
		return single(TokenCaret)
	case ch == '%':
		return single(TokenPercent)

	case ch == '.':
		l.readChar()
		if l.ch != '.' {
			return Token{Type: TokenDot, Literal: ".", Pos: pos}
		}
		l.readChar()
		if l.ch == '<' {
			l.readChar()
			return Token{Type: TokenDotDotLess, Literal: "..<", Pos: pos}
		}
		return Token{Type: TokenDotDot, Literal: "..", Pos: pos}

	case ch == '+':
		return choose(TokenPlus, map[rune]TokenType{'+': TokenPlusPlus, '=': TokenPlusAssign})
	case ch == '-':
		return choose(TokenMinus, map[rune]TokenType{'-': TokenMinusMinus, '=': TokenMinusAssign})
	case ch == '*':
		return choose(TokenStar, map[rune]TokenType{'*': TokenStarStar, '=': TokenStarAssign})
	case ch == '/':
		return choose(TokenSlash, map[rune]TokenType{'/': TokenSlashSlash, '=': TokenSlashAssign})
	case ch == '=':
		return choose(TokenAssign, map[rune]TokenType{'=': TokenEqual, '>': TokenArrow})
	case ch == '!':
		return choose(TokenBang, map[rune]TokenType{'=': TokenNotEqual})
	case ch == '&':
		return choose(TokenAmp, map[rune]TokenType{'&': TokenAndAnd})
	case ch == '|':
		return choose(TokenPipe, map[rune]TokenType{'|': TokenOrOr})
	case ch == '?':
		return choose(TokenQuestion, map[rune]TokenType{'?': TokenQuestionQ})
	case ch == '<':
		return choose(TokenLess, map[rune]TokenType{'=': TokenLessEqual, '<': TokenShiftLeft})

	case ch == '>':
		l.readChar()
		switch l.ch {
		case '=':
			l.readChar()
			return Token{Type: TokenGreaterEqual, Literal: ">=", Pos: pos}
		case '>':
			l.readChar()
			if l.ch == '>' {
				l.readChar()
				return Token{Type: TokenShiftRightU, Literal: ">>>", Pos: pos}
			}
			return Token{Type: TokenShiftRight, Literal: ">>", Pos: pos}
		}
		return Token{Type: TokenGreater, Literal: ">", Pos: pos}

	case ch == '"' || ch == '\'':
		return l.readString(pos)

	case isDigit(ch):
		return l.readNumber(pos)

	case isLetter(ch) || ch == '_':
		return l.readIdentifier(pos)
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", ch), Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, `# ...` line comments and
// `/* ... */` block comments. It returns a message for an unterminated
// block comment.
func (l *Lexer) skipWhitespaceAndComments() string {
	for {
		switch {
		case l.ch == '\n':
			l.newline = true
			l.readChar()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.ch == 0 {
					return "unterminated block comment"
				}
				if l.ch == '\n' {
					l.newline = true
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return ""
		}
	}
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if t, ok := reservedWords[word]; ok {
		return Token{Type: t, Literal: word, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
}

// readNumber reads an integer or float literal. A trailing 'f' marks a
// float32 literal; the suffix is kept in Literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X' || l.peekChar() == 'b' || l.peekChar() == 'B') {
		l.readChar()
		hex := l.ch == 'x' || l.ch == 'X'
		l.readChar()
		digits := l.pos
		for isDigit(l.ch) || l.ch == '_' || hex && isHexLetter(l.ch) {
			l.readChar()
		}
		if l.pos == digits {
			return Token{Type: TokenError, Literal: "malformed number literal", Pos: pos}
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	// "1..2" is a range, "1.foo" a property access.
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return Token{Type: TokenError, Literal: "malformed exponent", Pos: pos}
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	if l.ch == 'f' || l.ch == 'F' {
		isFloat = true
		l.readChar()
	}
	if isLetter(l.ch) {
		return Token{Type: TokenError, Literal: "malformed number literal", Pos: pos}
	}
	if isFloat {
		return Token{Type: TokenFloat, Literal: l.input[start:l.pos], Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a quoted string and decodes its escapes.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()
	var sb strings.Builder
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string literal", Pos: pos}
		case '\\':
			l.readChar()
			r, ok := l.readEscape()
			if !ok {
				return Token{Type: TokenError, Literal: "invalid escape sequence", Pos: pos}
			}
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar()
	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readEscape decodes the escape whose first character is current and
// leaves the lexer after it.
func (l *Lexer) readEscape() (rune, bool) {
	simple := map[rune]rune{
		'n': '\n', 't': '\t', 'r': '\r', '0': 0, '\\': '\\', '"': '"', '\'': '\'',
		'b': '\b', 'f': '\f', 'v': '\v',
	}
	if r, ok := simple[l.ch]; ok {
		l.readChar()
		return r, true
	}
	switch l.ch {
	case 'x':
		l.readChar()
		return l.readHex(2)
	case 'u':
		l.readChar()
		if l.ch != '{' {
			return l.readHex(4)
		}
		l.readChar()
		start := l.pos
		for isDigit(l.ch) || isHexLetter(l.ch) {
			l.readChar()
		}
		n, err := strconv.ParseUint(l.input[start:l.pos], 16, 32)
		if err != nil || l.ch != '}' || !utf8.ValidRune(rune(n)) {
			return 0, false
		}
		l.readChar()
		return rune(n), true
	}
	return 0, false
}

func (l *Lexer) readHex(n int) (rune, bool) {
	start := l.pos
	for i := 0; i < n; i++ {
		if !isDigit(l.ch) && !isHexLetter(l.ch) {
			return 0, false
		}
		l.readChar()
	}
	v, err := strconv.ParseUint(l.input[start:l.pos], 16, 32)
	return rune(v), err == nil
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexLetter(r rune) bool {
	return r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}
