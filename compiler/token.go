package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Slate lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 0xFF, 0b1010
	TokenFloat      // 3.14, 1e10, 1.5f
	TokenString     // "hello", 'hello'
	TokenIdentifier // foo, Bar

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenDot       // .
	TokenArrow     // =>
	TokenQuestion  // ?

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenSlashSlash   // //
	TokenPercent      // %
	TokenStarStar     // **
	TokenAssign       // =
	TokenPlusAssign   // +=
	TokenMinusAssign  // -=
	TokenStarAssign   // *=
	TokenSlashAssign  // /=
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenAndAnd       // &&
	TokenOrOr         // ||
	TokenBang         // !
	TokenTilde        // ~
	TokenAmp          // &
	TokenPipe         // |
	TokenCaret        // ^
	TokenShiftLeft    // <<
	TokenShiftRight   // >>
	TokenShiftRightU  // >>>
	TokenQuestionQ    // ??
	TokenDotDot       // ..
	TokenDotDotLess   // ..<
	TokenPlusPlus     // ++
	TokenMinusMinus   // --

	// Reserved words
	TokenVar
	TokenVal
	TokenFunction
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenBreak
	TokenContinue
	TokenReturn
	TokenImport
	TokenAs
	TokenTrue
	TokenFalse
	TokenNull
	TokenUndefined
	TokenInstanceof
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenError:        "ERROR",
	TokenInteger:      "INTEGER",
	TokenFloat:        "FLOAT",
	TokenString:       "STRING",
	TokenIdentifier:   "IDENTIFIER",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenLBracket:     "[",
	TokenRBracket:     "]",
	TokenLBrace:       "{",
	TokenRBrace:       "}",
	TokenComma:        ",",
	TokenSemicolon:    ";",
	TokenColon:        ":",
	TokenDot:          ".",
	TokenArrow:        "=>",
	TokenQuestion:     "?",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenSlashSlash:   "//",
	TokenPercent:      "%",
	TokenStarStar:     "**",
	TokenAssign:       "=",
	TokenPlusAssign:   "+=",
	TokenMinusAssign:  "-=",
	TokenStarAssign:   "*=",
	TokenSlashAssign:  "/=",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAndAnd:       "&&",
	TokenOrOr:         "||",
	TokenBang:         "!",
	TokenTilde:        "~",
	TokenAmp:          "&",
	TokenPipe:         "|",
	TokenCaret:        "^",
	TokenShiftLeft:    "<<",
	TokenShiftRight:   ">>",
	TokenShiftRightU:  ">>>",
	TokenQuestionQ:    "??",
	TokenDotDot:       "..",
	TokenDotDotLess:   "..<",
	TokenPlusPlus:     "++",
	TokenMinusMinus:   "--",
	TokenVar:          "var",
	TokenVal:          "val",
	TokenFunction:     "function",
	TokenIf:           "if",
	TokenElse:         "else",
	TokenWhile:        "while",
	TokenFor:          "for",
	TokenIn:           "in",
	TokenBreak:        "break",
	TokenContinue:     "continue",
	TokenReturn:       "return",
	TokenImport:       "import",
	TokenAs:           "as",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNull:         "null",
	TokenUndefined:    "undefined",
	TokenInstanceof:   "instanceof",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value of a string
	Pos     Position // start position
	// NewlineBefore is set when a line break separates this token from
	// the previous one.
	NewlineBefore bool
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"var":        TokenVar,
	"val":        TokenVal,
	"function":   TokenFunction,
	"if":         TokenIf,
	"else":       TokenElse,
	"while":      TokenWhile,
	"for":        TokenFor,
	"in":         TokenIn,
	"break":      TokenBreak,
	"continue":   TokenContinue,
	"return":     TokenReturn,
	"import":     TokenImport,
	"as":         TokenAs,
	"true":       TokenTrue,
	"false":      TokenFalse,
	"null":       TokenNull,
	"undefined":  TokenUndefined,
	"instanceof": TokenInstanceof,
}

// describe renders a token for error messages.
func describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier:
		return fmt.Sprintf("identifier '%s'", t.Literal)
	case TokenInteger, TokenFloat:
		return fmt.Sprintf("number %s", t.Literal)
	case TokenString:
		return "string literal"
	}
	return fmt.Sprintf("'%s'", t.Type)
}
