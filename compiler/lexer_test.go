package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) [ ] { } , ; : . => ? ?? .. ..< ++ -- += -= *= /= // ** >>> >> << <= >= == != && || ! ~ & | ^ %`
	expected := []TokenType{
		TokenLParen, TokenRParen, TokenLBracket, TokenRBracket, TokenLBrace, TokenRBrace,
		TokenComma, TokenSemicolon, TokenColon, TokenDot, TokenArrow, TokenQuestion,
		TokenQuestionQ, TokenDotDot, TokenDotDotLess, TokenPlusPlus, TokenMinusMinus,
		TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
		TokenSlashSlash, TokenStarStar, TokenShiftRightU, TokenShiftRight, TokenShiftLeft,
		TokenLessEqual, TokenGreaterEqual, TokenEqual, TokenNotEqual, TokenAndAnd, TokenOrOr,
		TokenBang, TokenTilde, TokenAmp, TokenPipe, TokenCaret, TokenPercent, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"var", TokenVar},
		{"val", TokenVal},
		{"function", TokenFunction},
		{"instanceof", TokenInstanceof},
		{"undefined", TokenUndefined},
		{"step", TokenIdentifier},
		{"variable", TokenIdentifier},
		{"_tmp1", TokenIdentifier},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.want {
			t.Errorf("NewLexer(%q).NextToken() type = %v, want %v", tt.input, tok.Type, tt.want)
		}
		if tok.Literal != tt.input {
			t.Errorf("NewLexer(%q).NextToken() literal = %q, want %q", tt.input, tok.Literal, tt.input)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"42", TokenInteger, "42"},
		{"1_000", TokenInteger, "1_000"},
		{"0xFF", TokenInteger, "0xFF"},
		{"0b1010", TokenInteger, "0b1010"},
		{"3.14", TokenFloat, "3.14"},
		{"1e10", TokenFloat, "1e10"},
		{"2.5e-3", TokenFloat, "2.5e-3"},
		{"1.5f", TokenFloat, "1.5f"},
		{"0x", TokenError, "malformed number literal"},
		{"12abc", TokenError, "malformed number literal"},
		{"1e+", TokenError, "malformed exponent"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.lit {
			t.Errorf("NewLexer(%q).NextToken() = %v %q, want %v %q", tt.input, tok.Type, tok.Literal, tt.typ, tt.lit)
		}
	}
}

func TestLexerRangeIsNotFloat(t *testing.T) {
	tokens := NewLexer("1..<4").Tokenize()
	want := []TokenType{TokenInteger, TokenDotDotLess, TokenInteger, TokenEOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i := range want {
		if tokens[i].Type != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i].Type, want[i])
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\tb\nc"`, "a\tb\nc"},
		{`"quote \" inside"`, `quote " inside`},
		{`'it\'s'`, "it's"},
		{`"\x41é\u{1F600}"`, "Aé\U0001F600"},
		{`"\0"`, "\x00"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("NewLexer(%q) type = %v, want STRING", tt.input, tok.Type)
			continue
		}
		if tok.Literal != tt.want {
			t.Errorf("NewLexer(%q) literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}
}

func TestLexerStringErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"open`, "unterminated string literal"},
		{"\"line\nbreak\"", "unterminated string literal"},
		{`"\q"`, "invalid escape sequence"},
		{`"\u{110000}"`, "invalid escape sequence"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenError || tok.Literal != tt.want {
			t.Errorf("NewLexer(%q) = %v, want ERROR(%s)", tt.input, tok, tt.want)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := "a # line comment\n/* block\n comment */ b"
	tokens := NewLexer(input).Tokenize()
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3: %v", len(tokens), tokens)
	}
	if tokens[0].Literal != "a" || tokens[1].Literal != "b" {
		t.Errorf("tokens = %v, want a b EOF", tokens)
	}
	if !tokens[1].NewlineBefore {
		t.Error("b.NewlineBefore = false, want true")
	}
	if tokens[0].NewlineBefore {
		t.Error("a.NewlineBefore = true, want false")
	}

	tok := NewLexer("/* never closed").NextToken()
	if tok.Type != TokenError {
		t.Errorf("unterminated block comment = %v, want ERROR", tok)
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := NewLexer("var x\n  = 10").Tokenize()
	want := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 4, Line: 1, Column: 5},
		{Offset: 8, Line: 2, Column: 3},
		{Offset: 10, Line: 2, Column: 5},
	}
	for i, w := range want {
		if tokens[i].Pos != w {
			t.Errorf("token[%d] pos = %+v, want %+v", i, tokens[i].Pos, w)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	tokens := NewLexer("a @ b").Tokenize()
	last := tokens[len(tokens)-1]
	if last.Type != TokenError {
		t.Fatalf("last token = %v, want ERROR", last)
	}
	if last.Pos.Column != 3 {
		t.Errorf("error column = %d, want 3", last.Pos.Column)
	}
}
