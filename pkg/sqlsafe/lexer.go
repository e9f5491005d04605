package sqlsafe

import (
	"errors"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	// TokenWord is a bare identifier or keyword.
	TokenWord TokenKind = iota
	// TokenQuotedIdent is a double-quoted identifier.
	TokenQuotedIdent
	// TokenString is a single-quoted string literal.
	TokenString
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenSymbol is any other single character (operators, punctuation).
	TokenSymbol
)

// Token is one lexical unit. Text holds the unquoted value for strings and
// quoted identifiers.
type Token struct {
	Kind TokenKind
	Text string
}

var (
	errUnterminatedString  = errors.New("unterminated string literal")
	errUnterminatedIdent   = errors.New("unterminated quoted identifier")
	errUnterminatedComment = errors.New("unterminated block comment")
)

// Tokenize lexes a SQL string. Comments and whitespace are dropped. It is
// dialect-agnostic and runs in a single pass.
func Tokenize(sql string) ([]Token, error) {
	var tokens []Token
	n := len(sql)
	pos := 0

	for pos < n {
		tok, next, err := lexOne(sql, pos, n)
		if err != nil {
			return nil, err
		}
		if tok != nil {
			tokens = append(tokens, *tok)
		}
		pos = next
	}
	return tokens, nil
}

// FirstKeyword returns the first bare word of sql, upper-cased, skipping
// comments and leading punctuation such as '('.
func FirstKeyword(sql string) (string, error) {
	tokens, err := Tokenize(sql)
	if err != nil {
		return "", err
	}
	for _, t := range tokens {
		if t.Kind == TokenWord {
			return strings.ToUpper(t.Text), nil
		}
		if t.Kind != TokenSymbol || t.Text != "(" {
			return "", nil
		}
	}
	return "", nil
}

// StatementCount returns the number of non-empty statements separated by
// top-level semicolons. Semicolons inside literals or comments do not count.
func StatementCount(sql string) (int, error) {
	tokens, err := Tokenize(sql)
	if err != nil {
		return 0, err
	}
	count := 0
	pending := false
	for _, t := range tokens {
		if t.Kind == TokenSymbol && t.Text == ";" {
			if pending {
				count++
			}
			pending = false
			continue
		}
		pending = true
	}
	if pending {
		count++
	}
	return count, nil
}

// lexOne reads one token at pos and returns it with the next position.
// A nil token means whitespace or a comment was skipped.
func lexOne(sql string, pos, n int) (*Token, int, error) {
	ch := sql[pos]

	switch {
	case isSpace(ch):
		return nil, pos + 1, nil
	case ch == '\'':
		return readQuoted(sql, pos, n, '\'', TokenString, errUnterminatedString)
	case ch == '"':
		return readQuoted(sql, pos, n, '"', TokenQuotedIdent, errUnterminatedIdent)
	case isBlockCommentStart(sql, pos, n):
		next, err := skipBlockComment(sql, pos, n)
		return nil, next, err
	case isLineCommentStart(sql, pos, n):
		return nil, skipLineComment(sql, pos, n), nil
	case isIdentStart(ch):
		word, next := readBareword(sql, pos, n)
		return &Token{Kind: TokenWord, Text: word}, next, nil
	case isDigit(ch) || (ch == '.' && pos+1 < n && isDigit(sql[pos+1])):
		num, next := readNumber(sql, pos, n)
		return &Token{Kind: TokenNumber, Text: num}, next, nil
	default:
		return &Token{Kind: TokenSymbol, Text: string(ch)}, pos + 1, nil
	}
}

// readQuoted reads a literal delimited by quote, where a doubled quote is an
// escaped quote character.
func readQuoted(sql string, pos, n int, quote byte, kind TokenKind, unterminated error) (*Token, int, error) {
	pos++ // opening quote
	var b strings.Builder
	for pos < n {
		if sql[pos] == quote {
			pos++
			if pos < n && sql[pos] == quote {
				b.WriteByte(quote)
				pos++
				continue
			}
			return &Token{Kind: kind, Text: b.String()}, pos, nil
		}
		b.WriteByte(sql[pos])
		pos++
	}
	return nil, n, unterminated
}

func isBlockCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '/' && pos+1 < n && sql[pos+1] == '*'
}

func isLineCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '-' && pos+1 < n && sql[pos+1] == '-'
}

func skipBlockComment(sql string, pos, n int) (int, error) {
	pos += 2 // skip /*
	for pos+1 < n {
		if sql[pos] == '*' && sql[pos+1] == '/' {
			return pos + 2, nil
		}
		pos++
	}
	return n, errUnterminatedComment
}

func skipLineComment(sql string, pos, n int) int {
	pos += 2 // skip --
	for pos < n && sql[pos] != '\n' {
		pos++
	}
	return pos
}

func readBareword(sql string, pos, n int) (word string, next int) {
	start := pos
	for pos < n && isIdentChar(sql[pos]) {
		pos++
	}
	return sql[start:pos], pos
}

func readNumber(sql string, pos, n int) (num string, next int) {
	start := pos
	for pos < n && (isDigit(sql[pos]) || sql[pos] == '.') {
		pos++
	}
	if pos < n && (sql[pos] == 'e' || sql[pos] == 'E') {
		exp := pos + 1
		if exp < n && (sql[exp] == '+' || sql[exp] == '-') {
			exp++
		}
		if exp < n && isDigit(sql[exp]) {
			pos = exp
			for pos < n && isDigit(sql[pos]) {
				pos++
			}
		}
	}
	return sql[start:pos], pos
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
