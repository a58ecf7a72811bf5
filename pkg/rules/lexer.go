package rules

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) emit(kind tokenKind, text string, start int) {
	l.tokens = append(l.tokens, token{kind: kind, text: text, pos: start})
}

// pair consumes a two-character operator whose second byte must be second.
func (l *lexer) pair(second byte, kind tokenKind) error {
	start := l.pos
	if l.pos+1 >= len(l.src) || l.src[l.pos+1] != second {
		return fmt.Errorf("%w: unexpected %q at %d, want %q", ErrSyntax, l.src[l.pos], start, string([]byte{l.src[l.pos], second}))
	}
	l.pos += 2
	l.emit(kind, l.src[start:l.pos], start)
	return nil
}

func (l *lexer) next() error {
	start := l.pos
	switch ch := l.src[l.pos]; ch {
	case '(':
		l.pos++
		l.emit(tokLParen, "(", start)
	case ')':
		l.pos++
		l.emit(tokRParen, ")", start)
	case '!':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '=' {
			return l.pair('=', tokNeq)
		}
		l.pos++
		l.emit(tokNot, "!", start)
	case '=':
		return l.pair('=', tokEq)
	case '&':
		return l.pair('&', tokAnd)
	case '|':
		return l.pair('|', tokOr)
	case '"', '\'':
		return l.quoted(ch)
	default:
		l.word()
	}
	return nil
}

func (l *lexer) quoted(quote byte) error {
	start := l.pos
	l.pos++
	escaped := false
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		l.pos++
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == quote:
			body := l.src[start+1 : l.pos-1]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return fmt.Errorf("%w: bad string literal at %d: %v", ErrSyntax, start, err)
			}
			l.emit(tokString, value, start)
			return nil
		}
	}
	return fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}

func (l *lexer) word() {
	start := l.pos
	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && !strings.ContainsRune("()!=&|\"'", rune(l.src[l.pos])) {
		l.pos++
	}
	text := l.src[start:l.pos]
	switch lower := strings.ToLower(text); {
	case lower == "true" || lower == "false":
		l.emit(tokBool, lower, start)
	case lower == "null" || lower == "nil":
		l.emit(tokNull, "null", start)
	case isNumber(text):
		l.emit(tokNumber, text, start)
	default:
		l.emit(tokIdent, text, start)
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isNumber(text string) bool {
	if text == "" || !strings.ContainsRune("0123456789+-.", rune(text[0])) {
		return false
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}
