package memlib

import (
	"fmt"

	"cellmap/internal/source"
)

// Token is one whitespace-delimited library token. EOF is represented by
// an empty Text; once reached it is sticky.
type Token struct {
	Text string
	Span source.Span
}

// EOF reports whether this is the end-of-file token.
func (t Token) EOF() bool { return t.Text == "" }

// Lexer splits a library file into tokens, one logical line at a time.
// A `#` outside a quoted string starts a comment running to end of
// line; a trailing `;` on a token is split off so the parser can
// uniformly require terminators.
type Lexer struct {
	file *source.File
	off  uint32
	toks []Token
	idx  int
	eof  bool
}

func NewLexer(file *source.File) *Lexer {
	return &Lexer{file: file}
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() Token {
	if lx.eof {
		return Token{Span: lx.eofSpan()}
	}
	if lx.idx < len(lx.toks) {
		return lx.toks[lx.idx]
	}

	lx.toks = lx.toks[:0]
	lx.idx = 0

	for int(lx.off) < len(lx.file.Content) {
		lineStart := lx.off
		lineEnd := lineStart
		content := lx.file.Content
		for int(lineEnd) < len(content) && content[lineEnd] != '\n' {
			lineEnd++
		}
		lx.off = lineEnd
		if int(lx.off) < len(content) {
			lx.off++ // step over the newline
		}
		lx.splitLine(lineStart, lineEnd)
		if len(lx.toks) > 0 {
			return lx.toks[lx.idx]
		}
	}

	lx.eof = true
	return Token{Span: lx.eofSpan()}
}

// Next consumes and returns the next token.
func (lx *Lexer) Next() Token {
	tok := lx.Peek()
	if !lx.eof {
		lx.idx++
	}
	return tok
}

func (lx *Lexer) splitLine(start, end uint32) {
	content := lx.file.Content
	i := start
	for i < end {
		for i < end && isSpace(content[i]) {
			i++
		}
		if i >= end {
			return
		}
		tokStart := i
		inStr := false
		for i < end && !isSpace(content[i]) {
			if content[i] == '"' {
				inStr = !inStr
			} else if content[i] == '#' && !inStr {
				end = i
				break
			}
			i++
		}
		if i == tokStart {
			return
		}
		text := string(content[tokStart:i])
		if n := len(text); n > 1 && text[n-1] == ';' {
			lx.push(text[:n-1], tokStart, i-1)
			lx.push(";", i-1, i)
		} else {
			lx.push(text, tokStart, i)
		}
	}
}

func (lx *Lexer) push(text string, start, end uint32) {
	lx.toks = append(lx.toks, Token{
		Text: text,
		Span: source.Span{File: lx.file.ID, Start: start, End: end},
	})
}

func (lx *Lexer) eofSpan() source.Span {
	n := uint32(len(lx.file.Content)) //nolint:gosec // file sizes fit uint32
	return source.Span{File: lx.file.ID, Start: n, End: n}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func (t Token) String() string {
	if t.EOF() {
		return "<eof>"
	}
	return fmt.Sprintf("%q", t.Text)
}
