// Package create implements C8, the creator: it scans @@-prefixed comment
// directives in source text, tokenizes and parses a small DSL, and
// synthesizes A2L entities from scratch (spec.md §4.8). Grounded on the
// teacher's own hand-rolled line/byte scanners -- see
// coprocessor/developer/mapfile/mapfile.go and dwarf/dwarf_process_lines.go,
// which both scan a byte stream for a fixed marker and accumulate tokens
// between markers exactly the way the @@ comment scanner does here.
package create

import (
	"unicode/utf8"

	"github.com/jetsetilly/a2lsync/logger"
)

// Directive is one @@ ... @@ END block: its file offset and raw token
// stream (§4.8 "Emit (file-offset, tokens[]) pairs").
type Directive struct {
	Offset int
	Tokens []string
}

const marker = "@@"

// ScanAllComments implements §4.8's "Comment scanner": it reads src, finds
// // and /* */ comments, and within each comment collects consecutive @@
// lines into a directive terminated by a line containing "@@ END". A
// directive can therefore start in one // comment and continue in the next
// line's // comment, per §4.8: "Concatenate consecutive @@ lines into a
// single directive token stream terminated by a line containing @@ END."
func ScanAllComments(src []byte) []Directive {
	var out []Directive
	var collecting bool
	var startOffset int
	var raw []byte

	i := 0
	for i < len(src) {
		lineStart := i
		lineEndIdx := lineEnd(src, i)
		line := src[lineStart:lineEndIdx]

		text, isComment := stripLineComment(line)
		if !isComment {
			if blockStart, blockStop, ok := blockCommentSpan(src, lineStart); ok {
				text = src[blockStart:blockStop]
				i = blockStop
				collecting, startOffset, raw = consumeBlockText(text, collecting, startOffset, lineStart, raw, &out)
				continue
			}
			i = lineEndIdx + 1
			continue
		}

		at := indexMarker(text)
		if at < 0 {
			i = lineEndIdx + 1
			continue
		}
		body := text[at+len(marker):]
		if !collecting {
			collecting = true
			startOffset = lineStart
			raw = nil
		}
		trimmed := trimSpace(body)
		if trimmed == "END" {
			out = append(out, Directive{Offset: startOffset, Tokens: tokenize(string(raw))})
			collecting = false
			raw = nil
		} else {
			raw = append(raw, body...)
			raw = append(raw, ' ')
		}
		i = lineEndIdx + 1
	}
	return out
}

func consumeBlockText(text []byte, collecting bool, startOffset, lineStart int, raw []byte, out *[]Directive) (bool, int, []byte) {
	for _, ln := range splitLines(text) {
		at := indexMarker(ln)
		if at < 0 {
			continue
		}
		body := ln[at+len(marker):]
		if !collecting {
			collecting = true
			startOffset = lineStart
			raw = nil
		}
		trimmed := trimSpace(body)
		if trimmed == "END" {
			*out = append(*out, Directive{Offset: startOffset, Tokens: tokenize(string(raw))})
			collecting = false
			raw = nil
		} else {
			raw = append(raw, body...)
			raw = append(raw, ' ')
		}
	}
	return collecting, startOffset, raw
}

func indexMarker(line []byte) int {
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '@' && line[i+1] == '@' {
			return i
		}
	}
	return -1
}

func stripLineComment(line []byte) ([]byte, bool) {
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' {
			return line[i+2:], true
		}
	}
	return nil, false
}

func blockCommentSpan(src []byte, from int) (int, int, bool) {
	start := -1
	for i := from; i+1 < len(src); i++ {
		if src[i] == '/' && src[i+1] == '*' {
			start = i + 2
			break
		}
		if src[i] == '\n' {
			return 0, 0, false
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	stop := blockEnd(src, from)
	return start, stop, true
}

func lineEnd(src []byte, i int) int {
	for i < len(src) && src[i] != '\n' {
		i++
	}
	return i
}

func blockEnd(src []byte, i int) int {
	for i+1 < len(src) {
		if src[i] == '*' && src[i+1] == '/' {
			return i
		}
		i++
	}
	return len(src)
}

func splitLines(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(b); i++ {
		if b[i] == '\n' {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}

func trimSpace(b []byte) string {
	i, j := 0, len(b)
	for i < j && isSpace(b[i]) {
		i++
	}
	for j > i && isSpace(b[j-1]) {
		j--
	}
	return string(b[i:j])
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' }

// tokenize splits a directive's raw text into whitespace-separated tokens,
// preserving "..." string literals as single tokens (§4.8 "String literals
// surrounded by "..." are preserved as single tokens"). Tokens containing
// invalid UTF-8 are dropped with a log message and the directive is
// effectively skipped by the parser (§4.8 "causes that directive to be
// skipped with a log message").
func tokenize(s string) []string {
	var tokens []string
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == '"' {
			j := i + 1
			for j < len(s) && s[j] != '"' {
				j++
			}
			if j < len(s) {
				tok := s[i : j+1]
				if !utf8.ValidString(tok) {
					logger.Log("create", "skipped directive token with invalid UTF-8")
					return nil
				}
				tokens = append(tokens, tok)
				i = j + 1
				continue
			}
		}
		j := i
		for j < len(s) && !isSpace(s[j]) {
			j++
		}
		tok := s[i:j]
		if !utf8.ValidString(tok) {
			logger.Log("create", "skipped directive token with invalid UTF-8")
			return nil
		}
		tokens = append(tokens, tok)
		i = j
	}
	return tokens
}
