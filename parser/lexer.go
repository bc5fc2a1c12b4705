package parser

import (
	"regexp"
	"strings"
)

// tokenSplit separates a token stream on commas and/or whitespace, the
// way the reference assembler's tokenizer does.
var tokenSplit = regexp.MustCompile(`[,\s]+`)

// StripComment removes a trailing `;`-delimited comment. It matches the
// reference assembler's naive `line.split(";")[0]` behavior: a `;`
// appearing inside a string literal also terminates the line, so string
// data must not contain a literal semicolon.
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// SplitLabel detects an optional leading `label:` prefix on a line. A
// colon is only treated as a label separator if it appears strictly
// before the first `"` on the line (so a colon inside a string literal,
// e.g. `label: instr "colon:inside"`, is not mistaken for a second
// label). It returns the label name (empty if none), and the remainder
// of the line after the label prefix (or the whole line if no label was
// found).
func SplitLabel(line string) (label string, rest string) {
	colonIdx := strings.IndexByte(line, ':')
	if colonIdx < 0 {
		return "", line
	}
	quoteIdx := strings.IndexByte(line, '"')
	if quoteIdx >= 0 && quoteIdx < colonIdx {
		return "", line
	}
	return strings.TrimSpace(line[:colonIdx]), line[colonIdx+1:]
}

// Tokenize splits the remainder of a line (after label/comment removal)
// into whitespace/comma-separated tokens. A leading string literal (for
// .DS/.STRING directives) is extracted whole, before the rest is
// tokenized, so commas or spaces inside the string do not split it.
func Tokenize(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	if content, end, ok := ExtractStringLiteral(rest); ok {
		before := strings.TrimSpace(rest[:strings.IndexAny(rest, "\"'")])
		after := strings.TrimSpace(rest[end:])
		tokens := []string{}
		if before != "" {
			tokens = append(tokens, splitPlain(before)...)
		}
		tokens = append(tokens, "\""+content+"\"")
		if after != "" {
			tokens = append(tokens, splitPlain(after)...)
		}
		return tokens
	}

	return splitPlain(rest)
}

func splitPlain(s string) []string {
	fields := tokenSplit.Split(strings.TrimSpace(s), -1)
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
