// Package vparam rewrites named virtual parameters embedded in bean
// descriptor snippets into positional markers.
//
// A virtual parameter is a prefix sentinel (":" by default) followed by a
// name. The name ends at the first whitespace, arithmetic or comparison
// operator, comma or closing parenthesis, or at the end of the snippet:
//
//	Resolve("a.col = :minAge and a.col2 < :maxAge)")
//	// SQL:   "a.col = ? and a.col2 < ?)"
//	// Names: ["minAge", "maxAge"]
//
// Sentinels inside single-quoted literals and doubled sentinels (the
// PostgreSQL "::" cast) are left untouched.
package vparam

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultPrefix is the sentinel used when none is configured.
const DefaultPrefix = ":"

// terminators end a virtual parameter name, in addition to whitespace.
const terminators = "+-*/=!><,)"

// ErrSyntax is wrapped by every SyntaxError.
var ErrSyntax = errors.New("quarry: virtual parameter syntax error")

// SyntaxError reports a malformed virtual parameter token.
type SyntaxError struct {
	Snippet string
	Token   string
	Offset  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: token %q at offset %d in %q", ErrSyntax, e.Token, e.Offset, e.Snippet)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Resolution is a rewritten snippet and the parameter names bound by its
// markers. Names[i] belongs to the i-th "?" introduced by the rewrite.
type Resolution struct {
	SQL   string
	Names []string
}

// Resolver rewrites virtual parameters for one sentinel. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	prefix string
}

// New creates a Resolver for prefix, falling back to DefaultPrefix.
func New(prefix string) *Resolver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{prefix: prefix}
}

// Prefix returns the sentinel.
func (r *Resolver) Prefix() string {
	return r.prefix
}

// Resolve rewrites every virtual parameter in snippet to "?" and records the
// names left to right. A snippet without sentinels is returned unchanged with
// no names.
func (r *Resolver) Resolve(snippet string) (Resolution, error) {
	if !strings.Contains(snippet, r.prefix) {
		return Resolution{SQL: snippet}, nil
	}

	var sb strings.Builder
	sb.Grow(len(snippet))
	var names []string
	inString := false
	plen := len(r.prefix)

	for i := 0; i < len(snippet); {
		c := snippet[i]
		if c == '\'' {
			inString = !inString
			sb.WriteByte(c)
			i++
			continue
		}
		if inString || !strings.HasPrefix(snippet[i:], r.prefix) {
			sb.WriteByte(c)
			i++
			continue
		}
		if strings.HasPrefix(snippet[i+plen:], r.prefix) {
			sb.WriteString(snippet[i : i+2*plen])
			i += 2 * plen
			continue
		}

		end := terminatorIndex(snippet, i+plen)
		token := snippet[i:end]
		if !valid(token, plen) {
			return Resolution{}, &SyntaxError{Snippet: snippet, Token: token, Offset: i}
		}
		names = append(names, token[plen:])
		sb.WriteByte('?')
		i = end
	}

	return Resolution{SQL: sb.String(), Names: names}, nil
}

// terminatorIndex returns the index of the first terminator at or after
// from, or len(s) when the token runs to the end of the snippet.
func terminatorIndex(s string, from int) int {
	for i := from; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if isTerminator(r) {
			return i
		}
		i += size
	}
	return len(s)
}

func isTerminator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(terminators, r)
}

// valid reports whether token is a sentinel followed by a non-empty name
// free of terminator characters.
func valid(token string, plen int) bool {
	if len(token) <= plen {
		return false
	}
	return strings.IndexFunc(token, isTerminator) < 0
}

// Values looks up the supplied value of every name, in order. Names with no
// supplied value bind nil.
func Values(names []string, supplied map[string]any) []any {
	if len(names) == 0 {
		return nil
	}
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = supplied[name]
	}
	return values
}
