package parsing

import (
	"encoding/json"
	"strings"

	"github.com/titanous/json5"
)

// MaxEmbeddedScan bounds how far past the opening bracket ExtractEmbeddedArray
// scans for the matching close.
const MaxEmbeddedScan = 500 * 1024

// ExtractEmbeddedArray recovers a JavaScript array literal assigned in a page,
// e.g. `var events = [...]`, and decodes it. Bracket depth is not counted
// inside quoted strings or comments, and escaped characters never close a
// string. The literal is repaired (\' unescaped, trailing commas dropped)
// before decoding as JSON, with JSON5 as the fallback for single quotes and
// unquoted keys. Returns nil when nothing usable is found.
func ExtractEmbeddedArray(html, declarationPrefix string) []any {
	if declarationPrefix == "" {
		return nil
	}

	offset := 0
	for offset < len(html) {
		idx := strings.Index(html[offset:], declarationPrefix)
		if idx < 0 {
			return nil
		}
		offset += idx + len(declarationPrefix)

		open, ok := assignedArrayStart(html, offset)
		if !ok {
			continue
		}
		literal, ok := balancedArray(html, open)
		if !ok {
			return nil
		}
		return decodeArrayLiteral(literal)
	}
	return nil
}

// assignedArrayStart expects `\s*=\s*[` at pos and returns the bracket index.
func assignedArrayStart(s string, pos int) (int, bool) {
	i := skipSpace(s, pos)
	if i >= len(s) || s[i] != '=' {
		return 0, false
	}
	i = skipSpace(s, i+1)
	if i >= len(s) || s[i] != '[' {
		return 0, false
	}
	return i, true
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func balancedArray(s string, start int) (string, bool) {
	limit := start + MaxEmbeddedScan
	if limit > len(s) {
		limit = len(s)
	}

	depth := 0
	var quote byte
	for i := start; i < limit; i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < limit && s[i+1] == '/' {
				if nl := strings.IndexByte(s[i:limit], '\n'); nl >= 0 {
					i += nl
				} else {
					return "", false
				}
			} else if i+1 < limit && s[i+1] == '*' {
				if end := strings.Index(s[i+2:limit], "*/"); end >= 0 {
					i += end + 3
				} else {
					return "", false
				}
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func decodeArrayLiteral(literal string) []any {
	var out []any
	if err := json.Unmarshal([]byte(repairLiteral(literal)), &out); err == nil {
		return nonNil(out)
	}
	out = nil
	if err := json5.Unmarshal([]byte(literal), &out); err == nil {
		return nonNil(out)
	}
	return nil
}

func nonNil(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

// repairLiteral un-escapes \' inside strings and drops trailing commas before
// a closing bracket or brace. String contents are otherwise left untouched.
func repairLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(s) {
				if s[i+1] == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte(c)
					b.WriteByte(s[i+1])
				}
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case ',':
			j := skipSpace(s, i+1)
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
