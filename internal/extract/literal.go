package extract

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// ParseEmbedded parses a serialized structure stored as a string value. JSON
// is tried first; otherwise the text is read as a Python-style literal
// (single-quoted strings, True/False/None, tuples).
func ParseEmbedded(s string) (*Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, eris.New("extract: empty embedded value")
	}
	if n, err := FromJSON([]byte(s)); err == nil {
		return n, nil
	}
	converted, err := literalToJSON(s)
	if err != nil {
		return nil, err
	}
	return FromJSON([]byte(converted))
}

// literalToJSON rewrites a Python literal into equivalent JSON text.
func literalToJSON(s string) (string, error) {
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\'' || r == '"':
			str, next, err := readQuoted(rs, i)
			if err != nil {
				return "", err
			}
			enc, _ := json.Marshal(str)
			b.Write(enc)
			i = next
		case r == '(':
			b.WriteRune('[')
		case r == ')':
			b.WriteRune(']')
		case unicode.IsLetter(r):
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			switch word := string(rs[i:j]); word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				return "", eris.Errorf("extract: unsupported literal %q", word)
			}
			i = j - 1
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// readQuoted decodes the quoted string starting at rs[start] and returns it
// with the index of the closing quote.
func readQuoted(rs []rune, start int) (string, int, error) {
	quote := rs[start]
	var b strings.Builder
	for i := start + 1; i < len(rs); i++ {
		r := rs[i]
		if r == quote {
			return b.String(), i, nil
		}
		if r != '\\' || i+1 >= len(rs) {
			b.WriteRune(r)
			continue
		}
		i++
		switch esc := rs[i]; esc {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		case 'x', 'u':
			width := 2
			if esc == 'u' {
				width = 4
			}
			if i+width >= len(rs) {
				return "", 0, eris.New("extract: truncated escape")
			}
			code, err := strconv.ParseUint(string(rs[i+1:i+1+width]), 16, 32)
			if err != nil {
				return "", 0, eris.Wrap(err, "extract: bad escape")
			}
			b.WriteRune(rune(code))
			i += width
		default:
			b.WriteRune(esc)
		}
	}
	return "", 0, eris.New("extract: unterminated string")
}
