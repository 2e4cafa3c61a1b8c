// Package literal parses the serialized mapping literals stored in the
// scp_codes column of ptbxl_database.csv, e.g. {'NORM': 100.0, 'SR': 0.0}.
//
// Only a flat mapping of quoted string keys to numbers is accepted. Nested
// containers, bare identifiers, duplicate keys and trailing input are errors.
package literal

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports the byte offset where parsing stopped
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mapping literal: %s at offset %d", e.Msg, e.Offset)
}

// ParseCodeMap parses a flat string->float mapping literal
func ParseCodeMap(s string) (map[string]float64, error) {
	p := &parser{src: s}
	p.skipSpace()
	if err := p.expect('{'); err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return out, p.end()
	}

	for {
		p.skipSpace()
		if p.peek() == '}' {
			// trailing comma
			p.pos++
			return out, p.end()
		}

		keyPos := p.pos
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, &SyntaxError{Offset: keyPos, Msg: fmt.Sprintf("duplicate key %q", key)}
		}

		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		p.skipSpace()

		val, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		out[key] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, p.end()
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	if p.pos >= len(p.src) {
		return &SyntaxError{Offset: p.pos, Msg: "unexpected end of input: " + fmt.Sprintf(format, args...)}
	}
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

// end requires that only whitespace follows the closing brace
func (p *parser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.errorf("unexpected trailing input")
	}
	return nil
}

func (p *parser) parseString() (string, error) {
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected quoted key")
	}
	p.pos++

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				p.pos++
				return "", p.errorf("unterminated escape")
			}
			next := p.src[p.pos+1]
			if next != '\\' && next != '\'' && next != '"' {
				return "", p.errorf("unsupported escape \\%c", next)
			}
			b.WriteByte(next)
			p.pos += 2
		case c == '\n':
			return "", p.errorf("newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	digits := 0
	for isDigit(p.peek()) {
		p.pos++
		digits++
	}
	if p.peek() == '.' {
		p.pos++
		for isDigit(p.peek()) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		p.pos = start
		return 0, p.errorf("expected number")
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		p.pos++
		if c := p.peek(); c == '+' || c == '-' {
			p.pos++
		}
		if !isDigit(p.peek()) {
			return 0, p.errorf("malformed exponent")
		}
		for isDigit(p.peek()) {
			p.pos++
		}
	}

	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, &SyntaxError{Offset: start, Msg: err.Error()}
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
