package linkheader

import (
	"fmt"
	"strings"
)

// ParseError reports a grammar violation with the offending character
// and its cursor offset in the source string.
type ParseError struct {
	Offset int
	Char   rune
	reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("linkheader: %s at offset %d (%q)", e.reason, e.Offset, e.Char)
}

// Parse parses a raw Link header value into an ordered collection. An
// empty source yields an empty collection.
func Parse(source string) (Links, error) {
	p := &parser{src: source}
	var links Links

	for {
		p.skipSpace()
		if p.eof() {
			return links, nil
		}
		link, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) fail(reason string) *ParseError {
	ch := rune(0)
	if !p.eof() {
		ch = rune(p.src[p.pos])
	}
	return &ParseError{Offset: p.pos, Char: ch, reason: reason}
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// parseEntry consumes one "<uri>; k=v; ..." entry including a trailing
// comma separator when present.
func (p *parser) parseEntry() (Link, error) {
	if p.peek() != '<' {
		return Link{}, p.fail("expected '<'")
	}
	p.pos++

	uri, err := p.parseURI()
	if err != nil {
		return Link{}, err
	}

	link := Link{URI: uri}
	for {
		p.skipSpace()
		if p.eof() {
			return link, nil
		}
		switch p.peek() {
		case ',':
			p.pos++
			return link, nil
		case ';':
			p.pos++
			key, value, err := p.parseParam()
			if err != nil {
				return Link{}, err
			}
			link.Params = append(link.Params, Param{Key: key, Value: value})
		default:
			return Link{}, p.fail("expected ';' or ','")
		}
	}
}

// parseURI reads up to the closing unescaped '>' and percent-decodes
// the span. Whitespace and control characters inside the span are
// grammar violations.
func (p *parser) parseURI() (string, error) {
	start := p.pos
	var raw strings.Builder
	for {
		if p.eof() {
			p.pos = start
			return "", p.fail("unterminated URI, missing '>'")
		}
		c := p.peek()
		switch {
		case c == '>':
			p.pos++
			decoded, err := decodeURI(raw.String())
			if err != nil {
				p.pos = start
				return "", p.fail(err.Error())
			}
			return decoded, nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return "", p.fail("dangling escape in URI")
			}
			raw.WriteByte(p.peek())
			p.pos++
		case c <= 0x20 || c == 0x7f:
			return "", p.fail("whitespace or control character in URI")
		default:
			raw.WriteByte(c)
			p.pos++
		}
	}
}

// parseParam reads one parameter after a ';'. A key followed directly
// by ';', ',' or end of input carries an empty value.
func (p *parser) parseParam() (key, value string, err error) {
	p.skipSpace()
	key, err = p.parseKey()
	if err != nil {
		return "", "", err
	}

	if p.eof() || p.peek() == ';' || p.peek() == ',' {
		return key, "", nil
	}
	if p.peek() != '=' {
		return "", "", p.fail("expected '=' after parameter key")
	}
	p.pos++

	value, err = p.parseValue()
	if err != nil {
		return "", "", err
	}
	if key == "rel" || key == "type" {
		value = strings.ToLower(value)
	}
	return key, value, nil
}

func (p *parser) parseKey() (string, error) {
	start := p.pos
	for !p.eof() && (isWordChar(p.peek()) || p.peek() == '-') {
		p.pos++
	}
	if !p.eof() && p.peek() == '*' {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail("expected parameter key")
	}
	return strings.ToLower(p.src[start:p.pos]), nil
}

func isWordChar(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}

// parseValue reads either a quoted string or an unquoted token
// terminated by whitespace, ';' or ','.
func (p *parser) parseValue() (string, error) {
	if !p.eof() && p.peek() == '"' {
		return p.parseQuoted()
	}
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ' ' || c == '\t' || c == ';' || c == ',' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos], nil
}

// parseQuoted consumes until the closing unescaped quote. Backslash
// escapes the next character, so commas and semicolons inside quotes
// never split the value.
func (p *parser) parseQuoted() (string, error) {
	open := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			p.pos = open
			return "", p.fail("unterminated quoted value")
		}
		c := p.peek()
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.eof() {
				return "", p.fail("dangling escape in quoted value")
			}
			b.WriteByte(p.peek())
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}
