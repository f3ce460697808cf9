package linkheader

import (
	"fmt"
	"strings"
)

// reservedChars keep their percent-encoded form on decode and are never
// escaped on encode, so decode/encode round-trips losslessly.
const reservedChars = ";/?:@&=+$,#"

const unreservedMarks = "-_.!~*'()"

const upperhex = "0123456789ABCDEF"

func isURISafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(reservedChars+unreservedMarks+"%", c) >= 0
}

// encodeURI percent-encodes every byte outside the unreserved and
// reserved sets, leaving existing escape sequences intact.
func encodeURI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURISafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0xf])
	}
	return b.String()
}

// decodeURI resolves percent escapes. Sequences encoding reserved
// characters (or '%' itself) are kept escaped so that encodeURI
// reproduces the original wire form.
func decodeURI(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated percent escape %q", s[i:])
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("malformed percent escape %q", s[i:i+3])
		}
		v := hi<<4 | lo
		if strings.IndexByte(reservedChars+"%", v) >= 0 {
			b.WriteByte('%')
			b.WriteByte(s[i+1])
			b.WriteByte(s[i+2])
		} else {
			b.WriteByte(v)
		}
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
