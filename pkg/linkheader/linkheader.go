package linkheader

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// keyPattern matches a legal parameter key: word characters or hyphens,
// optionally ending in '*' for extended (RFC 8187) parameters.
var keyPattern = regexp.MustCompile(`^[\w-]+\*?$`)

// Param is a single link parameter. Keys are stored lowercase; for the
// "rel" and "type" keys the value is stored lowercase as well.
type Param struct {
	Key   string
	Value string
}

// Link is one entry of a Link header: a target URI plus its parameters
// in wire order.
type Link struct {
	URI    string
	Params []Param
}

// Param returns the value of the first parameter with the given key.
func (l Link) Param(key string) (string, bool) {
	for _, p := range l.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Rel returns the link's relation, or the empty string when none is set.
func (l Link) Rel() string {
	v, _ := l.Param("rel")
	return v
}

// Links is an ordered collection of Link entries. Insertion order is
// preserved across Add calls; relation lookups rely on it for
// first-match semantics. Duplicate URIs and rel values are legal.
type Links []Link

// NewLinks validates an explicit entry sequence and returns it as a
// collection.
func NewLinks(entries ...Link) (Links, error) {
	var ls Links
	for _, e := range entries {
		if err := ls.Add(e.URI, e.Params...); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

// Add appends an entry. Parameter keys are lowercased and checked
// against the key grammar; rel and type values are lowercased.
func (ls *Links) Add(uri string, params ...Param) error {
	normalized := make([]Param, 0, len(params))
	for _, p := range params {
		key := strings.ToLower(p.Key)
		if !keyPattern.MatchString(key) {
			return fmt.Errorf("linkheader: invalid parameter key %q", p.Key)
		}
		value := p.Value
		if key == "rel" || key == "type" {
			value = strings.ToLower(value)
		}
		normalized = append(normalized, Param{Key: key, Value: value})
	}
	*ls = append(*ls, Link{URI: uri, Params: normalized})
	return nil
}

// Entries returns the collection as a plain slice in insertion order.
func (ls Links) Entries() []Link { return ls }

// Clone returns a deep copy of the collection.
func (ls Links) Clone() Links {
	out := make(Links, len(ls))
	for i, l := range ls {
		out[i] = Link{URI: l.URI, Params: append([]Param(nil), l.Params...)}
	}
	return out
}

// GetByRel returns every entry whose relation equals rel, preserving
// order. Queries are stricter than stored data: rel must already be
// lowercase or the call fails.
func (ls Links) GetByRel(rel string) (Links, error) {
	if rel != strings.ToLower(rel) {
		return nil, fmt.Errorf("linkheader: rel query %q must be lowercase", rel)
	}
	var out Links
	for _, l := range ls {
		if l.Rel() == rel {
			out = append(out, l)
		}
	}
	return out, nil
}

// GetByParam returns every entry carrying the given parameter key and
// value. The key must already be lowercase; "rel" queries delegate to
// GetByRel.
func (ls Links) GetByParam(key, value string) (Links, error) {
	if key != strings.ToLower(key) {
		return nil, fmt.Errorf("linkheader: parameter key query %q must be lowercase", key)
	}
	if key == "rel" {
		return ls.GetByRel(value)
	}
	var out Links
	for _, l := range ls {
		if v, ok := l.Param(key); ok && v == value {
			out = append(out, l)
		}
	}
	return out, nil
}

// HasParam reports whether any entry carries the parameter.
func (ls Links) HasParam(key, value string) (bool, error) {
	matches, err := ls.GetByParam(key, value)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// String serializes the collection to Link header wire form: each URI
// percent-encoded in angle brackets, parameters quoted when non-empty,
// entries joined by ", ".
func (ls Links) String() string {
	var b strings.Builder
	for i, l := range ls {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('<')
		b.WriteString(encodeURI(l.URI))
		b.WriteByte('>')
		for _, p := range l.Params {
			b.WriteString("; ")
			b.WriteString(p.Key)
			if p.Value != "" {
				b.WriteString(`="`)
				b.WriteString(escapeQuoted(p.Value))
				b.WriteByte('"')
			}
		}
	}
	return b.String()
}

func escapeQuoted(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseHeader reads the Link field of a header map; an absent field
// parses as an empty collection. Multiple Link field lines are joined
// into one entry list, keeping line order.
func ParseHeader(h http.Header) (Links, error) {
	return Parse(strings.Join(h.Values("Link"), ", "))
}

// ParseResponse reads the Link header of a response.
func ParseResponse(resp *http.Response) (Links, error) {
	return ParseHeader(resp.Header)
}
