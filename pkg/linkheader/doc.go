// Package linkheader parses and serializes the RFC 8288 Link header.
//
// A header value is an ordered sequence of entries, each a target URI in
// angle brackets followed by semicolon-separated parameters:
//
//	<https://api.example.com/items?page=2>; rel="next"; title="second page"
//
// Entries keep their wire order across parsing and Add calls, which gives
// relation lookups first-match semantics. Parameter keys are stored
// lowercase; the rel and type parameter values are lowercased as well.
// Queries are stricter than stored data: GetByRel and GetByParam reject
// keys (and rel values) that are not already lowercase.
//
// Example usage:
//
//	links, err := linkheader.ParseResponse(resp)
//	if err != nil {
//		// *linkheader.ParseError carries the offending character and offset
//	}
//	if next, err := links.GetByRel("next"); err == nil && len(next) > 0 {
//		fmt.Println(next[0].URI)
//	}
package linkheader
