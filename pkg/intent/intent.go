// Package intent resolves simple queries without any model call. It parses
// free text into a small intent vocabulary and renders replies from fixed
// templates over retrieved places, the zero-cost path of the router.
package intent

import (
	"regexp"
	"strings"
)

// Kind enumerates the recognised intents.
type Kind string

const (
	WantToEat    Kind = "want_to_eat"
	PriceQuery   Kind = "price_query"
	PriceCompare Kind = "price_compare"
	Suggest      Kind = "suggest"
	Unknown      Kind = "unknown"
)

// Intent is the parsed form of a query. Keyword2 is only set for
// PriceCompare; for Unknown, Keyword carries the query truncated to 40
// runes.
type Intent struct {
	Kind     Kind
	Keyword  string
	Keyword2 string
}

var (
	compareRe = regexp.MustCompile(`(?i)so s[aá]nh\s+(.+?)\s+(?:v[aà]|v[oớ]i|vs)\s+(.+?)(?:\s|$)`)
	priceRe   = regexp.MustCompile(`(?i)(.+?)\s+(?:gi[aá] bao nhi[eê]u|bao nhi[eê]u ti[eề]n|gi[aá] th[eế] n[aà]o)`)
	wantRe    = regexp.MustCompile(`(?i)(?:t[oô]i (?:mu[oố]n|th[iíì]ch|c[aầ]n) [aă]n` +
		`|cho t[oô]i [aă]n` +
		`|toi (?:muon|thich|can) an` +
		`|cho toi an)\s+(.+?)(?:\s*$|\.)`)
	suggestGateRe = regexp.MustCompile(`(?i)g[oợ]i [yý]|goi y|suggest|recommend`)
	suggestKwRe   = regexp.MustCompile(`(?i)(?:g[oợ]i [yý]|goi y|suggest)\s+(?:m[oó]n\s+)?(.+?)(?:\s|$)`)
)

// Parse extracts an intent from free text. The cascade is ordered (compare
// before price before want before suggest) and the first successful
// pattern wins; anything unmatched is Unknown. Parse is total: it never
// fails, whatever the input.
func Parse(query string) Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	if m := compareRe.FindStringSubmatch(q); m != nil {
		return Intent{Kind: PriceCompare, Keyword: strings.TrimSpace(m[1]), Keyword2: strings.TrimSpace(m[2])}
	}
	if m := priceRe.FindStringSubmatch(q); m != nil {
		return Intent{Kind: PriceQuery, Keyword: strings.TrimSpace(m[1])}
	}
	if m := wantRe.FindStringSubmatch(q); m != nil {
		return Intent{Kind: WantToEat, Keyword: strings.TrimSpace(m[1])}
	}
	if suggestGateRe.MatchString(q) {
		kw := ""
		if m := suggestKwRe.FindStringSubmatch(q); m != nil {
			kw = strings.TrimSpace(m[1])
		}
		return Intent{Kind: Suggest, Keyword: kw}
	}
	return Intent{Kind: Unknown, Keyword: truncateRunes(q, 40)}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
