package router

import "regexp"

// Pattern groups, compiled once at init. Each group matches both diacritic
// and plain spellings; matching is case-insensitive substring search.
// Ordering is load-bearing: heavy rules are checked before complex rules,
// and the first matching group wins (see Classifier.Route).

var heavyPatterns = compile([]string{
	// multi-way comparisons: "so sánh X với Y với Z"
	`so s[aá]nh.+(v[oớ]i|v[aà]|vs).+(v[oớ]i|v[aà]|vs)`,
	// full-day meal planning
	`(k[eế] ho[aạ]ch|l[iị]ch).+([aă]n|b[uữ]a).+(c[aả] ng[aà]y|h[oô]m nay)`,
})

var complexPatterns = compile([]string{
	// nearby / around-here phrasing
	`g[aầ]n (t[oô]i|[dđ][aâ]y|nh[aấ]t)`,
	`qu[aá]n (g[aầ]n|xung quanh|khu v[uự]c)`,
	`t[iì]m (qu[aá]n|ch[oỗ] [aă]n|nh[aà] h[aà]ng)`,
	// relative time-of-day phrasing
	`b[aâ]y gi[oờ] (n[eê]n|c[oó] th[eể]|mu[oố]n)`,
	`(t[oố]i|tr[uư]a|s[aá]ng|chi[eề]u) (nay|h[oô]m nay|n[aà]y)`,
	`l[uú]c (n[aà]y|b[aâ]y gi[oờ]|\d+h)`,
	// direction asking
	`ch[iỉ] ([dđ][uư][oờ]ng|t[oô]i|c[aá]ch [dđ]i)`,
	// no-diacritic spellings
	`gan (toi|day|nhat)`,
	`tim (quan|cho an)`,
	`bay gio nen`,
})

// proximityPattern upgrades short queries to complex when the caller also
// supplied a location hint.
var proximityPattern = regexp.MustCompile(`(?i)g[aầ]n|xung quanh|khu v[uự]c|gan|nearby`)

func compile(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return compiled
}

func anyMatch(patterns []*regexp.Regexp, query string) bool {
	for _, p := range patterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}
