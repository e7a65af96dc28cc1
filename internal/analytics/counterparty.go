package analytics

import (
	"fmt"
	"regexp"
	"strings"

	"findash/internal/config"
)

// Spend on checking-account "other" transactions only counts for these
// payroll, tax and contractor-platform counterparties.
var defaultCheckingOps = likes(
	"ADP%", "%IRS%", "%GEORGIA ITS TAX%", "%GA DEPT OF LABOR%", "%BOYLE TAX%",
	"%SAVERITE TAX%", "%STATE OF TN%", "%DELAWARE CORP%", "%Payoneer%",
)

// Inflows from these are processor payouts or non-client money and never
// make someone a direct payer.
var defaultDirectPayerExclusions = append(
	[]config.CounterpartyPattern{{Pattern: "STRIPE", Match: config.MatchExact}},
	likes("Savings Interest%", "%Cashback%", "%ANTHEM%", "%Kaiser%", "%JP Morgan%")...,
)

// Card payments back to checking settle the card balance and are not spend.
var cardSettlement = likes("Mercury Checking%")

func likes(patterns ...string) []config.CounterpartyPattern {
	out := make([]config.CounterpartyPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, config.CounterpartyPattern{Pattern: p, Match: config.MatchLike})
	}
	return out
}

// PatternSet matches a counterparty name against a list of LIKE or exact
// patterns.
type PatternSet struct {
	exact []string
	like  []*regexp.Regexp
}

func CompilePatterns(patterns []config.CounterpartyPattern) (*PatternSet, error) {
	s := &PatternSet{}
	for _, p := range patterns {
		switch p.Match {
		case config.MatchExact:
			s.exact = append(s.exact, p.Pattern)
		case config.MatchLike, "":
			re, err := likeToRegexp(p.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q: %w", p.Pattern, err)
			}
			s.like = append(s.like, re)
		default:
			return nil, fmt.Errorf("unknown match mode %q for pattern %q", p.Match, p.Pattern)
		}
	}
	return s, nil
}

func mustCompile(patterns []config.CounterpartyPattern) *PatternSet {
	s, err := CompilePatterns(patterns)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether name matches any pattern. A nil set matches nothing.
func (s *PatternSet) Match(name string) bool {
	if s == nil {
		return false
	}
	for _, e := range s.exact {
		if name == e {
			return true
		}
	}
	for _, re := range s.like {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exact) + len(s.like)
}

// likeToRegexp translates a SQL LIKE pattern into an anchored,
// case-insensitive regular expression.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Matcher classifies counterparties as internal transfers or owner
// distributions.
type Matcher struct {
	internal *PatternSet
	owners   *PatternSet
}

func NewMatcher(rules config.CounterpartyRules) (*Matcher, error) {
	internal, err := CompilePatterns(rules.InternalTransfers)
	if err != nil {
		return nil, fmt.Errorf("internal transfers: %w", err)
	}
	owners, err := CompilePatterns(rules.Owners)
	if err != nil {
		return nil, fmt.Errorf("owners: %w", err)
	}
	return &Matcher{internal: internal, owners: owners}, nil
}

// IsInternal reports whether money to or from name is the business moving
// its own funds. Owner entries count as internal.
func (m *Matcher) IsInternal(name string) bool {
	return m.internal.Match(name) || m.owners.Match(name)
}

func (m *Matcher) IsOwner(name string) bool {
	return m.owners.Match(name)
}
