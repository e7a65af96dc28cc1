// Package classify maps bank counterparties to spend categories.
//
// Rules are evaluated in a fixed order and the first match wins; later rules
// are intentionally broader, so the list must never be turned into a map.
package classify

import (
	"strings"
	"unicode"

	"findash/internal/core"
)

type Category int

const (
	Salaries Category = iota
	Labor
	TechVendors
	EmailInfrastructure
	Taxes
	Travel
	Miscellaneous
)

var categoryNames = [...]string{
	Salaries:            "Salaries",
	Labor:               "Labor",
	TechVendors:         "Tech Vendors",
	EmailInfrastructure: "Email Infrastructure",
	Taxes:               "Taxes",
	Travel:              "Travel",
	Miscellaneous:       "Miscellaneous",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// MarshalText lets categories be used as JSON object keys.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Salaries, Labor, TechVendors, EmailInfrastructure, Taxes, Travel, Miscellaneous}
}

// ParseCategory resolves a display name back to its Category.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(c.String(), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Miscellaneous, false
}

type rule struct {
	match    func(upper string) bool
	category Category
}

func prefix(p string) func(string) bool {
	return func(upper string) bool { return strings.HasPrefix(upper, p) }
}

func containsAny(keywords []string) func(string) bool {
	return func(upper string) bool {
		for _, kw := range keywords {
			if strings.Contains(upper, kw) {
				return true
			}
		}
		return false
	}
}

// word matches kw only when it is not glued to other letters or digits,
// so that "IRS" does not fire on names like "THEIRSTACK".
func word(kw string) func(string) bool {
	return func(upper string) bool {
		for i := 0; ; {
			j := strings.Index(upper[i:], kw)
			if j < 0 {
				return false
			}
			start, end := i+j, i+j+len(kw)
			if !isAlnumAt(upper, start-1) && !isAlnumAt(upper, end) {
				return true
			}
			i = start + 1
		}
	}
}

func isAlnumAt(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	r := rune(s[i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func either(fns ...func(string) bool) func(string) bool {
	return func(upper string) bool {
		for _, fn := range fns {
			if fn(upper) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{prefix("ADP"), Salaries},
	{either(word("IRS"), containsAny(taxKeywords)), Taxes},
	{either(prefix("RMT*"), containsAny(emailInfraKeywords)), EmailInfrastructure},
	{containsAny(travelKeywords), Travel},
	{containsAny(techVendorKeywords), TechVendors},
	{containsAny(laborKeywords), Labor},
}

// Classify returns the spend category for a counterparty. kind is the bank
// provider's transaction kind and only matters once every name rule missed.
func Classify(name, kind string) Category {
	if name == "" {
		return Miscellaneous
	}
	upper := strings.ToUpper(name)
	for _, r := range rules {
		if r.match(upper) {
			return r.category
		}
	}
	if kind == core.KindOutgoingPayment {
		return Labor
	}
	return Miscellaneous
}

// TechVendorKeywords returns a copy of the Tech Vendors catalog.
func TechVendorKeywords() []string {
	return append([]string(nil), techVendorKeywords...)
}
