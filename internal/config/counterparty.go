package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Match modes for counterparty patterns.
const (
	// MatchLike follows SQL LIKE: % and _ wildcards, ASCII case-insensitive.
	MatchLike = "like"
	// MatchExact is byte-for-byte equality.
	MatchExact = "exact"
)

type CounterpartyPattern struct {
	Pattern string `yaml:"pattern"`
	Match   string `yaml:"match"`
}

// CounterpartyRules lists the names that identify the business's own money
// moving between accounts. Owners are also excluded from inflow and outflow
// totals but are reported in their own distribution bucket.
type CounterpartyRules struct {
	InternalTransfers []CounterpartyPattern `yaml:"internal_transfers"`
	Owners            []CounterpartyPattern `yaml:"owners"`

	// Optional overrides; empty keeps the built-in lists.
	CheckingOps           []CounterpartyPattern `yaml:"checking_ops"`
	DirectPayerExclusions []CounterpartyPattern `yaml:"direct_payer_exclusions"`
}

// LoadCounterpartyRules reads a YAML rules file. An empty path yields empty
// rules, which treats no counterparty as internal.
func LoadCounterpartyRules(path string) (CounterpartyRules, error) {
	var rules CounterpartyRules
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading counterparty rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parsing counterparty rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}

func (r CounterpartyRules) Validate() error {
	var errors []string
	check := func(list string, patterns []CounterpartyPattern) {
		for i, p := range patterns {
			if strings.TrimSpace(p.Pattern) == "" {
				errors = append(errors, fmt.Sprintf("%s[%d]: pattern cannot be empty", list, i))
			}
			if p.Match != MatchLike && p.Match != MatchExact {
				errors = append(errors, fmt.Sprintf("%s[%d]: match must be '%s' or '%s', got '%s'", list, i, MatchLike, MatchExact, p.Match))
			}
		}
	}
	check("internal_transfers", r.InternalTransfers)
	check("owners", r.Owners)
	check("checking_ops", r.CheckingOps)
	check("direct_payer_exclusions", r.DirectPayerExclusions)

	if len(errors) > 0 {
		return fmt.Errorf("counterparty rules validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
