package topics

import (
	"strings"

	"codetracker/internal/config"
)

// DefaultSlug is chosen when no scraped topic matches any rule.
const DefaultSlug = "dynamic-programming"

// DefaultRules is the built-in keyword ladder. Order is significant: the
// first rule whose keyword appears in any scraped topic wins.
func DefaultRules() []config.TopicRule {
	return []config.TopicRule{
		{Slug: "dynamic-programming", Keywords: []string{"dynamic", "dp"}},
		{Slug: "arrays", Keywords: []string{"array"}},
		{Slug: "strings", Keywords: []string{"string"}},
		{Slug: "trees", Keywords: []string{"tree", "bst"}},
		{Slug: "graphs", Keywords: []string{"graph"}},
		{Slug: "linked-lists", Keywords: []string{"linked", "list"}},
		{Slug: "stacks-queues", Keywords: []string{"stack", "queue"}},
		{Slug: "binary-search", Keywords: []string{"binary", "search"}},
		{Slug: "greedy", Keywords: []string{"greedy"}},
		{Slug: "backtracking", Keywords: []string{"backtrack"}},
	}
}

// Mapper picks a canonical topic slug for a set of scraped topics.
type Mapper struct {
	rules []config.TopicRule
}

// NewMapper builds a mapper; nil or empty rules fall back to the defaults.
func NewMapper(rules []config.TopicRule) *Mapper {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Mapper{rules: rules}
}

// Choose returns the slug of the first rule matched by any topic,
// or DefaultSlug when nothing matches.
func (m *Mapper) Choose(scraped []string) string {
	lowered := make([]string, 0, len(scraped))
	for _, t := range scraped {
		lowered = append(lowered, strings.ToLower(t))
	}
	for _, rule := range m.rules {
		for _, keyword := range rule.Keywords {
			for _, topic := range lowered {
				if strings.Contains(topic, keyword) {
					return rule.Slug
				}
			}
		}
	}
	return DefaultSlug
}
