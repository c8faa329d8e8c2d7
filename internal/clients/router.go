// Package clients assigns repositories to client buckets using ordered
// pattern rules, and carries per-client prompt context.
package clients

import (
	"path"
	"sort"
	"strings"
)

// DefaultClient is the fallback bucket for repositories no rule matches.
const DefaultClient = "Internal"

// Rule maps repository names to one client. Patterns are shell globs or
// plain substrings, matched case-insensitively. Exclude patterns override
// matches from the same rule.
type Rule struct {
	Client   string   `mapstructure:"client" json:"client"`
	Patterns []string `mapstructure:"patterns" json:"patterns"`
	Exclude  []string `mapstructure:"exclude" json:"exclude,omitempty"`
	Context  string   `mapstructure:"context" json:"context,omitempty"`
}

// Router assigns repositories to clients. Rules are evaluated in order;
// the first rule that matches (and does not exclude) wins.
type Router struct {
	rules         []Rule
	defaultClient string
	globalContext string
}

// NewRouter builds a router from ordered rules. An empty defaultClient
// falls back to DefaultClient.
func NewRouter(rules []Rule, defaultClient, globalContext string) *Router {
	if defaultClient == "" {
		defaultClient = DefaultClient
	}

	return &Router{rules: rules, defaultClient: defaultClient, globalContext: globalContext}
}

// Assign returns the client owning the repository name.
func (r *Router) Assign(repoName string) string {
	name := strings.ToLower(repoName)

	for _, rule := range r.rules {
		if !matchAny(rule.Patterns, name) {
			continue
		}

		if matchAny(rule.Exclude, name) {
			continue
		}

		return rule.Client
	}

	return r.defaultClient
}

// Categorize groups repository names (or paths; the base name is matched)
// by client. Group membership order follows the input; client iteration via
// Clients() is sorted.
func (r *Router) Categorize(repos []string) map[string][]string {
	grouped := make(map[string][]string)

	for _, repo := range repos {
		name := path.Base(strings.ReplaceAll(repo, "\\", "/"))
		client := r.Assign(name)
		grouped[client] = append(grouped[client], repo)
	}

	return grouped
}

// Clients returns the sorted client names present in a categorized map.
func Clients(grouped map[string][]string) []string {
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// GlobalContext returns the company-wide context paragraph for prompts.
func (r *Router) GlobalContext() string {
	return r.globalContext
}

// ClientContext returns the client-specific context paragraph, or "".
func (r *Router) ClientContext(client string) string {
	for _, rule := range r.rules {
		if strings.EqualFold(rule.Client, client) {
			return rule.Context
		}
	}

	return ""
}

// DefaultName returns the fallback client name.
func (r *Router) DefaultName() string {
	return r.defaultClient
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		pattern = strings.ToLower(pattern)

		matched, err := path.Match(pattern, name)
		if err == nil && matched {
			return true
		}

		if strings.Contains(name, pattern) {
			return true
		}
	}

	return false
}
