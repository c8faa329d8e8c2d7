package extract

import "strings"

// AuthorMatcher filters commits by author identity. An empty pattern matches
// everyone; a pattern starting with "@" matches the email domain; anything
// else matches as a case-insensitive substring of the author name or email.
type AuthorMatcher struct {
	pattern string
	domain  bool
}

// NewAuthorMatcher builds a matcher from a CLI/config pattern.
func NewAuthorMatcher(pattern string) AuthorMatcher {
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	return AuthorMatcher{
		pattern: pattern,
		domain:  strings.HasPrefix(pattern, "@"),
	}
}

// Pattern returns the normalized pattern, used in cache keys.
func (m AuthorMatcher) Pattern() string {
	return m.pattern
}

// Matches reports whether the commit author passes the filter.
func (m AuthorMatcher) Matches(name, email string) bool {
	if m.pattern == "" {
		return true
	}

	email = strings.ToLower(email)

	if m.domain {
		return strings.HasSuffix(email, m.pattern)
	}

	return strings.Contains(strings.ToLower(name), m.pattern) ||
		strings.Contains(email, m.pattern)
}
