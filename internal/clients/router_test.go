package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRules() []Rule {
	return []Rule{
		{
			Client:   "Acme",
			Patterns: []string{"acme-*", "rocket"},
			Exclude:  []string{"acme-internal"},
			Context:  "Acme builds rockets.",
		},
		{
			Client:   "Globex",
			Patterns: []string{"globex*"},
		},
		{
			Client:   "Acme",
			Patterns: []string{"acme-internal"},
		},
	}
}

func TestRouter_Assign_FirstMatchWins(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "")

	assert.Equal(t, "Acme", router.Assign("acme-site"))
	assert.Equal(t, "Acme", router.Assign("rocket-engine"), "substring match")
	assert.Equal(t, "Globex", router.Assign("globex-api"))
}

func TestRouter_Assign_ExcludeOverrides(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "")

	// Excluded by the first rule, picked up by the later one.
	assert.Equal(t, "Acme", router.Assign("acme-internal"))
}

func TestRouter_Assign_DefaultFallback(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "")
	assert.Equal(t, DefaultClient, router.Assign("dotfiles"))

	custom := NewRouter(testRules(), "Personal", "")
	assert.Equal(t, "Personal", custom.Assign("dotfiles"))
}

func TestRouter_Assign_CaseInsensitive(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "")

	assert.Equal(t, "Acme", router.Assign("ACME-Site"))
	assert.Equal(t, "Globex", router.Assign("GlobexPortal"))
}

func TestRouter_Categorize(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "")

	grouped := router.Categorize([]string{
		"/repos/acme-site",
		"/repos/globex-api",
		"/repos/dotfiles",
	})

	assert.Equal(t, []string{"/repos/acme-site"}, grouped["Acme"])
	assert.Equal(t, []string{"/repos/globex-api"}, grouped["Globex"])
	assert.Equal(t, []string{"/repos/dotfiles"}, grouped[DefaultClient])
	assert.Equal(t, []string{"Acme", "Globex", DefaultClient}, Clients(grouped))
}

func TestRouter_ClientContext(t *testing.T) {
	t.Parallel()

	router := NewRouter(testRules(), "", "We are a consultancy.")

	assert.Equal(t, "We are a consultancy.", router.GlobalContext())
	assert.Equal(t, "Acme builds rockets.", router.ClientContext("Acme"))
	assert.Equal(t, "Acme builds rockets.", router.ClientContext("acme"))
	assert.Empty(t, router.ClientContext("Globex"))
	assert.Empty(t, router.ClientContext("Nonexistent"))
}
